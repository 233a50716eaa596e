// Package deployments implements the client for the Nosana Deployment
// Manager.
//
// Every operation is one wallet-authenticated HTTP call plus model parsing.
// Read-style calls (get, tasks) are served through per-client TTL caches.
// The full documentation of the remote API is provided by Nosana; this
// package mirrors its /deployment and /vault surfaces.
package deployments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/KeesGeerligs/nosana-deployments-go/lib/auth"
	"github.com/KeesGeerligs/nosana-deployments-go/lib/cache"
	"github.com/KeesGeerligs/nosana-deployments-go/lib/config"
	"github.com/KeesGeerligs/nosana-deployments-go/lib/ipfs"
	"github.com/KeesGeerligs/nosana-deployments-go/lib/model"
	"github.com/KeesGeerligs/nosana-deployments-go/lib/rest"
	"github.com/KeesGeerligs/nosana-deployments-go/lib/solana"
)

// Cache tuning for the read-style calls.
const (
	deploymentTTL  = 60 * time.Second
	deploymentSize = 50
	tasksTTL       = 30 * time.Second
	tasksSize      = 100
)

// ErrNotImplemented marks operations the SDK deliberately does not support
// yet, such as signing manager-built withdrawal transactions.
var ErrNotImplemented = errors.New("not implemented")

// Client is the entry point of the SDK. It owns the wallet, the
// authenticated HTTP client, the transfer engine and the caches; all of
// them are scoped to the client's lifetime and released by Close.
type Client struct {
	cfg    config.ServiceConfig
	kp     *solana.Keypair
	auth   *auth.Auth
	api    *rest.Client
	engine *solana.Engine
	pinner *ipfs.Pinner
	mint   solana.PublicKey

	deps  *cache.Cache[model.Deployment]
	tasks *cache.Cache[[]model.Task]

	log *zap.Logger
}

// Option configures the client.
type Option func(*Client)

// WithLogger sets the logger used by the client and every layer under it.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

// New builds a client from the given configuration. The wallet key is
// parsed from hex or base58 form and never persisted.
func New(cfg config.ServiceConfig, opts ...Option) (*Client, error) {
	c := &Client{cfg: cfg, log: zap.NewNop()}

	for _, o := range opts {
		o(c)
	}

	kp, err := solana.ParseKeypair(cfg.WalletKey)
	if err != nil {
		return nil, fmt.Errorf("wallet key: %w", err)
	}

	mint, err := solana.ParsePublicKey(cfg.NosMint)
	if err != nil {
		return nil, fmt.Errorf("token mint: %w", err)
	}

	c.kp = kp
	c.mint = mint
	c.auth = auth.New(kp)
	c.api = rest.New(cfg.Manager, c.auth,
		rest.WithTimeout(time.Duration(cfg.Timeout)*time.Second),
		rest.WithRetries(cfg.Retries),
		rest.WithLogger(c.log))
	c.engine = solana.NewEngine(solana.NewClient(cfg.RPC, c.log), c.log)
	c.pinner = ipfs.New(cfg.PinataAPI, cfg.PinataJWT, cfg.Gateway, c.log)
	c.deps = cache.New[model.Deployment](deploymentTTL, deploymentSize)
	c.tasks = cache.New[[]model.Task](tasksTTL, tasksSize)

	return c, nil
}

// Address returns the wallet's public address string.
func (c *Client) Address() string {
	return c.auth.UserID()
}

// Pin uploads a job definition document and returns its content hash for
// use in a create request.
func (c *Client) Pin(ctx context.Context, document any) (string, error) {
	return c.pinner.Pin(ctx, document)
}

// GatewayURL returns the public URL of a pinned job definition.
func (c *Client) GatewayURL(hash string) string {
	return c.pinner.GatewayURL(hash)
}

// Close releases the HTTP and RPC connection pools. The client must not be
// used afterwards.
func (c *Client) Close() {
	c.api.Close()
	c.engine.RPC().Close()
}
