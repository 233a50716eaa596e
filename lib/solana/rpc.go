package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const (
	rpcTimeout      = 30 * time.Second
	confirmInterval = 2 * time.Second
	confirmTimeout  = 60 * time.Second
)

// ErrNotConfirmed is returned when a submitted transaction does not reach a
// confirmed status within the polling window.
var ErrNotConfirmed = errors.New("transaction not confirmed in time")

// RPCError is a JSON-RPC 2.0 error object returned by the node.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Client is a minimal JSON-RPC 2.0 client for a Solana node. It covers only
// the methods the transfer engine needs.
type Client struct {
	url  string
	hc   *http.Client
	log  *zap.Logger
	poll time.Duration // confirmation polling interval
}

// NewClient connects to a Solana RPC endpoint.
func NewClient(url string, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}

	return &Client{
		url:  url,
		hc:   &http.Client{Timeout: rpcTimeout},
		log:  log,
		poll: confirmInterval,
	}
}

// Close releases the underlying connection pool.
func (c *Client) Close() {
	c.hc.CloseIdleConnections()
}

type rpcRequest struct {
	Jsonrpc string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params []any, result any) error {
	body, err := json.Marshal(rpcRequest{Jsonrpc: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("rpc %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("rpc %s: unexpected status %d", method, resp.StatusCode)
	}

	var rr rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return fmt.Errorf("rpc %s: %w", method, err)
	}

	if rr.Error != nil {
		return fmt.Errorf("rpc %s: %w", method, rr.Error)
	}

	if result != nil {
		if err := json.Unmarshal(rr.Result, result); err != nil {
			return fmt.Errorf("rpc %s: %w", method, err)
		}
	}

	return nil
}

// GetBalance returns the lamport balance of an account.
func (c *Client) GetBalance(ctx context.Context, account PublicKey) (uint64, error) {
	var out struct {
		Value uint64 `json:"value"`
	}

	if err := c.call(ctx, "getBalance", []any{account.String()}, &out); err != nil {
		return 0, err
	}

	return out.Value, nil
}

// GetTokenAccountBalance returns the balance of a token account in the
// token's smallest units. A missing account is reported as an RPC error by
// the node.
func (c *Client) GetTokenAccountBalance(ctx context.Context, account PublicKey) (uint64, error) {
	var out struct {
		Value struct {
			Amount string `json:"amount"`
		} `json:"value"`
	}

	if err := c.call(ctx, "getTokenAccountBalance", []any{account.String()}, &out); err != nil {
		return 0, err
	}

	amount, err := strconv.ParseUint(out.Value.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("rpc getTokenAccountBalance: bad amount %q: %w", out.Value.Amount, err)
	}

	return amount, nil
}

// GetLatestBlockhash returns a recent blockhash to anchor a transaction to.
func (c *Client) GetLatestBlockhash(ctx context.Context) (string, error) {
	var out struct {
		Value struct {
			Blockhash string `json:"blockhash"`
		} `json:"value"`
	}

	params := []any{map[string]any{"commitment": "finalized"}}
	if err := c.call(ctx, "getLatestBlockhash", params, &out); err != nil {
		return "", err
	}

	return out.Value.Blockhash, nil
}

// SendTransaction submits a base64 encoded signed transaction and returns
// its signature.
func (c *Client) SendTransaction(ctx context.Context, txBase64 string) (string, error) {
	var sig string

	params := []any{txBase64, map[string]any{
		"encoding":            "base64",
		"skipPreflight":       false,
		"preflightCommitment": "processed",
	}}

	if err := c.call(ctx, "sendTransaction", params, &sig); err != nil {
		return "", err
	}

	return sig, nil
}

// GetSignatureStatus returns the confirmation status of a signature, or an
// empty string when the node does not know it yet.
func (c *Client) GetSignatureStatus(ctx context.Context, sig string) (string, error) {
	var out struct {
		Value []*struct {
			ConfirmationStatus string          `json:"confirmationStatus"`
			Err                json.RawMessage `json:"err"`
		} `json:"value"`
	}

	params := []any{[]string{sig}, map[string]any{"searchTransactionHistory": true}}
	if err := c.call(ctx, "getSignatureStatuses", params, &out); err != nil {
		return "", err
	}

	if len(out.Value) == 0 || out.Value[0] == nil {
		return "", nil
	}

	// the node reports execution failure as a structured, non-null err field
	if e := out.Value[0].Err; len(e) > 0 && string(e) != "null" {
		return "", fmt.Errorf("transaction %s failed on chain: %s", sig, string(e))
	}

	return out.Value[0].ConfirmationStatus, nil
}

// WaitForConfirmation polls the signature status until it reaches confirmed
// or finalized, the context is cancelled, or the polling window elapses.
func (c *Client) WaitForConfirmation(ctx context.Context, sig string) error {
	ctx, cancel := context.WithTimeout(ctx, confirmTimeout)
	defer cancel()

	for {
		status, err := c.GetSignatureStatus(ctx, sig)
		if err != nil {
			return err
		}

		if status == "confirmed" || status == "finalized" {
			c.log.Debug("transaction confirmed", zap.String("signature", sig), zap.String("status", status))

			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %s", ErrNotConfirmed, sig)
		case <-time.After(c.poll):
		}
	}
}
