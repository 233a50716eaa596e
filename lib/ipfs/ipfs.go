// Package ipfs pins job definition documents to a content-addressed store
// through a pinning service, returning the content hash referenced by
// deployment create calls.
package ipfs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ipfs/go-cid"
	"go.uber.org/zap"
)

const (
	pinPath    = "/pinning/pinJSONToIPFS"
	pinTimeout = 30 * time.Second
)

// UploadError is a failed pin: a non-2xx response from the pinning service
// or an unusable content hash in its answer. Pins are not retried; that is
// left to the caller.
type UploadError struct {
	Status int
	Body   string
	Err    error
}

func (e *UploadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ipfs upload failed: %v", e.Err)
	}

	return fmt.Sprintf("ipfs upload failed: status %d: %s", e.Status, e.Body)
}

func (e *UploadError) Unwrap() error { return e.Err }

// Pinner talks to a Pinata-style pinning API with a bearer credential.
type Pinner struct {
	api     string
	jwt     string
	gateway string
	hc      *http.Client
	log     *zap.Logger
}

// New returns a pinner for the given API endpoint, bearer JWT and public
// gateway.
func New(api, jwt, gateway string, log *zap.Logger) *Pinner {
	if log == nil {
		log = zap.NewNop()
	}

	return &Pinner{
		api:     api,
		jwt:     jwt,
		gateway: gateway,
		hc:      &http.Client{Timeout: pinTimeout},
		log:     log,
	}
}

// Pin uploads the document as JSON and returns its content hash. The hash is
// validated as a CID before it is handed back.
func (p *Pinner) Pin(ctx context.Context, document any) (string, error) {
	payload, err := json.Marshal(document)
	if err != nil {
		return "", &UploadError{Err: fmt.Errorf("encode document: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.api+pinPath, bytes.NewReader(payload))
	if err != nil {
		return "", &UploadError{Err: err}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.jwt)

	resp, err := p.hc.Do(req)
	if err != nil {
		return "", &UploadError{Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &UploadError{Status: resp.StatusCode, Body: string(body)}
	}

	var out struct {
		IpfsHash string `json:"IpfsHash"`
	}

	if err := json.Unmarshal(body, &out); err != nil {
		return "", &UploadError{Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}

	if _, err := cid.Decode(out.IpfsHash); err != nil {
		return "", &UploadError{Status: resp.StatusCode, Err: fmt.Errorf("service returned invalid content hash %q: %w", out.IpfsHash, err)}
	}

	p.log.Debug("pinned job definition", zap.String("hash", out.IpfsHash))

	return out.IpfsHash, nil
}

// GatewayURL returns the public URL of a pinned document.
func (p *Pinner) GatewayURL(hash string) string {
	return p.gateway + hash
}
