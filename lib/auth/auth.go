// Package auth produces wallet-signed authentication headers for Deployment
// Manager requests.
package auth

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mr-tron/base58"

	"github.com/KeesGeerligs/nosana-deployments-go/lib/solana"
)

// Message is the fixed literal signed for every request. The server verifies
// the detached signature against the x-user-id public key.
const Message = "DeploymentsAuthorization"

// Error is an authentication failure. It carries the wallet address for
// diagnostics and is never silently retried.
type Error struct {
	WalletAddress string
	Err           error
}

func (e *Error) Error() string {
	return fmt.Sprintf("authentication failed for %s: %v", e.WalletAddress, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Auth holds the signing keypair for a client instance.
type Auth struct {
	kp     *solana.Keypair
	userID string
}

// New returns an authenticator for the given keypair.
func New(kp *solana.Keypair) *Auth {
	return &Auth{kp: kp, userID: kp.Public().String()}
}

// UserID is the wallet's public address string, sent as x-user-id.
func (a *Auth) UserID() string {
	return a.userID
}

// Headers generates the per-request authentication headers. The timestamp
// changes on every call, so the result must never be cached.
func (a *Auth) Headers() (map[string]string, error) {
	sig := a.kp.Sign([]byte(Message))
	if len(sig) == 0 {
		return nil, &Error{WalletAddress: a.userID, Err: fmt.Errorf("empty signature")}
	}

	authorization := fmt.Sprintf("%s:%s:%d", Message, base58.Encode(sig), time.Now().UnixMilli())

	return map[string]string{
		"x-user-id":     a.userID,
		"authorization": authorization,
	}, nil
}

// VerifyHeader checks an authorization header value against a public key.
// The expected format is message:signature_base58:timestamp_ms.
func VerifyHeader(pub solana.PublicKey, header string) bool {
	parts := strings.Split(header, ":")
	if len(parts) != 3 || parts[0] != Message {
		return false
	}

	if _, err := strconv.ParseInt(parts[2], 10, 64); err != nil {
		return false
	}

	sig, err := base58.Decode(parts[1])
	if err != nil {
		return false
	}

	return solana.Verify(pub, []byte(Message), sig)
}
