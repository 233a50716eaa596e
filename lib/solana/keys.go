// Package solana implements the chain primitives the SDK needs: ed25519
// keypairs and base58 addresses, program-derived and associated token account
// derivation, transfer transaction building and a small JSON-RPC client.
package solana

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Well-known program and account addresses.
var (
	SystemProgram          = MustParsePublicKey("11111111111111111111111111111111")
	TokenProgram           = MustParsePublicKey("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	AssociatedTokenProgram = MustParsePublicKey("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
)

// Error codes.
var (
	ErrBadAddress = errors.New("address is not a base58 encoded 32-byte public key")
	ErrBadKey     = errors.New("private key must be a 64-byte keypair or 32-byte seed, in hex or base58 form")
	ErrOnCurve    = errors.New("derived address is on the ed25519 curve")
	ErrNoBump     = errors.New("no valid program derived address for the given seeds")
)

// pdaMarker is appended to the hashed seeds when deriving program addresses.
var pdaMarker = []byte("ProgramDerivedAddress")

// PublicKey is a 32-byte ed25519 public key or program derived address.
type PublicKey [32]byte

// ParsePublicKey decodes a base58 encoded address.
func ParsePublicKey(s string) (PublicKey, error) {
	var pk PublicKey

	b, err := base58.Decode(s)
	if err != nil || len(b) != len(pk) {
		return pk, fmt.Errorf("%w: %q", ErrBadAddress, s)
	}

	copy(pk[:], b)

	return pk, nil
}

// MustParsePublicKey is ParsePublicKey for hardcoded addresses; it panics on error.
func MustParsePublicKey(s string) PublicKey {
	pk, err := ParsePublicKey(s)
	if err != nil {
		panic(err)
	}

	return pk
}

// String returns the base58 form of the key.
func (pk PublicKey) String() string {
	return base58.Encode(pk[:])
}

// Bytes returns a copy of the raw key bytes.
func (pk PublicKey) Bytes() []byte {
	b := make([]byte, len(pk))
	copy(b, pk[:])

	return b
}

// OnCurve reports whether the key is a valid ed25519 curve point. Program
// derived addresses must be off-curve so that no private key can sign for
// them.
func (pk PublicKey) OnCurve() bool {
	_, err := new(edwards25519.Point).SetBytes(pk[:])

	return err == nil
}

// CreateProgramAddress derives an address from the given seeds and program
// id. It returns ErrOnCurve when the sha256 result happens to be a valid
// curve point, in which case the caller must try a different bump seed.
func CreateProgramAddress(seeds [][]byte, program PublicKey) (PublicKey, error) {
	h := sha256.New()
	for _, seed := range seeds {
		h.Write(seed)
	}

	h.Write(program[:])
	h.Write(pdaMarker)

	var pk PublicKey
	copy(pk[:], h.Sum(nil))

	if pk.OnCurve() {
		return PublicKey{}, ErrOnCurve
	}

	return pk, nil
}

// FindProgramAddress searches bump seeds from 255 downwards until the
// derived address falls off-curve. The result is deterministic for a given
// set of seeds and program id.
func FindProgramAddress(seeds [][]byte, program PublicKey) (PublicKey, uint8, error) {
	for bump := 255; bump >= 0; bump-- {
		trial := make([][]byte, 0, len(seeds)+1)
		trial = append(trial, seeds...)
		trial = append(trial, []byte{byte(bump)})

		pk, err := CreateProgramAddress(trial, program)
		if err == nil {
			return pk, uint8(bump), nil
		}
	}

	return PublicKey{}, 0, ErrNoBump
}

// AssociatedTokenAddress derives the associated token account that holds the
// balance of mint for owner.
func AssociatedTokenAddress(owner, mint PublicKey) (PublicKey, error) {
	pk, _, err := FindProgramAddress([][]byte{owner[:], TokenProgram[:], mint[:]}, AssociatedTokenProgram)

	return pk, err
}

// Keypair is an ed25519 signing key and its public address. It lives only in
// process memory and is never persisted by the SDK.
type Keypair struct {
	priv ed25519.PrivateKey
	pub  PublicKey
}

// NewKeypair builds a keypair from raw bytes: either a 64-byte seed+public
// keypair (the Solana wallet export format) or a 32-byte seed.
func NewKeypair(b []byte) (*Keypair, error) {
	var seed []byte

	switch len(b) {
	case ed25519.PrivateKeySize: // 64: seed followed by public key
		seed = b[:ed25519.SeedSize]
	case ed25519.SeedSize: // 32
		seed = b
	default:
		return nil, fmt.Errorf("%w: got %d bytes", ErrBadKey, len(b))
	}

	priv := ed25519.NewKeyFromSeed(seed)

	var pub PublicKey
	copy(pub[:], priv.Public().(ed25519.PublicKey))

	return &Keypair{priv: priv, pub: pub}, nil
}

// ParseKeypair accepts a private key in base58 (Solana standard) or hex form,
// with an optional 0x prefix for hex.
func ParseKeypair(key string) (*Keypair, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrBadKey
	}

	// base58 exports are longer than the 64 hex characters of a raw seed
	if len(key) > 64 && !strings.HasPrefix(key, "0x") {
		b, err := base58.Decode(key)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadKey, err)
		}

		return NewKeypair(b)
	}

	b, err := hex.DecodeString(strings.TrimPrefix(key, "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadKey, err)
	}

	return NewKeypair(b)
}

// Public returns the public address of the keypair.
func (kp *Keypair) Public() PublicKey {
	return kp.pub
}

// Sign produces a 64-byte detached ed25519 signature over msg.
func (kp *Keypair) Sign(msg []byte) []byte {
	return ed25519.Sign(kp.priv, msg)
}

// Verify checks a detached signature against pub and msg.
func Verify(pub PublicKey, msg, sig []byte) bool {
	return ed25519.Verify(ed25519.PublicKey(pub[:]), msg, sig)
}
