package auth

import (
	"bytes"
	"crypto/ed25519"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KeesGeerligs/nosana-deployments-go/lib/solana"
)

func testAuth(t *testing.T) (*Auth, *solana.Keypair) {
	t.Helper()

	kp, err := solana.NewKeypair(bytes.Repeat([]byte{0x42}, ed25519.SeedSize))
	require.NoError(t, err)

	return New(kp), kp
}

func TestHeadersFormat(t *testing.T) {
	a, kp := testAuth(t)

	before := time.Now().UnixMilli()

	headers, err := a.Headers()
	require.NoError(t, err)

	after := time.Now().UnixMilli()

	assert.Equal(t, kp.Public().String(), headers["x-user-id"])
	assert.Equal(t, kp.Public().String(), a.UserID())

	parts := strings.Split(headers["authorization"], ":")
	require.Len(t, parts, 3)
	assert.Equal(t, Message, parts[0])

	sig, err := base58.Decode(parts[1])
	require.NoError(t, err)
	assert.True(t, solana.Verify(kp.Public(), []byte(Message), sig))

	ts, err := strconv.ParseInt(parts[2], 10, 64)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, ts, before)
	assert.LessOrEqual(t, ts, after)
}

func TestVerifyHeader(t *testing.T) {
	a, kp := testAuth(t)

	headers, err := a.Headers()
	require.NoError(t, err)

	header := headers["authorization"]
	assert.True(t, VerifyHeader(kp.Public(), header))

	// tampered signature
	parts := strings.Split(header, ":")
	tampered := Message + ":" + base58.Encode(bytes.Repeat([]byte{1}, ed25519.SignatureSize)) + ":" + parts[2]
	assert.False(t, VerifyHeader(kp.Public(), tampered))

	// wrong key
	other, err := solana.NewKeypair(bytes.Repeat([]byte{5}, ed25519.SeedSize))
	require.NoError(t, err)
	assert.False(t, VerifyHeader(other.Public(), header))

	// malformed headers
	assert.False(t, VerifyHeader(kp.Public(), ""))
	assert.False(t, VerifyHeader(kp.Public(), "WrongMessage:"+parts[1]+":"+parts[2]))
	assert.False(t, VerifyHeader(kp.Public(), Message+":"+parts[1]+":not-a-timestamp"))
}
