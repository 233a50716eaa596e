package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIn(t *testing.T) {
	ss := []string{"devnet", "mainnet"}

	assert.True(t, In(ss, "devnet"))
	assert.False(t, In(ss, "testnet"))
	assert.False(t, In(nil, "devnet"))
}

func TestShorten(t *testing.T) {
	assert.Equal(t, "short", Shorten("short"))
	assert.Equal(t, "nosXBV..Moo7", Shorten("nosXBVoaCTtYdLvKY6Csb4AC8JCdQKKAaWYtx2ZMoo7"))
}
