// config_test.go tests config files
package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fileToTest is a relative path to the configuration file to test
var fileToTest string = "../../cmd/conf.json"

// TestDefaults checks the configuration returned with no file and no ENV.
func TestDefaults(t *testing.T) {
	conf, err := ExtractConfiguration("")
	require.NoError(t, err)

	assert.Equal(t, "devnet", conf.Environment)
	assert.Equal(t, NosMintDefault, conf.NosMint)
	assert.Equal(t, PinataAPIDefault, conf.PinataAPI)
	assert.Equal(t, GatewayDefault, conf.Gateway)
	assert.Equal(t, TimeoutDefault, conf.Timeout)
	assert.Equal(t, RetriesDefault, conf.Retries)

	// per-environment endpoints resolved from the selector
	assert.Equal(t, managerDefaults["devnet"], conf.Manager)
	assert.Equal(t, rpcDefaults["devnet"], conf.RPC)
}

// TestConfig extracts config from a file and checks values loaded.
func TestConfig(t *testing.T) {
	conf, err := ExtractConfiguration(fileToTest)
	require.NoError(t, err)

	assert.Equal(t, "devnet", conf.Environment)
	assert.Equal(t, NosMintDefault, conf.NosMint)
	assert.Equal(t, 30, conf.Timeout)
	assert.Equal(t, 3, conf.Retries)
}

// TestEnvOverrides checks that NOS_ prefixed ENV variables win over file values.
func TestEnvOverrides(t *testing.T) {
	t.Setenv("NOS_ENVIRONMENT", "mainnet")
	t.Setenv("NOS_MANAGER", "https://manager.example")
	t.Setenv("NOS_RPC", "https://rpc.example")
	t.Setenv("NOS_PINATA_JWT", "jwt-from-env")
	t.Setenv("NOS_WALLET_PRIVATE_KEY", "deadbeef")
	t.Setenv("NOS_TIMEOUT", "10")
	t.Setenv("NOS_RETRIES", "5")

	conf, err := ExtractConfiguration(fileToTest)
	require.NoError(t, err)

	assert.Equal(t, "mainnet", conf.Environment)
	assert.Equal(t, "https://manager.example", conf.Manager)
	assert.Equal(t, "https://rpc.example", conf.RPC)
	assert.Equal(t, "jwt-from-env", conf.PinataJWT)
	assert.Equal(t, "deadbeef", conf.WalletKey)
	assert.Equal(t, 10, conf.Timeout)
	assert.Equal(t, 5, conf.Retries)
}

// TestWalletKeyFallback accepts the unprefixed variable name.
func TestWalletKeyFallback(t *testing.T) {
	t.Setenv("WALLET_PRIVATE_KEY", "cafebabe")

	conf, err := ExtractConfiguration("")
	require.NoError(t, err)
	assert.Equal(t, "cafebabe", conf.WalletKey)
}

// TestBadEnvironment rejects an unknown environment selector.
func TestBadEnvironment(t *testing.T) {
	t.Setenv("NOS_ENVIRONMENT", "testnet")

	_, err := ExtractConfiguration("")
	assert.ErrorIs(t, err, ErrEnvironment)
}

// TestBadTimeout rejects a non-numeric timeout.
func TestBadTimeout(t *testing.T) {
	t.Setenv("NOS_TIMEOUT", "soon")

	_, err := ExtractConfiguration("")
	assert.Error(t, err)
}
