// Package config provides helper functionality to read SDK configuration from JSON config files or OS ENV variables.
// The default configuration for the selected environment can be overriden first by:
//
// - a valid JSON config file (see cmd/conf.json for a sample) and then by
//
// - OS ENV variables: prefixed with NOS_ (ie. NOS_ENVIRONMENT, NOS_MANAGER, NOS_WALLET_PRIVATE_KEY, ...).
// All OS ENV variables should be valid strings. For example:
// # export NOS_ENVIRONMENT=mainnet
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/KeesGeerligs/nosana-deployments-go/lib/util"
)

// Default configuration variables
var (
	EnvironmentDefault = "devnet"
	TimeoutDefault     = 30
	RetriesDefault     = 3
	NosMintDefault     = "nosXBVoaCTtYdLvKY6Csb4AC8JCdQKKAaWYtx2ZMoo7"
	PinataAPIDefault   = "https://api.pinata.cloud"
	GatewayDefault     = "https://nosana.mypinata.cloud/ipfs/"

	// per-environment endpoints of the remote services
	managerDefaults = map[string]string{
		"mainnet": "https://deployment-manager.k8s.prd.nos.ci",
		"devnet":  "https://deployment-manager.k8s.prd.nos.ci",
	}
	rpcDefaults = map[string]string{
		"mainnet": "https://api.mainnet-beta.solana.com",
		"devnet":  "https://api.devnet.solana.com",
	}

	environments = []string{"devnet", "mainnet"}
)

// ErrEnvironment is returned for an environment selector outside the known set.
var ErrEnvironment = errors.New("environment must be one of devnet, mainnet")

// ServiceConfig contains the required fields for the deployments client: the environment selector, the Deployment
// Manager and Solana RPC endpoints, the token mint, the pinning service credentials and the wallet private key (hex
// or base58 form). The key is only ever held in memory.
type ServiceConfig struct {
	Environment string `json:"environment"`
	Manager     string `json:"manager"`
	RPC         string `json:"rpc"`
	NosMint     string `json:"nosMint"`
	PinataAPI   string `json:"pinataApi"`
	PinataJWT   string `json:"pinataJwt"`
	Gateway     string `json:"gateway"`
	WalletKey   string `json:"walletKey"`
	Timeout     int    `json:"timeout"`
	Retries     int    `json:"retries"`
}

// ExtractConfiguration reads from the given JSON filename and returns the ServiceConfig or an error otherwise.
func ExtractConfiguration(filename string) (ServiceConfig, error) {
	conf := ServiceConfig{
		Environment: EnvironmentDefault,
		NosMint:     NosMintDefault,
		PinataAPI:   PinataAPIDefault,
		Gateway:     GatewayDefault,
		Timeout:     TimeoutDefault,
		Retries:     RetriesDefault,
	}
	// read from config file first
	if filename != "" {
		file, err := os.Open(filename)
		if err != nil {
			return conf, err
		}
		defer file.Close()
		if err = json.NewDecoder(file).Decode(&conf); err != nil {
			return conf, err
		}
	}
	// then override config values with OS ENV variables
	var tmp string
	if tmp = os.Getenv("NOS_ENVIRONMENT"); tmp != "" {
		conf.Environment = tmp
	}
	if tmp = os.Getenv("NOS_MANAGER"); tmp != "" {
		conf.Manager = tmp
	}
	if tmp = os.Getenv("NOS_RPC"); tmp != "" {
		conf.RPC = tmp
	}
	if tmp = os.Getenv("NOS_MINT"); tmp != "" {
		conf.NosMint = tmp
	}
	if tmp = os.Getenv("NOS_PINATA_API"); tmp != "" {
		conf.PinataAPI = tmp
	}
	if tmp = os.Getenv("NOS_PINATA_JWT"); tmp != "" {
		conf.PinataJWT = tmp
	}
	if tmp = os.Getenv("NOS_GATEWAY"); tmp != "" {
		conf.Gateway = tmp
	}
	if tmp = os.Getenv("NOS_WALLET_PRIVATE_KEY"); tmp != "" {
		conf.WalletKey = tmp
	} else if tmp = os.Getenv("WALLET_PRIVATE_KEY"); tmp != "" {
		// unprefixed name also accepted
		conf.WalletKey = tmp
	}
	if tmp = os.Getenv("NOS_TIMEOUT"); tmp != "" {
		n, err := strconv.Atoi(tmp)
		if err != nil {
			return conf, fmt.Errorf("NOS_TIMEOUT: %w", err)
		}
		conf.Timeout = n
	}
	if tmp = os.Getenv("NOS_RETRIES"); tmp != "" {
		n, err := strconv.Atoi(tmp)
		if err != nil {
			return conf, fmt.Errorf("NOS_RETRIES: %w", err)
		}
		conf.Retries = n
	}
	// resolve per-environment endpoints last, so an explicit manager or RPC always wins
	if !util.In(environments, conf.Environment) {
		return conf, fmt.Errorf("%w: %q", ErrEnvironment, conf.Environment)
	}
	if conf.Manager == "" {
		conf.Manager = managerDefaults[conf.Environment]
	}
	if conf.RPC == "" {
		conf.RPC = rpcDefaults[conf.Environment]
	}
	return conf, nil
}
