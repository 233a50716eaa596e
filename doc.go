// Package nosana and its sub-packages implement a Go SDK for the Nosana
// Deployment Manager and the Solana funding path that deployments depend on.
/*
The SDK is organised in layers:

1) a deployments client (package deployments) that wraps every Deployment
 Manager operation (create, get, list, start, stop, archive, replica and
 timeout updates, scheduled tasks) behind wallet-signed HTTP requests, and
 exposes a Vault handle for funding and withdrawing the on-chain vault that
 backs each deployment.

2) a Solana layer (package lib/solana) with the minimal chain primitives the
 client needs: ed25519 keypairs and base58 addresses, program-derived and
 associated token account derivation, native and SPL token transfer
 transaction building and signing, and a small JSON-RPC client with polling
 confirmation.

Architecture

Every request to the Deployment Manager is authenticated with a detached
signature produced by the caller's wallet (package lib/auth). The HTTP layer
(package lib/rest) retries transient failures with exponential backoff and
exports Prometheus counters. Read-style calls are served through per-client
TTL caches (package lib/cache). Job definitions are pinned to IPFS through a
pinning service (package lib/ipfs) and referenced by content hash when a
deployment is created.

Configuration is layered (package lib/config): typed defaults per environment
(devnet or mainnet), then an optional JSON config file, then NOS_ prefixed OS
ENV variables. The wallet private key is accepted in hex or base58 form.

The nosctl binary (cmd/nosctl) exercises the full flow: pin a job definition,
create a deployment, fund its vault with SOL and NOS, start it and poll its
status. Metrics can be served for Prometheus by setting the flag "--monitor"
at startup.
*/
package nosana
