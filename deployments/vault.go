package deployments

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/KeesGeerligs/nosana-deployments-go/lib/model"
	"github.com/KeesGeerligs/nosana-deployments-go/lib/solana"
)

// Vault is a handle on the on-chain account that funds a deployment's
// execution costs. The account itself is owned by the Nosana programs, not
// by this process; the SDK can only transfer into it or ask the manager to
// build withdrawals.
type Vault struct {
	pub solana.PublicKey
	c   *Client
}

// Vault returns a handle for the given vault address.
func (c *Client) Vault(address string) (*Vault, error) {
	pub, err := solana.ParsePublicKey(address)
	if err != nil {
		return nil, &model.ValidationError{Field: "vault", Msg: "must be a base58 32-byte address"}
	}

	return &Vault{pub: pub, c: c}, nil
}

// Address returns the vault's public address string.
func (v *Vault) Address() string {
	return v.pub.String()
}

// Balances of a vault in smallest units: lamports for SOL, 6-decimal units
// for NOS. All SDK-internal accounting uses smallest units; decimal values
// are converted only at the API boundary.
type Balances struct {
	Lamports uint64
	NosUnits uint64
}

// Balance asks the manager to refresh and report the vault balance, falling
// back to a best-effort direct chain read when the manager call fails. The
// fallback may report zero for an unreadable token account; never gate a
// funds-moving operation on it.
func (v *Vault) Balance(ctx context.Context) (Balances, error) {
	var wire model.VaultBalance

	err := v.c.api.Request(ctx, http.MethodPatch, "/vault/"+v.pub.String()+"/update-balance", nil, &wire)
	if err == nil {
		lamports, _ := solana.ToLamports(wire.SOL)
		units, _ := solana.ToTokenUnits(wire.NOS, solana.NosDecimals)

		return Balances{Lamports: lamports, NosUnits: units}, nil
	}

	v.c.log.Debug("manager balance refresh failed, reading chain directly",
		zap.String("vault", v.pub.String()), zap.Error(err))

	lamports, units, err := v.c.engine.AccountBalances(ctx, v.pub, v.c.mint)
	if err != nil {
		return Balances{}, err
	}

	return Balances{Lamports: lamports, NosUnits: units}, nil
}

// Topup transfers the given decimal SOL and/or NOS amounts from the wallet
// into the vault and returns the signature of the last confirmed transfer.
// Amounts are converted to smallest units up front; a zero amount skips
// that asset, and both zero is rejected before any RPC call.
func (v *Vault) Topup(ctx context.Context, sol, nos float64) (string, error) {
	if sol <= 0 && nos <= 0 {
		return "", &model.ValidationError{Field: "amount", Msg: "must top up a positive SOL or NOS amount"}
	}

	var sig string

	if sol > 0 {
		lamports, err := solana.ToLamports(sol)
		if err != nil {
			return "", err
		}

		if sig, err = v.c.engine.TransferSOL(ctx, v.c.kp, v.pub, lamports); err != nil {
			return "", err
		}
	}

	if nos > 0 {
		units, err := solana.ToTokenUnits(nos, solana.NosDecimals)
		if err != nil {
			return "", err
		}

		if sig, err = v.c.engine.TransferToken(ctx, v.c.kp, v.c.mint, v.pub, units); err != nil {
			return "", err
		}
	}

	return sig, nil
}

// RequestWithdraw asks the manager to build a withdrawal transaction for
// the given amounts; nil means all of that asset.
func (v *Vault) RequestWithdraw(ctx context.Context, sol, nos *float64) (model.WithdrawResponse, error) {
	var out model.WithdrawResponse

	req := model.WithdrawRequest{SOL: sol, NOS: nos}

	err := v.c.api.Request(ctx, http.MethodPost, "/vault/"+v.pub.String()+"/withdraw", req, &out)

	return out, err
}

// Withdraw fetches the manager-built withdrawal transaction. Signing and
// resubmitting that transaction is not supported yet, so the call always
// ends in ErrNotImplemented once the transaction has been obtained; use the
// Nosana dashboard to complete a withdrawal.
func (v *Vault) Withdraw(ctx context.Context, sol, nos *float64) error {
	out, err := v.RequestWithdraw(ctx, sol, nos)
	if err != nil {
		return err
	}

	if out.Transaction == "" {
		return fmt.Errorf("withdraw: manager returned no transaction")
	}

	return fmt.Errorf("withdraw: signing the manager-built transaction: %w", ErrNotImplemented)
}
