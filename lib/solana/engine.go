package solana

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// FundsError reports an insufficient source balance detected client-side.
// It is raised before any transaction is submitted.
type FundsError struct {
	Asset     string // "SOL" or the token symbol
	Available uint64 // smallest units
	Required  uint64 // smallest units
}

func (e *FundsError) Error() string {
	return fmt.Sprintf("insufficient %s balance: have %d, need %d (smallest units)", e.Asset, e.Available, e.Required)
}

// TransferError wraps failures of on-chain submission or confirmation.
type TransferError struct {
	Op  string
	Sig string // set when the transaction was submitted
	Err error
}

func (e *TransferError) Error() string {
	if e.Sig != "" {
		return fmt.Sprintf("%s: tx %s: %v", e.Op, e.Sig, e.Err)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// Engine builds, signs, submits and confirms transfer transactions. It does
// not resubmit on failure; retrying is the caller's decision.
type Engine struct {
	rpc *Client
	log *zap.Logger
}

// NewEngine returns a transfer engine on top of an RPC client.
func NewEngine(rpc *Client, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}

	return &Engine{rpc: rpc, log: log}
}

// RPC exposes the underlying client for read-only queries.
func (e *Engine) RPC() *Client {
	return e.rpc
}

// TransferSOL moves lamports from the keypair's account to another account
// and waits for confirmation. The source balance is checked before anything
// is submitted.
func (e *Engine) TransferSOL(ctx context.Context, from *Keypair, to PublicKey, lamports uint64) (string, error) {
	bal, err := e.rpc.GetBalance(ctx, from.Public())
	if err != nil {
		return "", &TransferError{Op: "transfer SOL", Err: err}
	}

	if bal < lamports {
		return "", &FundsError{Asset: "SOL", Available: bal, Required: lamports}
	}

	ix := SystemTransfer(from.Public(), to, lamports)

	sig, err := e.submit(ctx, from, ix)
	if err != nil {
		return "", err
	}

	e.log.Info("SOL transfer confirmed",
		zap.Uint64("lamports", lamports),
		zap.String("from", from.Public().String()),
		zap.String("to", to.String()),
		zap.String("signature", sig))

	return sig, nil
}

// TransferToken moves amount smallest units of mint from the keypair's
// associated token account to the destination owner's associated token
// account.
func (e *Engine) TransferToken(ctx context.Context, from *Keypair, mint, toOwner PublicKey, amount uint64) (string, error) {
	source, err := AssociatedTokenAddress(from.Public(), mint)
	if err != nil {
		return "", &TransferError{Op: "transfer token", Err: err}
	}

	dest, err := AssociatedTokenAddress(toOwner, mint)
	if err != nil {
		return "", &TransferError{Op: "transfer token", Err: err}
	}

	bal, err := e.rpc.GetTokenAccountBalance(ctx, source)
	if err != nil {
		return "", &TransferError{Op: "transfer token", Err: err}
	}

	if bal < amount {
		return "", &FundsError{Asset: "token", Available: bal, Required: amount}
	}

	ix := TokenTransfer(source, dest, from.Public(), amount)

	sig, err := e.submit(ctx, from, ix)
	if err != nil {
		return "", err
	}

	e.log.Info("token transfer confirmed",
		zap.Uint64("amount", amount),
		zap.String("mint", mint.String()),
		zap.String("to", toOwner.String()),
		zap.String("signature", sig))

	return sig, nil
}

// submit anchors the instruction to a recent blockhash, signs, sends and
// waits for confirmation.
func (e *Engine) submit(ctx context.Context, payer *Keypair, ix Instruction) (string, error) {
	blockhash, err := e.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		return "", &TransferError{Op: "get blockhash", Err: err}
	}

	tx, err := NewTransaction([]Instruction{ix}, payer.Public(), blockhash)
	if err != nil {
		return "", &TransferError{Op: "build transaction", Err: err}
	}

	if err := tx.Sign(payer); err != nil {
		return "", &TransferError{Op: "sign transaction", Err: err}
	}

	encoded, err := tx.Base64()
	if err != nil {
		return "", &TransferError{Op: "serialize transaction", Err: err}
	}

	sig, err := e.rpc.SendTransaction(ctx, encoded)
	if err != nil {
		return "", &TransferError{Op: "send transaction", Err: err}
	}

	if err := e.rpc.WaitForConfirmation(ctx, sig); err != nil {
		return "", &TransferError{Op: "confirm transaction", Sig: sig, Err: err}
	}

	return sig, nil
}

// AccountBalances reads the lamport and token balances of an account. It is
// a best-effort read: a failed token query reports zero instead of an error,
// as token accounts may simply not exist yet. Never use it to gate a
// funds-moving operation.
func (e *Engine) AccountBalances(ctx context.Context, account, mint PublicKey) (lamports, tokenUnits uint64, err error) {
	lamports, err = e.rpc.GetBalance(ctx, account)
	if err != nil {
		return 0, 0, err
	}

	ata, err := AssociatedTokenAddress(account, mint)
	if err != nil {
		return lamports, 0, nil
	}

	tokenUnits, err = e.rpc.GetTokenAccountBalance(ctx, ata)
	if err != nil {
		e.log.Debug("token balance read failed, reporting zero",
			zap.String("account", account.String()), zap.Error(err))

		return lamports, 0, nil
	}

	return lamports, tokenUnits, nil
}
