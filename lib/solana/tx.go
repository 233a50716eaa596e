package solana

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
)

// Instruction op codes on the wire.
const (
	systemTransferIndex = 2 // SystemProgram transfer, u32 little-endian
	tokenTransferOp     = 3 // SPL token transfer, single byte
)

// ErrUnknownAccount is returned when an instruction references an account
// that was not collected into the message.
var ErrUnknownAccount = errors.New("instruction references an account missing from the message")

// AccountMeta describes how an instruction uses an account.
type AccountMeta struct {
	PublicKey  PublicKey
	IsSigner   bool
	IsWritable bool
}

// Instruction is a single program invocation within a transaction.
type Instruction struct {
	ProgramID PublicKey
	Accounts  []AccountMeta
	Data      []byte
}

// SystemTransfer builds a native currency transfer of lamports from one
// account to another.
func SystemTransfer(from, to PublicKey, lamports uint64) Instruction {
	data := make([]byte, 12)
	binary.LittleEndian.PutUint32(data[0:4], systemTransferIndex)
	binary.LittleEndian.PutUint64(data[4:12], lamports)

	return Instruction{
		ProgramID: SystemProgram,
		Accounts: []AccountMeta{
			{PublicKey: from, IsSigner: true, IsWritable: true},
			{PublicKey: to, IsWritable: true},
		},
		Data: data,
	}
}

// TokenTransfer builds an SPL token transfer of amount (in the token's
// smallest units) between two token accounts, authorized by owner.
func TokenTransfer(source, dest, owner PublicKey, amount uint64) Instruction {
	data := make([]byte, 9)
	data[0] = tokenTransferOp
	binary.LittleEndian.PutUint64(data[1:9], amount)

	return Instruction{
		ProgramID: TokenProgram,
		Accounts: []AccountMeta{
			{PublicKey: source, IsWritable: true},
			{PublicKey: dest, IsWritable: true},
			{PublicKey: owner, IsSigner: true},
		},
		Data: data,
	}
}

// Transaction is a legacy format Solana transaction: a compact array of
// signatures followed by the serialized message they sign.
type Transaction struct {
	payer      PublicKey
	blockhash  [32]byte
	accounts   []AccountMeta // deduplicated, in message order
	instrs     []Instruction
	signatures [][]byte
}

// NewTransaction assembles a transaction for the given instructions, fee
// payer and recent blockhash (base58 form, as returned by the RPC node).
func NewTransaction(instrs []Instruction, payer PublicKey, blockhash string) (*Transaction, error) {
	bh, err := ParsePublicKey(blockhash)
	if err != nil {
		return nil, fmt.Errorf("invalid blockhash: %w", err)
	}

	tx := &Transaction{payer: payer, blockhash: bh, instrs: instrs}
	tx.collectAccounts()

	return tx, nil
}

// collectAccounts merges every account referenced by the instructions,
// including program ids, and orders them the way the message format
// requires: fee payer first, then writable signers, read-only signers,
// writable non-signers and read-only non-signers.
func (tx *Transaction) collectAccounts() {
	merged := []AccountMeta{{PublicKey: tx.payer, IsSigner: true, IsWritable: true}}

	add := func(m AccountMeta) {
		for i := range merged {
			if merged[i].PublicKey == m.PublicKey {
				merged[i].IsSigner = merged[i].IsSigner || m.IsSigner
				merged[i].IsWritable = merged[i].IsWritable || m.IsWritable

				return
			}
		}

		merged = append(merged, m)
	}

	for _, in := range tx.instrs {
		for _, m := range in.Accounts {
			add(m)
		}

		add(AccountMeta{PublicKey: in.ProgramID})
	}

	rank := func(m AccountMeta) int {
		switch {
		case m.PublicKey == tx.payer:
			return 0
		case m.IsSigner && m.IsWritable:
			return 1
		case m.IsSigner:
			return 2
		case m.IsWritable:
			return 3
		default:
			return 4
		}
	}

	ordered := make([]AccountMeta, 0, len(merged))
	for r := 0; r <= 4; r++ {
		for _, m := range merged {
			if rank(m) == r {
				ordered = append(ordered, m)
			}
		}
	}

	tx.accounts = ordered
}

func (tx *Transaction) accountIndex(pk PublicKey) (uint8, error) {
	for i, m := range tx.accounts {
		if m.PublicKey == pk {
			return uint8(i), nil
		}
	}

	return 0, fmt.Errorf("%w: %s", ErrUnknownAccount, pk)
}

// Message serializes the message part of the transaction: header, account
// keys, recent blockhash and compiled instructions.
func (tx *Transaction) Message() ([]byte, error) {
	var numSigners, numROSigned, numROUnsigned byte

	for _, m := range tx.accounts {
		switch {
		case m.IsSigner && m.IsWritable:
			numSigners++
		case m.IsSigner:
			numSigners++
			numROSigned++
		case !m.IsWritable:
			numROUnsigned++
		}
	}

	msg := []byte{numSigners, numROSigned, numROUnsigned}

	msg = appendShortvec(msg, len(tx.accounts))
	for _, m := range tx.accounts {
		msg = append(msg, m.PublicKey[:]...)
	}

	msg = append(msg, tx.blockhash[:]...)

	msg = appendShortvec(msg, len(tx.instrs))

	for _, in := range tx.instrs {
		progIdx, err := tx.accountIndex(in.ProgramID)
		if err != nil {
			return nil, err
		}

		msg = append(msg, progIdx)

		msg = appendShortvec(msg, len(in.Accounts))

		for _, m := range in.Accounts {
			idx, err := tx.accountIndex(m.PublicKey)
			if err != nil {
				return nil, err
			}

			msg = append(msg, idx)
		}

		msg = appendShortvec(msg, len(in.Data))
		msg = append(msg, in.Data...)
	}

	return msg, nil
}

// Sign signs the serialized message with each keypair. Signatures are stored
// in the order of the message's signer accounts; every signer must be
// covered before Serialize is called.
func (tx *Transaction) Sign(keys ...*Keypair) error {
	msg, err := tx.Message()
	if err != nil {
		return err
	}

	var signers []PublicKey

	for _, m := range tx.accounts {
		if m.IsSigner {
			signers = append(signers, m.PublicKey)
		}
	}

	tx.signatures = make([][]byte, len(signers))

	for i, s := range signers {
		for _, kp := range keys {
			if kp.Public() == s {
				tx.signatures[i] = kp.Sign(msg)
			}
		}

		if tx.signatures[i] == nil {
			return fmt.Errorf("missing keypair for signer %s", s)
		}
	}

	return nil
}

// Serialize returns the signed wire format of the transaction.
func (tx *Transaction) Serialize() ([]byte, error) {
	msg, err := tx.Message()
	if err != nil {
		return nil, err
	}

	out := appendShortvec(nil, len(tx.signatures))
	for _, sig := range tx.signatures {
		out = append(out, sig...)
	}

	return append(out, msg...), nil
}

// Base64 returns the signed transaction encoded for RPC submission.
func (tx *Transaction) Base64() (string, error) {
	b, err := tx.Serialize()
	if err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(b), nil
}

// appendShortvec appends n in the compact-u16 encoding used for message
// arrays: 7 bits per byte, high bit set while more bytes follow.
func appendShortvec(b []byte, n int) []byte {
	v := uint16(n)

	for {
		if v < 0x80 {
			return append(b, byte(v))
		}

		b = append(b, byte(v&0x7f)|0x80)
		v >>= 7
	}
}
