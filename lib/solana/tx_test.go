package solana

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/binary"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testBlockhash is an arbitrary 32-byte value in base58 form.
var testBlockhash = base58.Encode(bytes.Repeat([]byte{9}, 32))

func TestSystemTransferInstruction(t *testing.T) {
	from := testKeypair(t).Public()
	to := MustParsePublicKey("nosXBVoaCTtYdLvKY6Csb4AC8JCdQKKAaWYtx2ZMoo7")

	ix := SystemTransfer(from, to, 10_000_000)

	assert.Equal(t, SystemProgram, ix.ProgramID)
	require.Len(t, ix.Data, 12)
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(ix.Data[0:4]))
	assert.Equal(t, uint64(10_000_000), binary.LittleEndian.Uint64(ix.Data[4:12]))

	require.Len(t, ix.Accounts, 2)
	assert.True(t, ix.Accounts[0].IsSigner)
	assert.True(t, ix.Accounts[0].IsWritable)
	assert.False(t, ix.Accounts[1].IsSigner)
	assert.True(t, ix.Accounts[1].IsWritable)
}

func TestTokenTransferInstruction(t *testing.T) {
	owner := testKeypair(t).Public()
	mint := MustParsePublicKey("nosXBVoaCTtYdLvKY6Csb4AC8JCdQKKAaWYtx2ZMoo7")

	source, err := AssociatedTokenAddress(owner, mint)
	require.NoError(t, err)

	dest, err := AssociatedTokenAddress(MustParsePublicKey("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"), mint)
	require.NoError(t, err)

	ix := TokenTransfer(source, dest, owner, 3_000_000)

	assert.Equal(t, TokenProgram, ix.ProgramID)
	require.Len(t, ix.Data, 9)
	assert.Equal(t, byte(3), ix.Data[0])
	assert.Equal(t, uint64(3_000_000), binary.LittleEndian.Uint64(ix.Data[1:9]))
}

func TestTransactionWireFormat(t *testing.T) {
	kp := testKeypair(t)
	to := MustParsePublicKey("nosXBVoaCTtYdLvKY6Csb4AC8JCdQKKAaWYtx2ZMoo7")

	tx, err := NewTransaction([]Instruction{SystemTransfer(kp.Public(), to, 42)}, kp.Public(), testBlockhash)
	require.NoError(t, err)
	require.NoError(t, tx.Sign(kp))

	wire, err := tx.Serialize()
	require.NoError(t, err)

	// one signature
	assert.Equal(t, byte(1), wire[0])
	sig := wire[1 : 1+ed25519.SignatureSize]
	msg := wire[1+ed25519.SignatureSize:]

	// the signature covers the serialized message
	assert.True(t, Verify(kp.Public(), msg, sig))

	// header: 1 required signature, 0 read-only signed, 1 read-only unsigned (the program)
	assert.Equal(t, byte(1), msg[0])
	assert.Equal(t, byte(0), msg[1])
	assert.Equal(t, byte(1), msg[2])

	// three account keys: payer, destination, system program
	assert.Equal(t, byte(3), msg[3])

	payer := msg[4 : 4+32]
	assert.Equal(t, kp.Public().Bytes(), payer)

	program := msg[4+64 : 4+96]
	assert.Equal(t, SystemProgram.Bytes(), program)

	// blockhash follows the account keys
	blockhash := msg[4+96 : 4+128]
	assert.Equal(t, MustParsePublicKey(testBlockhash).Bytes(), blockhash)

	// base64 form round-trips to the same bytes
	b64, err := tx.Base64()
	require.NoError(t, err)

	decoded, err := base64.StdEncoding.DecodeString(b64)
	require.NoError(t, err)
	assert.Equal(t, wire, decoded)
}

func TestTransactionMissingSigner(t *testing.T) {
	kp := testKeypair(t)
	other, err := NewKeypair(bytes.Repeat([]byte{5}, 32))
	require.NoError(t, err)

	tx, err := NewTransaction([]Instruction{SystemTransfer(kp.Public(), other.Public(), 1)}, kp.Public(), testBlockhash)
	require.NoError(t, err)

	assert.Error(t, tx.Sign(other))
}

func TestShortvec(t *testing.T) {
	assert.Equal(t, []byte{0}, appendShortvec(nil, 0))
	assert.Equal(t, []byte{3}, appendShortvec(nil, 3))
	assert.Equal(t, []byte{0x7f}, appendShortvec(nil, 127))
	assert.Equal(t, []byte{0x80, 0x01}, appendShortvec(nil, 128))
	assert.Equal(t, []byte{0xff, 0x01}, appendShortvec(nil, 255))
	assert.Equal(t, []byte{0x80, 0x02}, appendShortvec(nil, 256))
}
