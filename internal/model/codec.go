package model

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/wire"
)

// protocolVersion is passed to the btcd varint helpers, which ignore it.
const protocolVersion = 0

// ErrMalformed is wrapped by every decoding failure.
var ErrMalformed = errors.New("malformed encoding")

// Serialize writes the 148-byte header encoding.
func (h *BlockHeader) Serialize(w io.Writer) error {
	var buf [HeaderSize]byte
	h.put(buf[:])
	_, err := w.Write(buf[:])
	return err
}

// Bytes returns the header encoding that is hashed for proof of work.
func (h *BlockHeader) Bytes() []byte {
	buf := make([]byte, HeaderSize)
	h.put(buf)
	return buf
}

func (h *BlockHeader) put(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], h.Version)
	copy(buf[4:68], h.PrevHash[:])
	copy(buf[68:132], h.MerkleRoot[:])
	binary.LittleEndian.PutUint64(buf[132:140], h.Timestamp)
	binary.LittleEndian.PutUint32(buf[140:144], h.Bits)
	binary.LittleEndian.PutUint32(buf[144:148], h.Nonce)
}

// DecodeHeader parses exactly one header.
func DecodeHeader(b []byte) (BlockHeader, error) {
	var h BlockHeader
	if len(b) != HeaderSize {
		return h, fmt.Errorf("%w: header is %d bytes, want %d", ErrMalformed, len(b), HeaderSize)
	}
	h.Version = binary.LittleEndian.Uint32(b[0:4])
	copy(h.PrevHash[:], b[4:68])
	copy(h.MerkleRoot[:], b[68:132])
	h.Timestamp = binary.LittleEndian.Uint64(b[132:140])
	h.Bits = binary.LittleEndian.Uint32(b[140:144])
	h.Nonce = binary.LittleEndian.Uint32(b[144:148])
	return h, nil
}

// Serialize writes the wire encoding, which is also the txid pre-image.
func (tx *Transaction) Serialize(w io.Writer) error {
	return encodeTransaction(w, tx, tx.ForkID, true)
}

// Bytes returns the wire encoding.
func (tx *Transaction) Bytes() []byte {
	var buf bytes.Buffer
	buf.Grow(tx.SerializeSize())
	_ = encodeTransaction(&buf, tx, tx.ForkID, true)
	return buf.Bytes()
}

// SigningPreimage returns the bytes every input signature commits to: the wire
// layout with all script_sig fields emptied and forkID as the trailing byte.
// Validators pass their own network's fork id, not tx.ForkID.
func (tx *Transaction) SigningPreimage(forkID uint8) []byte {
	var buf bytes.Buffer
	_ = encodeTransaction(&buf, tx, forkID, false)
	return buf.Bytes()
}

// SerializeSize returns the length of the wire encoding.
func (tx *Transaction) SerializeSize() int {
	n := 4 + wire.VarIntSerializeSize(uint64(len(tx.Inputs)))
	for _, in := range tx.Inputs {
		n += HashSize + 4 + wire.VarIntSerializeSize(uint64(len(in.ScriptSig))) + len(in.ScriptSig) + 4
	}
	n += wire.VarIntSerializeSize(uint64(len(tx.Outputs)))
	for _, out := range tx.Outputs {
		n += 8 + wire.VarIntSerializeSize(uint64(len(out.ScriptPubKey))) + len(out.ScriptPubKey)
	}
	return n + 4 + 1
}

// encodeTransaction is the only transaction encoder. The wire form and the
// signing pre-image differ solely in withScripts and the fork id argument.
func encodeTransaction(w io.Writer, tx *Transaction, forkID uint8, withScripts bool) error {
	var scratch [8]byte

	binary.LittleEndian.PutUint32(scratch[:4], tx.Version)
	if _, err := w.Write(scratch[:4]); err != nil {
		return err
	}

	if err := wire.WriteVarInt(w, protocolVersion, uint64(len(tx.Inputs))); err != nil {
		return err
	}
	for i := range tx.Inputs {
		in := &tx.Inputs[i]
		if _, err := w.Write(in.PreviousOutput.TxID[:]); err != nil {
			return err
		}
		binary.LittleEndian.PutUint32(scratch[:4], in.PreviousOutput.Vout)
		if _, err := w.Write(scratch[:4]); err != nil {
			return err
		}
		script := in.ScriptSig
		if !withScripts {
			script = nil
		}
		if err := wire.WriteVarBytes(w, protocolVersion, script); err != nil {
			return err
		}
		binary.LittleEndian.PutUint32(scratch[:4], in.Sequence)
		if _, err := w.Write(scratch[:4]); err != nil {
			return err
		}
	}

	if err := wire.WriteVarInt(w, protocolVersion, uint64(len(tx.Outputs))); err != nil {
		return err
	}
	for i := range tx.Outputs {
		out := &tx.Outputs[i]
		binary.LittleEndian.PutUint64(scratch[:8], out.Value)
		if _, err := w.Write(scratch[:8]); err != nil {
			return err
		}
		if err := wire.WriteVarBytes(w, protocolVersion, out.ScriptPubKey); err != nil {
			return err
		}
	}

	binary.LittleEndian.PutUint32(scratch[:4], tx.LockTime)
	if _, err := w.Write(scratch[:4]); err != nil {
		return err
	}
	scratch[0] = forkID
	_, err := w.Write(scratch[:1])
	return err
}

// DecodeTransaction parses one transaction and rejects trailing bytes.
func DecodeTransaction(b []byte) (*Transaction, error) {
	r := bytes.NewReader(b)
	tx, err := readTransaction(r)
	if err != nil {
		return nil, err
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes after transaction", ErrMalformed, r.Len())
	}
	return tx, nil
}

func readTransaction(r *bytes.Reader) (*Transaction, error) {
	tx := &Transaction{}
	var scratch [8]byte

	if _, err := io.ReadFull(r, scratch[:4]); err != nil {
		return nil, malformed("version", err)
	}
	tx.Version = binary.LittleEndian.Uint32(scratch[:4])

	inputCount, err := wire.ReadVarInt(r, protocolVersion)
	if err != nil {
		return nil, malformed("input count", err)
	}
	if inputCount > MaxTxInputs {
		return nil, fmt.Errorf("%w: %d inputs exceeds %d", ErrMalformed, inputCount, MaxTxInputs)
	}
	tx.Inputs = make([]TxInput, inputCount)
	for i := range tx.Inputs {
		in := &tx.Inputs[i]
		if _, err := io.ReadFull(r, in.PreviousOutput.TxID[:]); err != nil {
			return nil, malformed("input txid", err)
		}
		if _, err := io.ReadFull(r, scratch[:4]); err != nil {
			return nil, malformed("input vout", err)
		}
		in.PreviousOutput.Vout = binary.LittleEndian.Uint32(scratch[:4])
		if in.ScriptSig, err = wire.ReadVarBytes(r, protocolVersion, MaxTxSize, "script_sig"); err != nil {
			return nil, malformed("script_sig", err)
		}
		if _, err := io.ReadFull(r, scratch[:4]); err != nil {
			return nil, malformed("input sequence", err)
		}
		in.Sequence = binary.LittleEndian.Uint32(scratch[:4])
	}

	outputCount, err := wire.ReadVarInt(r, protocolVersion)
	if err != nil {
		return nil, malformed("output count", err)
	}
	if outputCount > MaxTxOutputs {
		return nil, fmt.Errorf("%w: %d outputs exceeds %d", ErrMalformed, outputCount, MaxTxOutputs)
	}
	tx.Outputs = make([]TxOutput, outputCount)
	for i := range tx.Outputs {
		out := &tx.Outputs[i]
		if _, err := io.ReadFull(r, scratch[:8]); err != nil {
			return nil, malformed("output value", err)
		}
		out.Value = binary.LittleEndian.Uint64(scratch[:8])
		if out.ScriptPubKey, err = wire.ReadVarBytes(r, protocolVersion, MaxTxSize, "script_pubkey"); err != nil {
			return nil, malformed("script_pubkey", err)
		}
	}

	if _, err := io.ReadFull(r, scratch[:4]); err != nil {
		return nil, malformed("lock_time", err)
	}
	tx.LockTime = binary.LittleEndian.Uint32(scratch[:4])
	if tx.ForkID, err = r.ReadByte(); err != nil {
		return nil, malformed("fork_id", err)
	}
	return tx, nil
}

// Serialize writes the header followed by the counted transaction list.
func (b *Block) Serialize(w io.Writer) error {
	if err := b.Header.Serialize(w); err != nil {
		return err
	}
	if err := wire.WriteVarInt(w, protocolVersion, uint64(len(b.Transactions))); err != nil {
		return err
	}
	for i := range b.Transactions {
		if err := b.Transactions[i].Serialize(w); err != nil {
			return err
		}
	}
	return nil
}

// Bytes returns the block encoding.
func (b *Block) Bytes() []byte {
	var buf bytes.Buffer
	buf.Grow(b.SerializeSize())
	_ = b.Serialize(&buf)
	return buf.Bytes()
}

// SerializeSize returns the length of the block encoding.
func (b *Block) SerializeSize() int {
	n := HeaderSize + wire.VarIntSerializeSize(uint64(len(b.Transactions)))
	for i := range b.Transactions {
		n += b.Transactions[i].SerializeSize()
	}
	return n
}

// DecodeBlock parses one block and rejects trailing bytes.
func DecodeBlock(data []byte) (*Block, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: block shorter than header", ErrMalformed)
	}
	header, err := DecodeHeader(data[:HeaderSize])
	if err != nil {
		return nil, err
	}
	r := bytes.NewReader(data[HeaderSize:])
	count, err := wire.ReadVarInt(r, protocolVersion)
	if err != nil {
		return nil, malformed("transaction count", err)
	}
	if count > maxBlockTransactions {
		return nil, fmt.Errorf("%w: %d transactions exceeds %d", ErrMalformed, count, maxBlockTransactions)
	}
	block := &Block{Header: header, Transactions: make([]Transaction, 0, count)}
	for i := uint64(0); i < count; i++ {
		tx, err := readTransaction(r)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		block.Transactions = append(block.Transactions, *tx)
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes after block", ErrMalformed, r.Len())
	}
	return block, nil
}

// MarshalBinary encodes the UTXO payload; the outpoint lives in the storage key.
func (u *UTXO) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	var scratch [8]byte
	binary.LittleEndian.PutUint64(scratch[:], u.Output.Value)
	buf.Write(scratch[:8])
	binary.LittleEndian.PutUint32(scratch[:4], u.Height)
	buf.Write(scratch[:4])
	var flags byte
	if u.IsCoinbase {
		flags = 1
	}
	buf.WriteByte(flags)
	if err := wire.WriteVarBytes(&buf, protocolVersion, u.Output.ScriptPubKey); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes a payload produced by MarshalBinary.
func (u *UTXO) UnmarshalBinary(data []byte) error {
	r := bytes.NewReader(data)
	var scratch [8]byte
	if _, err := io.ReadFull(r, scratch[:8]); err != nil {
		return malformed("utxo value", err)
	}
	u.Output.Value = binary.LittleEndian.Uint64(scratch[:8])
	if _, err := io.ReadFull(r, scratch[:4]); err != nil {
		return malformed("utxo height", err)
	}
	u.Height = binary.LittleEndian.Uint32(scratch[:4])
	flags, err := r.ReadByte()
	if err != nil {
		return malformed("utxo flags", err)
	}
	u.IsCoinbase = flags&1 == 1
	if u.Output.ScriptPubKey, err = wire.ReadVarBytes(r, protocolVersion, MaxTxSize, "script_pubkey"); err != nil {
		return malformed("utxo script", err)
	}
	if r.Len() != 0 {
		return fmt.Errorf("%w: trailing bytes after utxo", ErrMalformed)
	}
	return nil
}

func malformed(field string, err error) error {
	return fmt.Errorf("%w: read %s: %v", ErrMalformed, field, err)
}
