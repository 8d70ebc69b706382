package chain

import (
	"encoding/binary"
	"fmt"

	"github.com/goodnatureofminers/btpc-node/internal/model"
)

const indexEntrySize = 2*model.HashSize + 4 + 8 + 4 + 4 + 4 + 8

// IndexEntry is the per-block metadata kept beside the raw block.
type IndexEntry struct {
	Hash      model.Hash
	PrevHash  model.Hash
	Height    uint32
	Timestamp uint64
	Bits      uint32
	TxCount   uint32
	Size      uint32
	// ChainWork is the saturating sum of work integers from genesis.
	ChainWork uint64
}

func (e *IndexEntry) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, indexEntrySize)
	buf = append(buf, e.Hash[:]...)
	buf = append(buf, e.PrevHash[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, e.Height)
	buf = binary.LittleEndian.AppendUint64(buf, e.Timestamp)
	buf = binary.LittleEndian.AppendUint32(buf, e.Bits)
	buf = binary.LittleEndian.AppendUint32(buf, e.TxCount)
	buf = binary.LittleEndian.AppendUint32(buf, e.Size)
	buf = binary.LittleEndian.AppendUint64(buf, e.ChainWork)
	return buf, nil
}

func (e *IndexEntry) UnmarshalBinary(data []byte) error {
	if len(data) != indexEntrySize {
		return fmt.Errorf("%w: index entry is %d bytes", model.ErrMalformed, len(data))
	}
	off := copy(e.Hash[:], data)
	off += copy(e.PrevHash[:], data[off:])
	e.Height = binary.LittleEndian.Uint32(data[off:])
	e.Timestamp = binary.LittleEndian.Uint64(data[off+4:])
	e.Bits = binary.LittleEndian.Uint32(data[off+12:])
	e.TxCount = binary.LittleEndian.Uint32(data[off+16:])
	e.Size = binary.LittleEndian.Uint32(data[off+20:])
	e.ChainWork = binary.LittleEndian.Uint64(data[off+24:])
	return nil
}

const txLocationSize = model.HashSize + 4

// TxLocation records the block that confirmed a transaction.
type TxLocation struct {
	BlockHash model.Hash
	Height    uint32
}

func (l *TxLocation) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, txLocationSize)
	buf = append(buf, l.BlockHash[:]...)
	return binary.LittleEndian.AppendUint32(buf, l.Height), nil
}

func (l *TxLocation) UnmarshalBinary(data []byte) error {
	if len(data) != txLocationSize {
		return fmt.Errorf("%w: tx location is %d bytes", model.ErrMalformed, len(data))
	}
	copy(l.BlockHash[:], data)
	l.Height = binary.LittleEndian.Uint32(data[model.HashSize:])
	return nil
}
