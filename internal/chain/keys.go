package chain

import (
	"encoding/binary"

	"github.com/goodnatureofminers/btpc-node/internal/model"
)

// Key layout. Heights are big-endian so iteration follows chain order.
var (
	prefixBlock   = []byte("b/")
	prefixIndex   = []byte("i/")
	prefixHeight  = []byte("n/")
	prefixTxIndex = []byte("t/")
	prefixUTXO    = []byte("u/")
	keyTip        = []byte("m/tip")
)

func hashKey(prefix []byte, h model.Hash) []byte {
	k := make([]byte, 0, len(prefix)+model.HashSize)
	k = append(k, prefix...)
	return append(k, h[:]...)
}

func blockKey(h model.Hash) []byte   { return hashKey(prefixBlock, h) }
func indexKey(h model.Hash) []byte   { return hashKey(prefixIndex, h) }
func txIndexKey(h model.Hash) []byte { return hashKey(prefixTxIndex, h) }

func heightKey(height uint32) []byte {
	k := make([]byte, len(prefixHeight)+4)
	copy(k, prefixHeight)
	binary.BigEndian.PutUint32(k[len(prefixHeight):], height)
	return k
}

func utxoKey(op model.OutPoint) []byte {
	k := make([]byte, 0, len(prefixUTXO)+model.HashSize+4)
	k = append(k, prefixUTXO...)
	k = append(k, op.TxID[:]...)
	return binary.BigEndian.AppendUint32(k, op.Vout)
}

func outPointFromKey(k []byte) (model.OutPoint, bool) {
	var op model.OutPoint
	if len(k) != len(prefixUTXO)+model.HashSize+4 {
		return op, false
	}
	copy(op.TxID[:], k[len(prefixUTXO):])
	op.Vout = binary.BigEndian.Uint32(k[len(prefixUTXO)+model.HashSize:])
	return op, true
}
