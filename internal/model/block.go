package model

// HeaderSize is the serialized length of a BlockHeader.
const HeaderSize = 4 + HashSize + HashSize + 8 + 4 + 4

type BlockHeader struct {
	Version    uint32
	PrevHash   Hash
	MerkleRoot Hash
	Timestamp  uint64
	Bits       uint32
	Nonce      uint32
}

type Block struct {
	Header       BlockHeader
	Transactions []Transaction
}

// Coinbase returns the first transaction when it is a coinbase.
func (b *Block) Coinbase() (*Transaction, bool) {
	if len(b.Transactions) == 0 || !b.Transactions[0].IsCoinbase() {
		return nil, false
	}
	return &b.Transactions[0], true
}
