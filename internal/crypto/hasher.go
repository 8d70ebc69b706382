// Package crypto adapts the hash and signature primitives consumed by consensus.
package crypto

import (
	"crypto/sha512"

	"github.com/goodnatureofminers/btpc-node/internal/model"
)

// Hasher computes consensus digests.
type Hasher interface {
	Sum(data []byte) model.Hash
}

// DoubleSHA512 hashes data twice with SHA-512.
type DoubleSHA512 struct{}

func (DoubleSHA512) Sum(data []byte) model.Hash {
	first := sha512.Sum512(data)
	return sha512.Sum512(first[:])
}

// TxID identifies a transaction by the digest of its wire encoding.
func TxID(h Hasher, tx *model.Transaction) model.Hash {
	return h.Sum(tx.Bytes())
}

// HeaderHash is the block id and the value compared against the difficulty target.
func HeaderHash(h Hasher, header *model.BlockHeader) model.Hash {
	return h.Sum(header.Bytes())
}

// SigHash is the message signed by every input of tx on the network identified by forkID.
func SigHash(h Hasher, tx *model.Transaction, forkID uint8) model.Hash {
	return h.Sum(tx.SigningPreimage(forkID))
}

// MerkleRoot folds txids pairwise, pairing an odd trailing node with itself.
// A single leaf is hashed once more so the root never equals a txid.
func MerkleRoot(h Hasher, txids []model.Hash) model.Hash {
	if len(txids) == 0 {
		return model.ZeroHash
	}
	if len(txids) == 1 {
		return h.Sum(txids[0][:])
	}
	level := append([]model.Hash(nil), txids...)
	var pair [2 * model.HashSize]byte
	for len(level) > 1 {
		next := make([]model.Hash, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			right := level[i]
			if i+1 < len(level) {
				right = level[i+1]
			}
			copy(pair[:model.HashSize], level[i][:])
			copy(pair[model.HashSize:], right[:])
			next = append(next, h.Sum(pair[:]))
		}
		level = next
	}
	return level[0]
}
