package model

import (
	"encoding/hex"
	"fmt"
)

// HashSize is the length of every consensus digest.
const HashSize = 64

// Hash is a 64-byte digest used for block ids, txids and merkle nodes.
type Hash [HashSize]byte

// ZeroHash is the all-zero digest referenced by coinbase inputs and the genesis parent.
var ZeroHash Hash

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

func (h Hash) IsZero() bool {
	return h == ZeroHash
}

// HashFromHex parses a 128-character hex string.
func HashFromHex(s string) (Hash, error) {
	var h Hash
	raw, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("decode hash: %w", err)
	}
	if len(raw) != HashSize {
		return h, fmt.Errorf("hash must be %d bytes, got %d", HashSize, len(raw))
	}
	copy(h[:], raw)
	return h, nil
}
