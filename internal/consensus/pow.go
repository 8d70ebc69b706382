package consensus

import (
	"crypto/subtle"

	"github.com/goodnatureofminers/btpc-node/internal/model"
)

// MeetsTarget reports whether hash <= target, both read as big-endian
// integers. Every byte is visited and no branch depends on the data, so the
// running time does not reveal where the operands first differ.
func MeetsTarget(hash model.Hash, target DifficultyTarget) bool {
	// target - hash, least significant byte first; a final borrow means hash > target.
	var borrow uint32
	for i := model.HashSize - 1; i >= 0; i-- {
		d := uint32(target[i]) - uint32(hash[i]) - borrow
		borrow = d >> 31
	}
	return subtle.ConstantTimeEq(int32(borrow), 0) == 1
}

// CheckProofOfWork validates bits against the network limit and the header hash against bits.
func CheckProofOfWork(hash model.Hash, bits uint32, limit DifficultyTarget) error {
	target, err := TargetFromBits(bits)
	if err != nil {
		return err
	}
	if target.Big().Cmp(limit.Big()) > 0 {
		return ErrTargetAboveLimit
	}
	if !MeetsTarget(hash, target) {
		return ErrInsufficientProofOfWork
	}
	return nil
}
