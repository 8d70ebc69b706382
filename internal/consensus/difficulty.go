package consensus

import (
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/blockchain"

	"github.com/goodnatureofminers/btpc-node/internal/model"
	"github.com/goodnatureofminers/btpc-node/pkg/safe"
)

const compactSignBit = 0x00800000

// DifficultyTarget is the 64-byte big-endian threshold a block hash must not exceed.
type DifficultyTarget [model.HashSize]byte

// TargetFromBits expands compact bits (byte length exponent, 3-byte mantissa)
// into a full target. Zero, negative and wider-than-512-bit encodings are invalid.
func TargetFromBits(bits uint32) (DifficultyTarget, error) {
	var t DifficultyTarget
	if bits&compactSignBit != 0 {
		return t, ErrInvalidBits
	}
	n := blockchain.CompactToBig(bits)
	if n.Sign() <= 0 || n.BitLen() > model.HashSize*8 {
		return t, ErrInvalidBits
	}
	n.FillBytes(t[:])
	return t, nil
}

// TargetFromBig converts an integer in [1, 2^512) to a target.
func TargetFromBig(n *big.Int) (DifficultyTarget, error) {
	var t DifficultyTarget
	if n.Sign() <= 0 || n.BitLen() > model.HashSize*8 {
		return t, ErrInvalidBits
	}
	n.FillBytes(t[:])
	return t, nil
}

// Bits re-encodes the target in compact form. Precision below the three
// mantissa bytes is dropped.
func (t DifficultyTarget) Bits() uint32 {
	return blockchain.BigToCompact(t.Big())
}

func (t DifficultyTarget) Big() *big.Int {
	return new(big.Int).SetBytes(t[:])
}

func (t DifficultyTarget) IsZero() bool {
	return t == DifficultyTarget{}
}

func (t DifficultyTarget) String() string {
	return fmt.Sprintf("%x", t[:])
}

// WorkInteger is the integer measure of how hard a target is. A later first
// non-zero byte dominates; at equal positions a smaller byte means more work.
// An all-zero target yields 1.
func WorkInteger(t DifficultyTarget) uint64 {
	for i, b := range t {
		if b != 0 {
			return uint64(i)<<8 + (256 - uint64(b))
		}
	}
	return 1
}

// ScaleTarget returns target * num / den clamped to [1, limit].
func ScaleTarget(target DifficultyTarget, num, den uint64, limit DifficultyTarget) (DifficultyTarget, error) {
	if den == 0 {
		return DifficultyTarget{}, ErrInvalidScale
	}
	n := target.Big()
	n.Mul(n, new(big.Int).SetUint64(num))
	n.Quo(n, new(big.Int).SetUint64(den))

	if n.Sign() == 0 {
		n.SetInt64(1)
	}
	if n.Cmp(limit.Big()) > 0 {
		return limit, nil
	}
	return TargetFromBig(n)
}

// RetargetWindow carries what a retarget needs from the chain: the bits of the
// parent and the timestamps bounding the last RetargetInterval blocks.
type RetargetWindow struct {
	ParentBits     uint32
	FirstTimestamp uint64
	LastTimestamp  uint64
}

// CalculateAdjustment computes the compact bits a block at a retarget height must carry.
func CalculateAdjustment(w RetargetWindow, p *Params) (uint32, error) {
	if w.LastTimestamp < w.FirstTimestamp {
		return 0, &InvalidTimespanError{First: w.FirstTimestamp, Last: w.LastTimestamp, Reason: "window ends before it starts"}
	}
	actual := w.LastTimestamp - w.FirstTimestamp
	if actual == 0 {
		return 0, &InvalidTimespanError{First: w.FirstTimestamp, Last: w.LastTimestamp, Reason: "zero timespan"}
	}

	targetSpan := p.TargetTimespan()
	ceiling, err := safe.MulUint64(targetSpan, p.MaxTimespanMultiple)
	if err != nil {
		return 0, &InvalidTimespanError{First: w.FirstTimestamp, Last: w.LastTimestamp, Reason: err.Error()}
	}
	if actual > ceiling {
		return 0, &InvalidTimespanError{First: w.FirstTimestamp, Last: w.LastTimestamp, Reason: "timespan exceeds sanity bound"}
	}

	minSpan := targetSpan / p.MaxAdjustmentFactor
	maxSpan, err := safe.MulUint64(targetSpan, p.MaxAdjustmentFactor)
	if err != nil {
		return 0, &InvalidTimespanError{First: w.FirstTimestamp, Last: w.LastTimestamp, Reason: err.Error()}
	}
	switch {
	case actual < minSpan:
		actual = minSpan
	case actual > maxSpan:
		actual = maxSpan
	}

	old, err := TargetFromBits(w.ParentBits)
	if err != nil {
		return 0, err
	}
	next, err := ScaleTarget(old, actual, targetSpan, p.PowLimit())
	if err != nil {
		return 0, err
	}
	return next.Bits(), nil
}

// ExpectedBits returns the bits a block at height must carry. Off a retarget
// height that is exactly the parent's bits.
func ExpectedBits(height uint32, w RetargetWindow, p *Params) (uint32, error) {
	if !p.IsRetargetHeight(height) {
		return w.ParentBits, nil
	}
	return CalculateAdjustment(w, p)
}

// CheckDifficulty compares the bits of a block with the expected value.
func CheckDifficulty(height, bits, expected uint32, p *Params) error {
	if bits == expected {
		return nil
	}
	if p.IsRetargetHeight(height) {
		return &InvalidDifficultyAdjustmentError{Height: height, Expected: expected, Actual: bits}
	}
	return &UnexpectedDifficultyChangeError{Height: height, Expected: expected, Actual: bits}
}
