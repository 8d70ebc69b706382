package consensus

import (
	"errors"
	"fmt"
)

// Rejection is a consensus failure carrying a stable reason code that
// callers surface to peers, RPC clients and logs.
type Rejection struct {
	code string
	msg  string
}

// NewRejection declares a sentinel rejection.
func NewRejection(code, msg string) *Rejection {
	return &Rejection{code: code, msg: msg}
}

func (r *Rejection) Error() string { return r.msg }

// RejectCode returns the stable reason code.
func (r *Rejection) RejectCode() string { return r.code }

// RejectCoder is implemented by every typed consensus error.
type RejectCoder interface {
	RejectCode() string
}

// RejectReason extracts the reason code from err, or "internal" for
// failures that are not consensus rejections (storage, cancellation).
func RejectReason(err error) string {
	if err == nil {
		return ""
	}
	var coder RejectCoder
	if errors.As(err, &coder) {
		return coder.RejectCode()
	}
	return "internal"
}

// IsRejection reports whether err is a consensus verdict rather than an operational failure.
func IsRejection(err error) bool {
	var coder RejectCoder
	return errors.As(err, &coder)
}

var (
	ErrInvalidBits             = NewRejection("invalid-bits", "invalid compact difficulty bits")
	ErrTargetAboveLimit        = NewRejection("target-above-limit", "difficulty target above network limit")
	ErrInsufficientProofOfWork = NewRejection("high-hash", "block hash does not meet difficulty target")
	ErrInvalidScale            = NewRejection("invalid-scale", "difficulty scale divisor is zero")

	ErrInvalidInitialReward = NewRejection("invalid-initial-reward", "invalid initial reward")
	ErrInvalidTailEmission  = NewRejection("invalid-tail-emission", "invalid tail emission")
	ErrInvalidDecayRange    = NewRejection("invalid-decay-range", "initial reward must exceed tail emission")
	ErrInvalidBlocksPerYear = NewRejection("invalid-blocks-per-year", "invalid blocks per year")
	ErrInvalidDecayYears    = NewRejection("invalid-decay-years", "invalid decay years")
	ErrDecayPeriodTooLong   = NewRejection("decay-period-too-long", "decay period exceeds height range")
	ErrSupplyOverflow       = NewRejection("supply-overflow", "supply calculation overflow")
)

// InvalidTimespanError rejects a retarget window whose span cannot be used.
type InvalidTimespanError struct {
	First, Last uint64
	Reason      string
}

func (e *InvalidTimespanError) Error() string {
	return fmt.Sprintf("invalid retarget timespan %d..%d: %s", e.First, e.Last, e.Reason)
}

func (e *InvalidTimespanError) RejectCode() string { return "invalid-timespan" }

// UnexpectedDifficultyChangeError rejects a bits change outside a retarget height.
type UnexpectedDifficultyChangeError struct {
	Height           uint32
	Expected, Actual uint32
}

func (e *UnexpectedDifficultyChangeError) Error() string {
	return fmt.Sprintf("unexpected difficulty change at height %d: expected bits %08x, got %08x", e.Height, e.Expected, e.Actual)
}

func (e *UnexpectedDifficultyChangeError) RejectCode() string { return "unexpected-difficulty-change" }

// InvalidDifficultyAdjustmentError rejects wrong bits at a retarget height.
type InvalidDifficultyAdjustmentError struct {
	Height           uint32
	Expected, Actual uint32
}

func (e *InvalidDifficultyAdjustmentError) Error() string {
	return fmt.Sprintf("invalid difficulty adjustment at height %d: expected bits %08x, got %08x", e.Height, e.Expected, e.Actual)
}

func (e *InvalidDifficultyAdjustmentError) RejectCode() string { return "bad-diff-adjustment" }

// InvalidTimestampError rejects a block timestamp outside its allowed window.
type InvalidTimestampError struct {
	Timestamp uint64
	Bound     uint64
	Reason    string
}

func (e *InvalidTimestampError) Error() string {
	return fmt.Sprintf("invalid timestamp %d (bound %d): %s", e.Timestamp, e.Bound, e.Reason)
}

func (e *InvalidTimestampError) RejectCode() string { return "invalid-timestamp" }
