package safe

import "fmt"

type integer interface {
	~int | ~int32 | ~int64 | ~uint | ~uint16 | ~uint32 | ~uint64
}

// Uint32 narrows v to uint32. Negative values wrap ErrUnderflow, values
// above math.MaxUint32 wrap ErrOverflow.
func Uint32[T integer](v T) (uint32, error) {
	if v < 0 {
		return 0, fmt.Errorf("%d to uint32: %w", v, ErrUnderflow)
	}
	if uint64(v) > 1<<32-1 {
		return 0, fmt.Errorf("%d to uint32: %w", v, ErrOverflow)
	}
	return uint32(v), nil
}

// Uint64 converts v to uint64, rejecting negatives.
func Uint64[T integer](v T) (uint64, error) {
	if v < 0 {
		return 0, fmt.Errorf("%d to uint64: %w", v, ErrUnderflow)
	}
	return uint64(v), nil
}
