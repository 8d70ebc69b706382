package consensus

import (
	"slices"

	"github.com/goodnatureofminers/btpc-node/pkg/safe"
)

// MedianTimePast is the median of the given ancestor timestamps, which must
// hold at most MedianTimeSpan entries. An empty slice yields 0.
func MedianTimePast(timestamps []uint64) uint64 {
	if len(timestamps) == 0 {
		return 0
	}
	sorted := slices.Clone(timestamps)
	slices.Sort(sorted)
	return sorted[len(sorted)/2]
}

// CheckTimestamp enforces mtp < timestamp <= now + MaxFutureBlockTime.
func CheckTimestamp(timestamp, mtp, now uint64, p *Params) error {
	if timestamp <= mtp {
		return &InvalidTimestampError{Timestamp: timestamp, Bound: mtp, Reason: "not after median time past"}
	}
	limit, err := safe.AddUint64(now, p.MaxFutureBlockTime)
	if err != nil {
		// local clock near the end of the range; nothing can be too far ahead
		return nil
	}
	if timestamp > limit {
		return &InvalidTimestampError{Timestamp: timestamp, Bound: limit, Reason: "too far in the future"}
	}
	return nil
}
