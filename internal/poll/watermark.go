package poll

import (
	"strconv"
)

// CompareKeys orders two item keys. Time-based keys are epoch
// milliseconds in decimal; last-item keys are opaque but ordered, so
// both strategies reduce to the same comparison: numeric when both
// sides parse as unsigned integers, otherwise length-then-lexical,
// which preserves the order of zero-padded and monotonic decimal
// identifiers without assuming anything about wall clocks.
//
// An empty key sorts before every non-empty key, so a missing
// watermark admits everything.
func CompareKeys(a, b string) int {
	switch {
	case a == b:
		return 0
	case a == "":
		return -1
	case b == "":
		return 1
	}

	av, aerr := strconv.ParseUint(a, 10, 64)
	bv, berr := strconv.ParseUint(b, 10, 64)

	if aerr == nil && berr == nil {
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	}

	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}

	if a < b {
		return -1
	}
	return 1
}

// MaxKey returns the larger of two keys under CompareKeys.
func MaxKey(a, b string) string {
	if CompareKeys(a, b) >= 0 {
		return a
	}
	return b
}

// EpochMillis renders an epoch-millisecond value as a time-based
// item key.
func EpochMillis(ms int64) string {
	return strconv.FormatInt(ms, 10)
}
