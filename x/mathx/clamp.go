package mathx

import "golang.org/x/exp/constraints"

// Clamp limits v to [lo, hi]. Swapped bounds are reordered.
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if hi < lo {
		lo, hi = hi, lo
	}
	return Max(lo, Min(v, hi))
}

func Min[T constraints.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}

func Max[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

// Narrow converts an unsigned value to a smaller unsigned type, saturating
// at limit instead of truncating high bits.
func Narrow[To, From constraints.Unsigned](v From, limit To) To {
	if v > From(limit) {
		return limit
	}
	return To(v)
}
