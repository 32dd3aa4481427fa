package sim

import (
	"fmt"
	"math"
)

// intlog2 returns floor(log2(n)) for n >= 1. Panics for n <= 0: callers only
// ever invoke it on a positive max-of-counters value, so a non-positive
// input is a programmer error, not a data error.
func intlog2(n int64) int {
	if n <= 0 {
		panic(fmt.Sprintf("intlog2: input must be a positive integer, got %d", n))
	}
	result := 0
	for n > 1 {
		n /= 2
		result++
	}
	return result
}

// bitsUsed returns log2(n)+1 for n > 0, else 0. The logarithm is not floored,
// so the result is the real-valued bit count the adaptive-memory ideal shares
// are built from (bitsUsed(7) is about 3.81, not 3).
func bitsUsed(n float64) float64 {
	if n <= 0 {
		return 0
	}
	return math.Log2(n) + 1
}

// relu clamps x at zero from below.
func relu(x int) int {
	if x < 0 {
		return 0
	}
	return x
}

// reluF is the float64 counterpart of relu, used to clamp the control-plane
// data term of the per-packet HPS estimate (calcHPSij) at zero.
func reluF(x float64) float64 {
	if x < 0 {
		return 0
	}
	return x
}

// floorDivMod returns (q, r) such that raw == q*mod + r, 0 <= r < mod,
// using mathematical floor division — the non-negative-modulo convention
// the Python reference relies on for negative `raw` values produced by
// `minus`. Go's native `/` and `%` truncate toward zero, which disagrees
// with Python whenever raw is negative; this replicates Python exactly.
func floorDivMod(raw int64, mod int64) (q int64, r int64) {
	q = raw / mod
	r = raw % mod
	if r < 0 {
		r += mod
		q--
	}
	return q, r
}
