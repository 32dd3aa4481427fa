package sim

import (
	"fmt"
	"sort"
)

// ShareAllocator distributes register_size integer shares across tasks from
// real-valued ideal shares, using largest-fractional-remainder rounding,
// honoring an optional minimum-share floor (§4.H).
type ShareAllocator struct{}

// Allocate returns integer shares summing to registerSize. When minShare is
// true, every returned share is >= 5 (the algorithm reserves one bit per
// task up front, then raises any entry below the post-reservation floor of
// 4 back up, so the final +1 brings it to >= 5); Allocate panics if
// 5*n > registerSize, matching the reference's ValueError on min-share
// infeasibility — a configuration-shaped error, but one only detectable once
// the tick-driven control loop is already running, so it is a runtime
// invariant violation here rather than a construction-time ConfigError (see
// the error taxonomy in SPEC_FULL.md §7).
func (ShareAllocator) Allocate(registerSize int, idealShares []float64, minShare bool) []int {
	n := len(idealShares)
	if minShare && 5*n > registerSize {
		panic(fmt.Sprintf("ShareAllocator: cannot satisfy minimum share 5 for %d tasks within register_size %d", n, registerSize))
	}

	effective := registerSize - n
	sum := 0.0
	for _, x := range idealShares {
		sum += x
	}
	scaled := make([]float64, n)
	if sum > 0 {
		for i, x := range idealShares {
			scaled[i] = x / sum * float64(effective)
		}
	} else {
		copy(scaled, idealShares)
	}

	base := make([]int, n)
	frac := make([]float64, n)
	baseSum := 0
	for i, x := range scaled {
		b := int(x)
		base[i] = b
		frac[i] = x - float64(b)
		baseSum += b
	}

	// Largest-fractional-remainder rounding: repeatedly hand the leftover
	// unit to whichever entry has the biggest remainder, ties to the lowest
	// index (stable sort over descending remainder already gives that).
	deficit := effective - baseSum
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	for deficit > 0 {
		sort.SliceStable(order, func(a, b int) bool { return frac[order[a]] > frac[order[b]] })
		idx := order[0]
		base[idx]++
		frac[idx] -= 1 // drop below everything else so it isn't picked again
		deficit--
	}

	if minShare {
		const floor = 4
		raiseDeficit := 0
		for i := range base {
			if base[i] < floor {
				raiseDeficit += floor - base[i]
				base[i] = floor
			}
		}
		for raiseDeficit > 0 {
			sort.SliceStable(order, func(a, b int) bool {
				ia, ib := order[a], order[b]
				if frac[ia] != frac[ib] {
					return frac[ia] < frac[ib]
				}
				return base[ia] > base[ib]
			})
			picked := -1
			for _, idx := range order {
				if base[idx] > floor {
					picked = idx
					break
				}
			}
			if picked == -1 {
				panic("ShareAllocator: no eligible entry to borrow a share from — minimum-share infeasible")
			}
			base[picked]--
			frac[picked] += 1
			raiseDeficit--
		}
	}

	result := make([]int, n)
	for i := range base {
		result[i] = base[i] + 1
	}
	return result
}
