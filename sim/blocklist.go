package sim

// Blocklist is the two-window Bloom filter pair of §4.F, reached via the
// same hash family as the measurement sketches. Each window's filter is
// modeled as a 2-bit-counter CMS of width 2^W (the reference itself
// represents its Bloom filters as a CountMinSketch(counter_size=2, 2^W,
// n_hash) and uses setbit operations on it, so this reuses CountMinSketch
// rather than introducing a separate bit-array type).
type Blocklist struct {
	filters [2]*CountMinSketch
}

// NewBlocklist builds both windows' Bloom filters, each d x 2^sizeLog2 bits.
func NewBlocklist(hasher *Hasher, sizeLog2 int) (*Blocklist, error) {
	if sizeLog2 < 0 {
		return nil, newConfigError("Blocklist", "blocklist_size must be >= 0, got %d", sizeLog2)
	}
	width := 1 << sizeLog2
	bl := &Blocklist{}
	for w := 0; w < 2; w++ {
		c, err := NewCountMinSketch(hasher, 2, width)
		if err != nil {
			return nil, err
		}
		bl.filters[w] = c
	}
	return bl, nil
}

// Test reports whether every one of the d hashed bits is set for key in the
// given window.
func (bl *Blocklist) Test(key []byte, window int) bool {
	read := bl.filters[window].Read(key)
	for _, v := range read {
		if v == 0 {
			return false
		}
	}
	return true
}

// Set sets every one of the d hashed bits for key in the given window.
func (bl *Blocklist) Set(key []byte, window int) {
	bl.filters[window].SetBitOr(key, 1)
}

// Clear zeroes the Bloom filter for the given window, invoked when task 0
// rotates its window.
func (bl *Blocklist) Clear(window int) {
	bl.filters[window].Clear()
}
