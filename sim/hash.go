package sim

import (
	"fmt"
	"hash/crc32"
)

// Hasher is the deterministic keyed hash family of §4.A: n_hash independent
// hash functions over byte keys. The reference (common.py) fixes the family
// at four reflected CRC-32 variants — CRC-32 (IEEE), CRC-32C (Castagnoli),
// CRC-32D, and Koopman's CRC-32K2 — each with init=0xFFFFFFFF,
// xorOut=0xFFFFFFFF. Go's hash/crc32 already computes reflected CRC-32 with
// those exact init/xorOut constants via crc32.Update, so building one
// crc32.Table per polynomial reproduces hash_crc bit-for-bit; no third-party
// hashing package in the retrieval pack implements CRC-32 at all (the one
// CMS-flavored example hashes with FNV/go-farm instead), and the spec's own
// non-goal waives cryptographic strength, so this is the correct stdlib fit.
type Hasher struct {
	tables [4]*crc32.Table
	nHash  int
	cache  map[cacheKey]uint32
}

type cacheKey struct {
	key   string
	depth int
}

// Standard 32-bit CRC polynomials, reversed representation (as consumed by
// crc32.MakeTable), matching common.py's `polynomial` list in the same order:
// CRC-32 (IEEE), CRC-32C (Castagnoli), CRC-32D (normal form 0xA833982B),
// CRC-32K2 (Koopman, normal form 0x32583499).
const (
	polyIEEE  = 0xEDB88320
	polyCastC = 0x82F63B78
	polyKoopD = 0xD419CC15
	polyKoopK = 0x992C1A4C
)

// NewHasher builds the CRC-32 hash family for nHash independent rows.
// nHash must be between 1 and 4 (the reference never exceeds the four
// polynomials it hardcodes); memoisation is unbounded by design here since
// the reference uses an lru_cache(maxsize=60000) and a bound offers no
// correctness benefit for a single-threaded, short-lived simulation run.
func NewHasher(nHash int) (*Hasher, error) {
	if nHash < 1 || nHash > 4 {
		return nil, newConfigError("Hasher", "n_hash must be between 1 and 4, got %d", nHash)
	}
	polys := [4]uint32{polyIEEE, polyCastC, polyKoopD, polyKoopK}
	h := &Hasher{nHash: nHash, cache: make(map[cacheKey]uint32)}
	for i := 0; i < 4; i++ {
		h.tables[i] = crc32.MakeTable(polys[i])
	}
	return h, nil
}

// Hash returns the CRC-32 value of key under hash function `depth` (0-based,
// 0 <= depth < n_hash), with init=0xFFFFFFFF, xorOut=0xFFFFFFFF folded in the
// way crc32.Checksum already does for a reflected polynomial.
func (h *Hasher) Hash(key []byte, depth int) uint32 {
	if depth < 0 || depth >= h.nHash {
		panic(fmt.Sprintf("Hasher.Hash: depth %d out of range [0, %d)", depth, h.nHash))
	}
	ck := cacheKey{key: string(key), depth: depth}
	if v, ok := h.cache[ck]; ok {
		return v
	}
	v := crc32.Checksum(key, h.tables[depth])
	h.cache[ck] = v
	return v
}

// Depth returns n_hash.
func (h *Hasher) Depth() int { return h.nHash }
