package lzs

import (
	"math"

	farm "github.com/dgryski/go-farm"
	"github.com/cespare/xxhash/v2"
)

// KeyGenerator is a stateful 32-bit fingerprint of a symbol sequence. The
// built-in implementation, defaultRollingHash, is a Rabin-style polynomial
// rolling hash: it is the one component of the corpus the teacher cannot
// supply, since neither cespare/xxhash nor dgryski/go-farm support true
// O(1)-append incremental hashing (both require rehashing the whole
// buffer). Those two libraries are still put to work below as alternate,
// caller-selectable generators for callers who prefer hash quality over
// streaming cost.
type KeyGenerator interface {
	// Value returns the current fingerprint.
	Value() uint32
	// Update appends a symbol and returns the new fingerprint.
	Update(b byte) uint32
	// Reset restores the generator to its seed state.
	Reset()
	// Recalculate resets then folds every symbol of buf into the state,
	// returning the final fingerprint.
	Recalculate(buf []byte) uint32
}

// Polynomial rolling hash constants. The seed and polynomial together are
// part of a Config's reproducibility identity (spec.md section 4.A): two
// clones built with the same seed/polynomial reproduce identical
// fingerprints for identical input.
const (
	defaultRollingSeed uint32 = 0
	defaultRollingPoly uint32 = 1000003 // a prime well clear of 2^32's small factors
)

// defaultRollingHash is the built-in KeyGenerator: h <- h*P + b (mod 2^32).
// Go's uint32 arithmetic wraps modulo 2^32 natively, so Update is branch-free.
type defaultRollingHash struct {
	seed  uint32
	poly  uint32
	value uint32
}

// NewRollingHash returns the default polynomial rolling hash with the
// published default seed (0) and polynomial.
func NewRollingHash() KeyGenerator {
	return &defaultRollingHash{seed: defaultRollingSeed, poly: defaultRollingPoly, value: defaultRollingSeed}
}

// NewRollingHashWithSeed returns a polynomial rolling hash using a
// caller-chosen seed but the default polynomial, for callers that want
// reproducible-but-distinct fingerprint spaces (e.g. across shards).
func NewRollingHashWithSeed(seed uint32) KeyGenerator {
	return &defaultRollingHash{seed: seed, poly: defaultRollingPoly, value: seed}
}

func (h *defaultRollingHash) Value() uint32 { return h.value }

func (h *defaultRollingHash) Update(b byte) uint32 {
	h.value = h.value*h.poly + uint32(b)
	return h.value
}

func (h *defaultRollingHash) Reset() {
	h.value = h.seed
}

func (h *defaultRollingHash) Recalculate(buf []byte) uint32 {
	h.Reset()
	for _, b := range buf {
		h.Update(b)
	}
	return h.value
}

// XXHashGenerator is an alternate KeyGenerator backed by
// github.com/cespare/xxhash/v2. It keeps its own copy of the candidate
// buffer since xxhash has no incremental-append primitive cheaper than
// rehashing; Update therefore costs O(L), not O(1), and is only suitable as
// a caller-supplied override, never as the tokenizer's built-in default.
type XXHashGenerator struct {
	buf []byte
}

// NewXXHashGenerator returns a KeyGenerator backed by xxhash.
func NewXXHashGenerator() KeyGenerator {
	return &XXHashGenerator{}
}

func (h *XXHashGenerator) Value() uint32 {
	return uint32(xxhash.Sum64(h.buf))
}

func (h *XXHashGenerator) Update(b byte) uint32 {
	h.buf = append(h.buf, b)
	return h.Value()
}

func (h *XXHashGenerator) Reset() {
	h.buf = h.buf[:0]
}

func (h *XXHashGenerator) Recalculate(buf []byte) uint32 {
	h.buf = append(h.buf[:0], buf...)
	return h.Value()
}

// FarmHashGenerator is an alternate KeyGenerator backed by
// github.com/dgryski/go-farm's Hash64, with the same O(L)
// per-Update caveat as XXHashGenerator.
type FarmHashGenerator struct {
	buf []byte
}

// NewFarmHashGenerator returns a KeyGenerator backed by FarmHash.
func NewFarmHashGenerator() KeyGenerator {
	return &FarmHashGenerator{}
}

func (h *FarmHashGenerator) Value() uint32 {
	return uint32(farm.Hash64(h.buf))
}

func (h *FarmHashGenerator) Update(b byte) uint32 {
	h.buf = append(h.buf, b)
	return h.Value()
}

func (h *FarmHashGenerator) Reset() {
	h.buf = h.buf[:0]
}

func (h *FarmHashGenerator) Recalculate(buf []byte) uint32 {
	h.buf = append(h.buf[:0], buf...)
	return h.Value()
}

// Fingerprint returns a stable identity hash of the configuration, computed
// with xxhash over the parameters that determine reproducibility, including
// the rolling hash's seed and polynomial (the defaults unless KeyGenerator
// is a built-in rolling hash): Configs that agree on all of these hash
// identically. Fields are hashed as given; zero values are not replaced by
// DefaultConfig's values first.
func (c Config) Fingerprint() uint64 {
	var buf []byte
	seed, poly := defaultRollingSeed, defaultRollingPoly
	if rh, ok := c.KeyGenerator.(*defaultRollingHash); ok {
		seed, poly = rh.seed, rh.poly
	}
	buf = appendUint64(buf, uint64(seed))
	buf = appendUint64(buf, uint64(poly))
	buf = appendUint64(buf, uint64(c.CacheSize))
	buf = appendUint64(buf, uint64(c.TrustThreshold))
	buf = appendUint64(buf, uint64(c.TrustStrengthMode))
	buf = appendUint64(buf, uint64(c.EmissionStrengthIncrement))
	buf = appendUint64(buf, boolToUint64(c.trieEnabledOrDefault()))
	buf = appendUint64(buf, uint64(c.GateOrder))
	buf = appendUint64(buf, math64(c.MDL.Alpha))
	buf = appendUint64(buf, uint64(c.MDL.ZMode))
	buf = appendUint64(buf, uint64(c.MDL.ZFixed))
	buf = appendUint64(buf, math64(c.MDL.Beta))
	buf = appendUint64(buf, math64(c.MDL.C))
	buf = appendUint64(buf, math64(c.MDL.Tau))
	buf = appendUint64(buf, uint64(c.alphabetSize()))
	return xxhash.Sum64(buf)
}

func appendUint64(buf []byte, v uint64) []byte {
	return append(buf,
		byte(v), byte(v>>8), byte(v>>16), byte(v>>24),
		byte(v>>32), byte(v>>40), byte(v>>48), byte(v>>56))
}

func boolToUint64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func math64(f float64) uint64 {
	return math.Float64bits(f)
}
