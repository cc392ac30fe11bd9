// Package rng provides the deterministic random stream every generative
// decision is drawn from. The same seed yields the same sequence on every
// platform, so patterns, candidates and probability rolls can be replayed.
package rng

import (
	"strconv"
	"strings"
)

// Rand is a mulberry32 generator. The zero value is seeded with 0.
type Rand struct {
	state uint32
}

// New returns a generator for seed.
func New(seed uint32) *Rand {
	return &Rand{state: seed}
}

// FromInt folds any integer seed into the 32-bit seed space (mod 2^32).
func FromInt(seed int64) uint32 {
	return uint32(seed)
}

// Uint32 returns the next raw 32-bit value.
func (r *Rand) Uint32() uint32 {
	r.state += 0x6D2B79F5
	t := r.state
	t = (t ^ (t >> 15)) * (t | 1)
	t ^= t + (t^(t>>7))*(t|61)
	return t ^ (t >> 14)
}

// Float64 returns the next value in [0, 1).
func (r *Rand) Float64() float64 {
	return float64(r.Uint32()) / 4294967296.0
}

// Intn returns a value in [0, n). n <= 0 returns 0.
func (r *Rand) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	i := int(r.Float64() * float64(n))
	if i >= n {
		i = n - 1
	}
	return i
}

// Range returns a value in [lo, hi).
func (r *Rand) Range(lo, hi float64) float64 {
	return lo + r.Float64()*(hi-lo)
}

// Pick returns one element of items, or the zero value for an empty slice.
func Pick[T any](r *Rand, items []T) T {
	var zero T
	if len(items) == 0 {
		return zero
	}
	return items[r.Intn(len(items))]
}

const (
	fnvOffset uint32 = 2166136261
	fnvPrime  uint32 = 16777619
)

// HashString is 32-bit FNV-1a over the bytes of s.
func HashString(s string) uint32 {
	h := fnvOffset
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}

// KeySeed joins parts with "-" and hashes the result, e.g.
// KeySeed(seed, bar, "kick", step) hashes "<seed>-<bar>-kick-<step>".
// It gives an independent sub-seed per event without a shared cursor.
func KeySeed(parts ...any) uint32 {
	var b strings.Builder
	for i, p := range parts {
		if i > 0 {
			b.WriteByte('-')
		}
		switch v := p.(type) {
		case string:
			b.WriteString(v)
		case int:
			b.WriteString(strconv.Itoa(v))
		case int64:
			b.WriteString(strconv.FormatInt(v, 10))
		case uint32:
			b.WriteString(strconv.FormatUint(uint64(v), 10))
		case interface{ String() string }:
			b.WriteString(v.String())
		default:
			b.WriteString("?")
		}
	}
	return HashString(b.String())
}

// Roll draws a single value from the sub-seed identified by parts.
func Roll(parts ...any) float64 {
	return New(KeySeed(parts...)).Float64()
}
