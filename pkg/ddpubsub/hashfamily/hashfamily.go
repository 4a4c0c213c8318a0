// Package hashfamily implements the deterministic family of hash functions
// used to compress a topic string into a small, fixed number of 32-bit
// fingerprints shared across an entire cluster.
package hashfamily

import "fmt"

const fnvOffset64 = 14695981039346656037
const fnvPrime64 = 1099511628211

// Family is a deterministic set of k independent hash functions, salted by
// a cluster-wide seed. Every node in a cluster must construct a Family with
// the same seed and k for the pub-sub scheme to function.
type Family struct {
	seed string
	k    int
	// salts[i] is the precomputed per-hash salt for index i, mixed into
	// every topic hashed through that slot.
	salts []uint64
}

// New builds a Family with k independent hash functions salted by seed.
func New(seed string, k int) *Family {
	salts := make([]uint64, k)
	for i := 0; i < k; i++ {
		salts[i] = fnv1a64([]byte(fmt.Sprintf("%s/%d", seed, i)))
	}
	return &Family{seed: seed, k: k, salts: salts}
}

// K returns the number of hash functions in the family.
func (f *Family) K() int { return f.k }

// Hashes returns exactly K() 32-bit fingerprints for topic, one per hash
// function in the family.
func (f *Family) Hashes(topic string) []uint32 {
	tb := []byte(topic)
	out := make([]uint32, f.k)
	for i, salt := range f.salts {
		h := fnv1a64Seeded(salt, tb)
		out[i] = uint32(h ^ (h >> 32))
	}
	return out
}

// fnv1a64 hashes b with the standard FNV-1a offset basis.
func fnv1a64(b []byte) uint64 {
	return fnv1a64Seeded(fnvOffset64, b)
}

// fnv1a64Seeded runs FNV-1a starting from an arbitrary basis, letting each
// hash-family slot start from its own salted basis instead of sharing one.
func fnv1a64Seeded(basis uint64, b []byte) uint64 {
	h := basis
	for _, c := range b {
		h ^= uint64(c)
		h *= fnvPrime64
	}
	return h
}
