package kv

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/minio/sha256-simd"
)

// Hasher computes the 32-bit hash the table stores for a key. It must
// return the same value for equal keys for the lifetime of a Map.
type Hasher[K any] func(K) uint32

// fold reduces a 64-bit hash to 32 bits, keeping entropy of both halves.
func fold(h uint64) uint32 {
	return uint32(h>>32) ^ uint32(h)
}

// StringHasher hashes strings with xxHash64.
func StringHasher(s string) uint32 {
	return fold(xxhash.Sum64String(s))
}

// BytesHasher hashes byte slices with xxHash64.
func BytesHasher(b []byte) uint32 {
	return fold(xxhash.Sum64(b))
}

// Uint64Hasher hashes integers with xxHash64 over their little endian
// encoding.
func Uint64Hasher(v uint64) uint32 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return fold(xxhash.Sum64(buf[:]))
}

// IntHasher hashes ints like Uint64Hasher.
func IntHasher(v int) uint32 {
	return Uint64Hasher(uint64(v))
}

// SHA256Hasher hashes strings with SHA-256 and keeps the first four bytes
// of the digest. The hash is unkeyed, so it spreads keys well but gives no
// protection against deliberately colliding keys.
func SHA256Hasher(s string) uint32 {
	sum := sha256.Sum256([]byte(s))
	return binary.LittleEndian.Uint32(sum[:4])
}
