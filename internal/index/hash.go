package index

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// PathHash is the stable 64-bit digest of a symbolic file path. XXH64 with
// seed 0 over the UTF-8 bytes; both ends of a sync must agree on it.
func PathHash(symbolic string) uint64 {
	return xxhash.Sum64String(symbolic)
}

// HashKey renders a path hash the way state files store it.
func HashKey(hash uint64) string {
	return strconv.FormatUint(hash, 10)
}

// ParseHashKey reverses HashKey.
func ParseHashKey(key string) (uint64, error) {
	return strconv.ParseUint(key, 10, 64)
}
