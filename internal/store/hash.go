package store

import (
	"encoding/hex"

	"github.com/zeebo/xxh3"
)

// CacheKey hashes content together with everything else that influences
// its expansion. Parts are length-prefixed so ("ab", "c") and ("a", "bc")
// differ.
func CacheKey(content []byte, parts ...string) string {
	h := xxh3.New()
	writeLen(h, len(content))
	h.Write(content)
	for _, p := range parts {
		writeLen(h, len(p))
		h.WriteString(p)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func writeLen(h *xxh3.Hasher, n int) {
	var buf [8]byte
	for i := range buf {
		buf[i] = byte(n >> (8 * i))
	}
	h.Write(buf[:])
}
