package helpers

import (
	"crypto/md5"
	"fmt"
)

// Hash is an utility to determine a MD5 hash (acceptable as not used for security reasons).
func Hash(bytes []byte) string {
	h := md5.New()
	h.Write(bytes)
	return fmt.Sprintf("%x", h.Sum(nil))
}

// ShortHash truncates the hash to a length that keeps identifiers built
// from it readable. Collisions only matter within a single cell, where
// a handful of lines compete for the same placeholder namespace.
func ShortHash(bytes []byte, length int) string {
	hash := Hash(bytes)
	if length > len(hash) {
		return hash
	}
	return hash[:length]
}
