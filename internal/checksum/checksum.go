// Package checksum computes the SHA-256 digests used as file fingerprints.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
)

// chunkSize bounds the memory used while streaming a file through the hash.
const chunkSize = 64 << 10

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// File streams the file at path through SHA-256 and returns the lowercase hex
// digest. Any I/O failure (missing file, permission denied, directory) yields
// ("", false); callers do not distinguish between causes.
func File(path string) (string, bool) {
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", false
	}
	return hex.EncodeToString(h.Sum(nil)), true
}

// Valid reports whether s is a 64-character lowercase hex digest.
func Valid(s string) bool {
	if len(s) != hex.EncodedLen(sha256.Size) {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
