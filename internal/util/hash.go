package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// CacheKey creates a stable key for a summary of text produced by strategy
// with the given sentence cap.
func CacheKey(strategy string, maxSentences int, text string) string {
	hasher := sha256.New()
	hasher.Write([]byte(strategy))
	hasher.Write([]byte{0})
	hasher.Write([]byte(strconv.Itoa(maxSentences)))
	hasher.Write([]byte{0})
	hasher.Write([]byte(text))
	return hex.EncodeToString(hasher.Sum(nil))
}
