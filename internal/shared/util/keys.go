package util

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
)

// HashUserKey returns a filesystem-safe identifier for a user ID.
func HashUserKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// FileExt returns the lowercase extension of a file name, including the dot.
func FileExt(name string) string {
	return strings.ToLower(filepath.Ext(strings.TrimSpace(name)))
}
