package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashQuery returns the hex SHA-256 of the trimmed, lower-cased query followed by salt.
func HashQuery(query, salt string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(query)) + salt))
	return hex.EncodeToString(sum[:])
}
