package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// OwnerKey returns a path-safe, stable identifier for an owner id.
func OwnerKey(ownerID string) string {
	sum := sha256.Sum256([]byte(ownerID))
	return hex.EncodeToString(sum[:])
}
