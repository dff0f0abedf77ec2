package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const keyPrefix = "stats:v1:"

// Key derives the cache key from a player's permanent PUUID. Display names are
// never used since they change.
func Key(puuid string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(puuid)))
	return keyPrefix + hex.EncodeToString(sum[:])
}
