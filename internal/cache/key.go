package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Key hashes the tables version and every input part into a stable key.
// Parts are JSON-encoded; map keys encode in sorted order, so equal inputs
// always produce equal keys.
func Key(tablesVersion string, parts ...any) (string, error) {
	h := sha256.New()
	h.Write([]byte(tablesVersion))
	for i, part := range parts {
		encoded, err := json.Marshal(part)
		if err != nil {
			return "", fmt.Errorf("failed to encode cache key part %d: %w", i, err)
		}
		h.Write([]byte{0})
		h.Write(encoded)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
