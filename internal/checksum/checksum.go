// Package checksum fingerprints stored documents. The fingerprint doubles as
// the HTTP entity tag used for optimistic concurrency.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// ETag formats sum as a strong entity tag.
func ETag(sum string) string {
	return `"` + sum + `"`
}

// FromETag extracts the checksum from an If-Match value. A weak prefix and
// surrounding quotes are dropped; "*" and the empty string yield "", which
// callers treat as "no precondition".
func FromETag(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "W/")
	v = strings.Trim(v, `"`)
	if v == "*" {
		return ""
	}
	return v
}
