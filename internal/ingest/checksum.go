package ingest

import (
	"encoding/hex"

	"github.com/cespare/xxhash/v2"
)

// Checksum returns the hex xxhash64 digest of content.
func Checksum(content []byte) string {
	digest := xxhash.New()
	_, _ = digest.Write(content)
	return hex.EncodeToString(digest.Sum(nil))
}
