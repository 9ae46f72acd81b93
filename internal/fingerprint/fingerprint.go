// Package fingerprint computes the content-derived identity used for
// de-duplicating ingested items. Two items with the same title and summary
// always get the same fingerprint, regardless of URL.
package fingerprint

import (
	"crypto/md5"
	"encoding/hex"
)

// Compute returns a stable hex digest over title and summary. Missing fields
// are treated as empty strings, so Compute("a", "") == Compute("a", "") holds
// across processes.
func Compute(title, summary string) string {
	sum := md5.Sum([]byte(title + summary))
	return hex.EncodeToString(sum[:])
}
