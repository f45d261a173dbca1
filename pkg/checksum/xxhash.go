package checksum

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Sum fingerprints a whole payload, such as an imported reference file.
func Sum(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}

// CalculateHash returns a content hash of an ordered list of field values.
// Field order is part of the hash.
func CalculateHash(fields []string) string {
	digest := xxhash.New()
	digest.WriteString(strings.Join(fields, "\x1f"))

	return hex.EncodeToString(digest.Sum(nil))
}
