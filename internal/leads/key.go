package leads

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// KeyPrefix is the storage namespace for lead records.
const KeyPrefix = "leads/"

// keyTimeLayout is fixed-width so lexical key order matches chronological order.
const keyTimeLayout = "2006-01-02T15:04:05.000Z"

// idPattern matches exactly the ids NewID generates: a fixed-width UTC
// timestamp, an underscore, and a lowercase UUID. Anything else is rejected
// before it reaches the store.
var idPattern = regexp.MustCompile(
	`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{3}Z_[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// NewID returns a sortable lead id: creation timestamp plus a random suffix.
func NewID(now time.Time) string {
	return now.UTC().Format(keyTimeLayout) + "_" + uuid.NewString()
}

// Key maps a lead id to its storage key.
func Key(id string) string {
	return KeyPrefix + id
}

// IDFromKey strips the namespace from a storage key.
func IDFromKey(key string) string {
	return strings.TrimPrefix(key, KeyPrefix)
}

// ValidID reports whether an externally supplied id matches the generation
// pattern.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

// ValidKey reports whether a full storage key is a well-formed lead key.
func ValidKey(key string) bool {
	return strings.HasPrefix(key, KeyPrefix) && ValidID(strings.TrimPrefix(key, KeyPrefix))
}
