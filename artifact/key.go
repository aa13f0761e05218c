package artifact

import (
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

// CleanKey normalizes a key to a relative slash separated path.
func CleanKey(key string) (string, error) {
	k := strings.TrimLeft(path.Clean("/"+strings.TrimSpace(key)), "/")
	if k == "" || k == "." {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	return k, nil
}

// NewKey returns a unique key below prefix with the given extension
// (for example NewKey("memes", ".svg")).
func NewKey(prefix, ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	name := uuid.NewString() + ext
	if prefix == "" {
		return name
	}

	return strings.Trim(prefix, "/") + "/" + name
}

// JoinURL appends key to base.
func JoinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
