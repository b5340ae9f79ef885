package cache

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Key derives a deterministic cache key from the normalized query and the
// option fields that affect provider output. Field order does not matter;
// fields that do not change the answer (timeouts, cache flags) must not be
// passed in.
func Key(query string, fields map[string]string) string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(normalizeQuery(query))
	for _, name := range names {
		fmt.Fprintf(&b, "|%s=%s", name, fields[name])
	}
	sum := md5.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func normalizeQuery(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}
