package oauth

import (
	"fmt"
	"strings"
)

// Profile is the raw user-info document returned by the provider. It is
// fetched fresh on every login and never cached across sessions.
type Profile map[string]any

// StringAt resolves a dotted path ("profile.name") to a string value.
// Returns ok=false when the path is absent, not a string, or empty.
func (p Profile) StringAt(path string) (string, bool) {
	var cur any = map[string]any(p)
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return "", false
		}
		cur, ok = m[part]
		if !ok {
			return "", false
		}
	}
	switch v := cur.(type) {
	case string:
		v = strings.TrimSpace(v)
		return v, v != ""
	case float64:
		// Some providers return numeric user ids.
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v)), true
		}
		return fmt.Sprintf("%v", v), true
	default:
		return "", false
	}
}
