package schema

import (
	"strings"
)

// DeriveSlug turns a model name into its URL-safe slug: lowercased, runs
// of non-alphanumerics collapsed to single hyphens, trimmed.
func DeriveSlug(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
