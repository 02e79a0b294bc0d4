package request

import "strings"

const maxToolNameLength = 64

// SanitizeToolName trims, replaces characters outside [a-zA-Z0-9_-] with
// "_", trims leading/trailing underscores, truncates to 64 characters, and
// falls back to "unknown_tool" if the result is empty (spec §4.3).
func SanitizeToolName(name string) string {
	name = strings.TrimSpace(name)

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	sanitized := strings.Trim(b.String(), "_")
	if len(sanitized) > maxToolNameLength {
		sanitized = sanitized[:maxToolNameLength]
		sanitized = strings.Trim(sanitized, "_")
	}

	if sanitized == "" {
		return "unknown_tool"
	}
	return sanitized
}
