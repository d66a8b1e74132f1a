package domain

import "strings"

// replyPrefixes are the marker prefixes stripped during subject
// normalization, lowercase, without trailing colon.
var replyPrefixes = []string{"re", "fw", "fwd", "aw", "wg"}

// NormalizeSubject strips reply/forward markers and collapses whitespace so
// that messages belonging to the same logical conversation compare equal.
// Case is preserved; callers compare case-insensitively.
func NormalizeSubject(s string) string {
	s = strings.TrimSpace(s)
	for {
		stripped := stripOnePrefix(s)
		if stripped == s {
			break
		}
		s = stripped
	}
	return strings.Join(strings.Fields(s), " ")
}

func stripOnePrefix(s string) string {
	lower := strings.ToLower(s)
	for _, p := range replyPrefixes {
		if strings.HasPrefix(lower, p+":") {
			return strings.TrimSpace(s[len(p)+1:])
		}
	}
	return s
}

// SubjectsMatch reports whether two raw subjects normalize to the same
// non-empty heuristic key.
func SubjectsMatch(a, b string) bool {
	na := NormalizeSubject(a)
	if na == "" {
		return false
	}
	return strings.EqualFold(na, NormalizeSubject(b))
}
