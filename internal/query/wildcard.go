package query

import "strings"

// WildcardMatch reports whether text matches pattern, where '*' stands for any run of characters.
// Interior segments are located left to right without backtracking.
func WildcardMatch(text, pattern string) bool {
	if !strings.Contains(pattern, "*") {
		return text == pattern
	}

	segments := strings.Split(pattern, "*")
	first := segments[0]
	last := segments[len(segments)-1]

	if !strings.HasPrefix(text, first) {
		return false
	}
	pos := len(first)

	for _, seg := range segments[1 : len(segments)-1] {
		if seg == "" {
			continue
		}
		idx := strings.Index(text[pos:], seg)
		if idx < 0 {
			return false
		}
		pos += idx + len(seg)
	}

	if len(text)-len(last) < pos {
		return false
	}
	return strings.HasSuffix(text, last)
}
