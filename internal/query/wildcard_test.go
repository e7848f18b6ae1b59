package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWildcardMatch(t *testing.T) {
	tests := []struct {
		text    string
		pattern string
		want    bool
	}{
		{"hello world", "hello*", true},
		{"hello world", "*world", true},
		{"/admin/users/123", "/admin/*", true},
		{"hello", "world", false},
		{"hello", "hello", true},
		{"abc", "*", true},
		{"", "*", true},
		{"app-user-123", "app-*-123", true},
		{"app-user-124", "app-*-123", false},
		{"a-b-c-d", "a*b*d", true},
		{"a-c-b", "a*b*c", false},
		{"ab", "ab*b", false},
		{"abcabc", "a*c", true},
	}

	for _, tt := range tests {
		t.Run(tt.text+"~"+tt.pattern, func(t *testing.T) {
			assert.Equal(t, tt.want, WildcardMatch(tt.text, tt.pattern))
		})
	}
}
