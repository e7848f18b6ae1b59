package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelection_Merge(t *testing.T) {
	base := Selection{
		CategoryUsers:  {"alice", "bob"},
		CategoryGroups: {"admins"},
	}

	merged := base.Merge(Selection{CategoryUsers: {"carol"}, CategoryRoles: nil})

	// per-category overwrite, not item union
	assert.Equal(t, []any{"carol"}, merged[CategoryUsers])
	assert.Equal(t, []any{"admins"}, merged[CategoryGroups])
	assert.Equal(t, []any{}, merged[CategoryRoles])
	assert.Equal(t, 2, merged.Total())

	// original untouched
	assert.Equal(t, []any{"alice", "bob"}, base[CategoryUsers])
}

func TestSelection_Identities(t *testing.T) {
	sel := Selection{
		CategoryUsers: {
			"alice",
			map[string]any{"user_name": "bob", "arn": "arn:aws:iam::1:user/bob"},
			map[string]any{"arn": "arn:aws:iam::1:user/carol"},
		},
		CategoryRoles: {},
	}

	ids, restricted := sel.Identities(CategoryUsers)
	assert.True(t, restricted)
	assert.Contains(t, ids, "alice")
	assert.Contains(t, ids, "bob")
	assert.Contains(t, ids, "arn:aws:iam::1:user/carol")

	ids, restricted = sel.Identities(CategoryRoles)
	assert.True(t, restricted)
	assert.Empty(t, ids)

	_, restricted = sel.Identities(CategoryPolicies)
	assert.False(t, restricted)
}

func TestIdentityOf(t *testing.T) {
	tests := []struct {
		name     string
		category string
		fields   map[string]any
		want     string
	}{
		{"user by name", CategoryUsers, map[string]any{"user_name": "alice", "arn": "arn:x"}, "alice"},
		{"policy by arn", CategoryPolicies, map[string]any{"policy_name": "p", "arn": "arn:p"}, "arn:p"},
		{"policy falls back to name", CategoryPolicies, map[string]any{"policy_name": "p"}, "p"},
		{"unknown category uses fallback", "buckets", map[string]any{"name": "b"}, "b"},
		{"nothing resolvable", CategoryUsers, map[string]any{"other": "x"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IdentityOf(tt.category, tt.fields))
		})
	}
}
