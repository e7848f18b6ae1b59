package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate_RoundTrip(t *testing.T) {
	expr, err := Parse(`tags.env == "production" AND user_name LIKE "app-*"`)
	require.NoError(t, err)

	match := map[string]any{"user_name": "app-user-123", "tags": map[string]any{"env": "production"}}
	miss := map[string]any{"user_name": "x", "tags": map[string]any{"env": "staging"}}

	assert.True(t, Evaluate(expr, match))
	assert.False(t, Evaluate(expr, miss))
}

func TestEvaluate_Comparisons(t *testing.T) {
	record := map[string]any{
		"name":      "alice",
		"count":     3,
		"ratio":     0.1 + 0.2,
		"enabled":   true,
		"tags":      map[string]string{"team": "core"},
		"nested":    map[string]any{"deep": map[string]any{"value": "x"}},
		"not_a_map": "scalar",
	}

	tests := []struct {
		query string
		want  bool
	}{
		{`name == "alice"`, true},
		{`name != "bob"`, true},
		{`count == 3`, true},
		{`ratio == 0.3`, true},
		{`enabled == true`, true},
		{`enabled == "true"`, false},
		{`count == "3"`, false},
		{`tags.team == "core"`, true},
		{`nested.deep.value == "x"`, true},
		{`missing == "x"`, false},
		{`missing != "x"`, false},
		{`missing.deeper == "x"`, false},
		{`not_a_map.key == "x"`, false},
		{`name IN ["bob", "alice"]`, true},
		{`count IN [1, 2]`, false},
		{`name LIKE "al*"`, true},
		{`count LIKE "3*"`, false},
		{`NOT name == "alice"`, false},
		{`name == "x" OR count == 3`, true},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			expr, err := Parse(tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, Evaluate(expr, record))
		})
	}
}

func TestEvaluate_Laws(t *testing.T) {
	records := []map[string]any{
		{"a": "x", "b": 1},
		{"a": "y", "b": 2},
		{"b": 1},
		{},
	}
	exprs := []Expr{
		MustParse(`a == "x"`),
		MustParse(`b == 1`),
		MustParse(`a LIKE "*"`),
		MustParse(`missing.path == 1`),
	}

	for _, r := range records {
		for _, e := range exprs {
			assert.Equal(t, !e.Eval(r), (&Not{Expr: e}).Eval(r))
			for _, f := range exprs {
				assert.Equal(t, e.Eval(r) && f.Eval(r), (&And{Left: e, Right: f}).Eval(r))
				assert.Equal(t, e.Eval(r) || f.Eval(r), (&Or{Left: e, Right: f}).Eval(r))
			}
		}
	}
}

func TestEvaluate_NilMatchesAll(t *testing.T) {
	assert.True(t, Evaluate(nil, map[string]any{}))
}
