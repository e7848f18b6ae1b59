package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kinds(tokens []Token) []TokenKind {
	out := make([]TokenKind, len(tokens))
	for i, t := range tokens {
		out[i] = t.Kind
	}
	return out
}

func TestLex(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []TokenKind
	}{
		{
			name:  "comparison with dotted path",
			input: `tags.env == "prod"`,
			want:  []TokenKind{TokenIdent, TokenDot, TokenIdent, TokenEq, TokenString, TokenEOF},
		},
		{
			name:  "keywords",
			input: `NOT a != true AND b LIKE 'x*' OR c IN [1, -2.5]`,
			want: []TokenKind{
				TokenNot, TokenIdent, TokenNeq, TokenTrue, TokenAnd, TokenIdent, TokenLike, TokenString,
				TokenOr, TokenIdent, TokenIn, TokenLBracket, TokenNumber, TokenComma, TokenNumber, TokenRBracket, TokenEOF,
			},
		},
		{
			name:  "keywords are case sensitive",
			input: `and or`,
			want:  []TokenKind{TokenIdent, TokenIdent, TokenEOF},
		},
		{
			name:  "empty",
			input: "   ",
			want:  []TokenKind{TokenEOF},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := Lex(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, kinds(tokens))
		})
	}
}

func TestLex_StringEscapes(t *testing.T) {
	tokens, err := Lex(`"a\"b\n\t\\c\'"`)
	require.NoError(t, err)
	assert.Equal(t, "a\"b\n\t\\c'", tokens[0].Text)
}

func TestLex_Numbers(t *testing.T) {
	tokens, err := Lex(`-3 +4.25 17`)
	require.NoError(t, err)
	assert.Equal(t, -3.0, tokens[0].Num)
	assert.Equal(t, 4.25, tokens[1].Num)
	assert.Equal(t, 17.0, tokens[2].Num)
}

func TestLex_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		text  string
	}{
		{"unterminated string", `name == "abc`, `"abc`},
		{"unknown character", `name = "x"`, "="},
		{"stray symbol", `a == 1 # b`, "#"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Lex(tt.input)
			require.Error(t, err)
			var syn *SyntaxError
			require.ErrorAs(t, err, &syn)
			assert.Equal(t, tt.text, syn.Text)
		})
	}
}
