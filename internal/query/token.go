package query

import "fmt"

// TokenKind classifies a lexical token
type TokenKind int

const (
	TokenEOF TokenKind = iota
	TokenIdent
	TokenString
	TokenNumber
	TokenTrue
	TokenFalse
	TokenAnd
	TokenOr
	TokenNot
	TokenLike
	TokenIn
	TokenEq
	TokenNeq
	TokenLParen
	TokenRParen
	TokenLBracket
	TokenRBracket
	TokenComma
	TokenDot
)

var tokenNames = map[TokenKind]string{
	TokenEOF:      "end of input",
	TokenIdent:    "identifier",
	TokenString:   "string",
	TokenNumber:   "number",
	TokenTrue:     "true",
	TokenFalse:    "false",
	TokenAnd:      "AND",
	TokenOr:       "OR",
	TokenNot:      "NOT",
	TokenLike:     "LIKE",
	TokenIn:       "IN",
	TokenEq:       "==",
	TokenNeq:      "!=",
	TokenLParen:   "(",
	TokenRParen:   ")",
	TokenLBracket: "[",
	TokenRBracket: "]",
	TokenComma:    ",",
	TokenDot:      ".",
}

func (k TokenKind) String() string {
	if name, ok := tokenNames[k]; ok {
		return name
	}
	return fmt.Sprintf("token(%d)", int(k))
}

var keywords = map[string]TokenKind{
	"true":  TokenTrue,
	"false": TokenFalse,
	"AND":   TokenAnd,
	"OR":    TokenOr,
	"NOT":   TokenNot,
	"LIKE":  TokenLike,
	"IN":    TokenIn,
}

// Token is one lexical unit. Pos is the character offset in the query text.
type Token struct {
	Kind TokenKind
	Text string
	Num  float64
	Pos  int
}

func (t Token) describe() string {
	switch t.Kind {
	case TokenEOF:
		return "end of input"
	case TokenString:
		return fmt.Sprintf("string %q", t.Text)
	default:
		return fmt.Sprintf("%q", t.Text)
	}
}

// SyntaxError is a lexical or parse failure
type SyntaxError struct {
	Pos     int
	Text    string
	Message string
}

func (e *SyntaxError) Error() string {
	if e.Text != "" {
		return fmt.Sprintf("%s at position %d: %q", e.Message, e.Pos, e.Text)
	}
	return fmt.Sprintf("%s at position %d", e.Message, e.Pos)
}
