package query

import (
	"strconv"
	"strings"
	"unicode"
)

// Lex splits input into tokens, terminated by a TokenEOF token
func Lex(input string) ([]Token, error) {
	l := &lexer{src: []rune(input)}
	var tokens []Token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Kind == TokenEOF {
			return tokens, nil
		}
	}
}

var punctuation = map[rune]TokenKind{
	'(': TokenLParen,
	')': TokenRParen,
	'[': TokenLBracket,
	']': TokenRBracket,
	',': TokenComma,
	'.': TokenDot,
}

type lexer struct {
	src []rune
	pos int
}

func (l *lexer) peek(offset int) rune {
	i := l.pos + offset
	if i >= len(l.src) {
		return 0
	}
	return l.src[i]
}

func (l *lexer) next() (Token, error) {
	for l.pos < len(l.src) && unicode.IsSpace(l.src[l.pos]) {
		l.pos++
	}
	start := l.pos
	if l.pos >= len(l.src) {
		return Token{Kind: TokenEOF, Pos: start}, nil
	}

	c := l.src[l.pos]
	switch {
	case c == '"' || c == '\'':
		return l.lexString(c)
	case isDigit(c), (c == '-' || c == '+') && isDigit(l.peek(1)):
		return l.lexNumber()
	case isIdentStart(c):
		for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
			l.pos++
		}
		text := string(l.src[start:l.pos])
		if kind, ok := keywords[text]; ok {
			return Token{Kind: kind, Text: text, Pos: start}, nil
		}
		return Token{Kind: TokenIdent, Text: text, Pos: start}, nil
	}

	if kind, ok := punctuation[c]; ok {
		l.pos++
		return Token{Kind: kind, Text: string(c), Pos: start}, nil
	}

	if (c == '=' || c == '!') && l.peek(1) == '=' {
		l.pos += 2
		kind := TokenEq
		if c == '!' {
			kind = TokenNeq
		}
		return Token{Kind: kind, Text: string(l.src[start:l.pos]), Pos: start}, nil
	}

	return Token{}, &SyntaxError{Pos: start, Text: string(c), Message: "unexpected character"}
}

func (l *lexer) lexString(quote rune) (Token, error) {
	start := l.pos
	l.pos++
	var b strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == quote:
			l.pos++
			return Token{Kind: TokenString, Text: b.String(), Pos: start}, nil
		case c == '\\' && l.pos+1 < len(l.src):
			l.pos++
			switch esc := l.src[l.pos]; esc {
			case 'n':
				b.WriteRune('\n')
			case 't':
				b.WriteRune('\t')
			case 'r':
				b.WriteRune('\r')
			case '\\', '"', '\'':
				b.WriteRune(esc)
			default:
				b.WriteRune('\\')
				b.WriteRune(esc)
			}
		default:
			b.WriteRune(c)
		}
		l.pos++
	}
	return Token{}, &SyntaxError{Pos: start, Text: string(l.src[start:]), Message: "unterminated string"}
}

func (l *lexer) lexNumber() (Token, error) {
	start := l.pos
	if c := l.src[l.pos]; c == '-' || c == '+' {
		l.pos++
	}
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.pos++
	}
	if l.peek(0) == '.' && isDigit(l.peek(1)) {
		l.pos++
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
	}
	text := string(l.src[start:l.pos])
	n, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return Token{}, &SyntaxError{Pos: start, Text: text, Message: "invalid number"}
	}
	return Token{Kind: TokenNumber, Text: text, Num: n, Pos: start}, nil
}

func isDigit(c rune) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c rune) bool {
	return c == '_' || unicode.IsLetter(c)
}

func isIdentPart(c rune) bool {
	return isIdentStart(c) || isDigit(c)
}
