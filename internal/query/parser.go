package query

import "fmt"

// Parse compiles query text into an expression
func Parse(input string) (Expr, error) {
	tokens, err := Lex(input)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if tok := p.current(); tok.Kind != TokenEOF {
		return nil, p.errorf(tok, "expected AND, OR or end of input")
	}
	return expr, nil
}

// MustParse is like Parse but panics on error
func MustParse(input string) Expr {
	expr, err := Parse(input)
	if err != nil {
		panic(err)
	}
	return expr
}

type parser struct {
	tokens []Token
	pos    int
}

func (p *parser) current() Token {
	return p.tokens[p.pos]
}

func (p *parser) advance() Token {
	tok := p.tokens[p.pos]
	if tok.Kind != TokenEOF {
		p.pos++
	}
	return tok
}

func (p *parser) expect(kind TokenKind) (Token, error) {
	tok := p.current()
	if tok.Kind != kind {
		return tok, p.errorf(tok, fmt.Sprintf("expected %s", kind))
	}
	return p.advance(), nil
}

func (p *parser) errorf(tok Token, msg string) error {
	return &SyntaxError{
		Pos:     tok.Pos,
		Text:    tok.Text,
		Message: fmt.Sprintf("%s, found %s", msg, tok.describe()),
	}
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.current().Kind == TokenOr {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Or{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.current().Kind == TokenAnd {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &And{Left: left, Right: right}
	}
	return left, nil
}

// NOT does not chain: "NOT NOT x" is rejected
func (p *parser) parseNot() (Expr, error) {
	if p.current().Kind == TokenNot {
		p.advance()
		operand, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		return &Not{Expr: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Expr, error) {
	if p.current().Kind == TokenLParen {
		p.advance()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRParen); err != nil {
			return nil, err
		}
		return inner, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (Expr, error) {
	field, err := p.parseFieldPath()
	if err != nil {
		return nil, err
	}

	var op Operator
	switch tok := p.current(); tok.Kind {
	case TokenEq:
		op = OpEq
	case TokenNeq:
		op = OpNeq
	case TokenLike:
		op = OpLike
	case TokenIn:
		op = OpIn
	default:
		return nil, p.errorf(tok, "expected operator (==, !=, LIKE, IN)")
	}
	p.advance()

	value, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	return &Comparison{Field: field, Op: op, Value: value}, nil
}

func (p *parser) parseFieldPath() ([]string, error) {
	tok, err := p.expect(TokenIdent)
	if err != nil {
		return nil, err
	}
	path := []string{tok.Text}
	for p.current().Kind == TokenDot {
		p.advance()
		tok, err := p.expect(TokenIdent)
		if err != nil {
			return nil, err
		}
		path = append(path, tok.Text)
	}
	return path, nil
}

func (p *parser) parseValue() (Value, error) {
	tok := p.current()
	switch tok.Kind {
	case TokenString:
		p.advance()
		return Value{Kind: KindString, Str: tok.Text}, nil
	case TokenNumber:
		p.advance()
		return Value{Kind: KindNumber, Num: tok.Num}, nil
	case TokenTrue, TokenFalse:
		p.advance()
		return Value{Kind: KindBool, Bool: tok.Kind == TokenTrue}, nil
	case TokenLBracket:
		p.advance()
		var items []Value
		for {
			item, err := p.parseValue()
			if err != nil {
				return Value{}, err
			}
			items = append(items, item)
			if p.current().Kind != TokenComma {
				break
			}
			p.advance()
		}
		if _, err := p.expect(TokenRBracket); err != nil {
			return Value{}, err
		}
		return Value{Kind: KindArray, Items: items}, nil
	}
	return Value{}, p.errorf(tok, "expected value (string, number, boolean or array)")
}
