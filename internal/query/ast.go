package query

import (
	"strconv"
	"strings"
)

// Operator is a comparison operator
type Operator string

const (
	OpEq   Operator = "=="
	OpNeq  Operator = "!="
	OpLike Operator = "LIKE"
	OpIn   Operator = "IN"
)

// ValueKind tags a literal value
type ValueKind int

const (
	KindString ValueKind = iota
	KindNumber
	KindBool
	KindArray
)

// Value is a literal on the right-hand side of a comparison
type Value struct {
	Kind  ValueKind
	Str   string
	Num   float64
	Bool  bool
	Items []Value
}

// String renders the value in query syntax
func (v Value) String() string {
	switch v.Kind {
	case KindString:
		return strconv.Quote(v.Str)
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindArray:
		parts := make([]string, len(v.Items))
		for i, item := range v.Items {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return ""
}

// Expr is a compiled query predicate. Expressions are immutable and safe for concurrent use.
type Expr interface {
	Eval(record map[string]any) bool
	String() string
}

// Comparison tests one field against a literal
type Comparison struct {
	Field []string
	Op    Operator
	Value Value
}

// And is true when both sides are true
type And struct {
	Left, Right Expr
}

// Or is true when either side is true
type Or struct {
	Left, Right Expr
}

// Not negates its operand
type Not struct {
	Expr Expr
}

func (c *Comparison) String() string {
	return strings.Join(c.Field, ".") + " " + string(c.Op) + " " + c.Value.String()
}

func (a *And) String() string {
	return "(" + a.Left.String() + " AND " + a.Right.String() + ")"
}

func (o *Or) String() string {
	return "(" + o.Left.String() + " OR " + o.Right.String() + ")"
}

func (n *Not) String() string {
	return "NOT " + n.Expr.String()
}
