package query

import (
	"fmt"
	"math"
)

const epsilon = 1e-9

// Evaluate applies expr to record. A nil expression matches every record.
func Evaluate(expr Expr, record map[string]any) bool {
	if expr == nil {
		return true
	}
	return expr.Eval(record)
}

// Eval implements Expr
func (c *Comparison) Eval(record map[string]any) bool {
	actual, ok := resolve(record, c.Field)
	if !ok {
		return false
	}
	switch c.Op {
	case OpEq:
		return equal(actual, c.Value)
	case OpNeq:
		return !equal(actual, c.Value)
	case OpLike:
		text, ok := actual.(string)
		if !ok || c.Value.Kind != KindString {
			return false
		}
		return WildcardMatch(text, c.Value.Str)
	case OpIn:
		if c.Value.Kind != KindArray {
			return equal(actual, c.Value)
		}
		for _, item := range c.Value.Items {
			if equal(actual, item) {
				return true
			}
		}
		return false
	}
	return false
}

// Eval implements Expr
func (a *And) Eval(record map[string]any) bool {
	return a.Left.Eval(record) && a.Right.Eval(record)
}

// Eval implements Expr
func (o *Or) Eval(record map[string]any) bool {
	return o.Left.Eval(record) || o.Right.Eval(record)
}

// Eval implements Expr
func (n *Not) Eval(record map[string]any) bool {
	return !n.Expr.Eval(record)
}

func resolve(record map[string]any, path []string) (any, bool) {
	var current any = record
	for _, key := range path {
		switch m := current.(type) {
		case map[string]any:
			v, ok := m[key]
			if !ok {
				return nil, false
			}
			current = v
		case map[string]string:
			v, ok := m[key]
			if !ok {
				return nil, false
			}
			current = v
		default:
			if nested, ok := asMap(current); ok {
				v, ok := nested[key]
				if !ok {
					return nil, false
				}
				current = v
				continue
			}
			return nil, false
		}
	}
	return current, true
}

// asMap accepts named map types such as scan.Record
func asMap(v any) (map[string]any, bool) {
	type mapper interface {
		AsMap() map[string]any
	}
	if m, ok := v.(mapper); ok {
		return m.AsMap(), true
	}
	return nil, false
}

func equal(actual any, want Value) bool {
	switch want.Kind {
	case KindString:
		s, ok := actual.(string)
		if !ok {
			if st, isStringer := actual.(fmt.Stringer); isStringer {
				return st.String() == want.Str
			}
			return false
		}
		return s == want.Str
	case KindNumber:
		n, ok := toFloat(actual)
		if !ok {
			return false
		}
		return math.Abs(n-want.Num) < epsilon
	case KindBool:
		b, ok := actual.(bool)
		return ok && b == want.Bool
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}
