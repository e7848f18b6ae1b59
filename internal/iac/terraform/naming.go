package terraform

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/pratik-mahalle/iamgen/internal/domain/generation"
)

// ApplyNamingConvention transforms a resource label. Unknown conventions return name unchanged.
func ApplyNamingConvention(name, convention string) string {
	switch convention {
	case generation.NamingSnakeCase:
		return strings.ToLower(strings.NewReplacer("-", "_", ".", "_").Replace(name))
	case generation.NamingKebabCase:
		return strings.ToLower(strings.NewReplacer("_", "-", ".", "-").Replace(name))
	default:
		return name
	}
}

// ResourceLabel turns a resource name into a valid HCL block label under convention
func ResourceLabel(name, convention string) string {
	label := ApplyNamingConvention(name, convention)

	var b strings.Builder
	for _, r := range label {
		switch {
		case r == '_' || r == '-' || unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	label = b.String()

	if label == "" {
		return "resource"
	}
	if first := []rune(label)[0]; !unicode.IsLetter(first) && first != '_' {
		label = "_" + label
	}
	return label
}

// labeler hands out labels that are unique within one category. A generated suffix never
// reuses a label already issued, including one that came verbatim from another record.
type labeler struct {
	convention string
	issued     map[string]bool
	suffix     map[string]int
}

func newLabeler(convention string) *labeler {
	return &labeler{
		convention: convention,
		issued:     make(map[string]bool),
		suffix:     make(map[string]int),
	}
}

func (l *labeler) next(name string) string {
	base := ResourceLabel(name, l.convention)
	label := base
	if l.issued[label] {
		n := l.suffix[base]
		if n < 1 {
			n = 1
		}
		for l.issued[label] {
			n++
			label = fmt.Sprintf("%s_%d", base, n)
		}
		l.suffix[base] = n
	}
	l.issued[label] = true
	return label
}
