package terraform

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"

	"github.com/pratik-mahalle/iamgen/internal/domain/scan"
	apperrors "github.com/pratik-mahalle/iamgen/internal/pkg/errors"
)

// Renderer turns instances into formatted, parse-checked HCL
type Renderer struct {
	store  TemplateStore
	parser *Parser

	mu    sync.Mutex
	cache map[string]*compiled
}

type compiled struct {
	tmpl     *template.Template
	location string
}

// NewRenderer creates a renderer reading templates from store
func NewRenderer(store TemplateStore) *Renderer {
	return &Renderer{
		store:  store,
		parser: NewParser(),
		cache:  make(map[string]*compiled),
	}
}

// Render renders a single instance through the template of m
func (r *Renderer) Render(m Mapping, inst Instance) ([]byte, error) {
	return r.RenderAll(m, []Instance{inst})
}

// RenderAll renders instances into one file body, separated by blank lines
func (r *Renderer) RenderAll(m Mapping, instances []Instance) ([]byte, error) {
	c, err := r.compile(m.Template)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	for i, inst := range instances {
		if i > 0 {
			buf.WriteString("\n")
		}
		data := map[string]any{
			"resource_name": inst.Label,
			m.Role:          inst.Record,
		}
		if err := c.tmpl.Execute(&buf, data); err != nil {
			return nil, apperrors.TemplateError(
				fmt.Sprintf("failed to render %s %q with template %s", m.Category, inst.Label, m.Template),
				[]string{c.location}, err)
		}
		buf.WriteString("\n")
	}

	out := hclwrite.Format(buf.Bytes())
	if _, err := r.parser.Parse(out, m.Category+".tf"); err != nil {
		return nil, apperrors.TemplateError(
			fmt.Sprintf("template %s produced invalid HCL", m.Template), []string{c.location}, err)
	}
	return out, nil
}

func (r *Renderer) compile(name string) (*compiled, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.cache[name]; ok {
		return c, nil
	}

	t, err := r.store.Load(name)
	if err != nil {
		return nil, err
	}

	tmpl, err := template.New(name).
		Option("missingkey=zero").
		Funcs(templateFuncs).
		Parse(t.Body)
	if err != nil {
		return nil, apperrors.TemplateError(fmt.Sprintf("template %s has invalid syntax", name), []string{t.Location}, err)
	}

	c := &compiled{tmpl: tmpl, location: t.Location}
	r.cache[name] = c
	return c, nil
}

var templateFuncs = template.FuncMap{
	"hcl":     hclLiteral,
	"heredoc": heredoc,
	"first":   first,
}

// hclLiteral renders v as an HCL expression, escaping interpolation sequences
func hclLiteral(v any) string {
	return string(hclwrite.TokensForValue(ctyValue(v)).Bytes())
}

func ctyValue(v any) cty.Value {
	switch val := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType)
	case string:
		return cty.StringVal(val)
	case bool:
		return cty.BoolVal(val)
	case int:
		return cty.NumberIntVal(int64(val))
	case int32:
		return cty.NumberIntVal(int64(val))
	case int64:
		return cty.NumberIntVal(val)
	case float64:
		return cty.NumberFloatVal(val)
	case json.Number:
		if n, err := cty.ParseNumberVal(val.String()); err == nil {
			return n
		}
		return cty.StringVal(val.String())
	case []string:
		if len(val) == 0 {
			return cty.ListValEmpty(cty.String)
		}
		items := make([]cty.Value, 0, len(val))
		for _, s := range val {
			items = append(items, cty.StringVal(s))
		}
		return cty.ListVal(items)
	case []any:
		if len(val) == 0 {
			return cty.EmptyTupleVal
		}
		items := make([]cty.Value, 0, len(val))
		for _, item := range val {
			items = append(items, ctyValue(item))
		}
		return cty.TupleVal(items)
	case map[string]string:
		if len(val) == 0 {
			return cty.MapValEmpty(cty.String)
		}
		attrs := make(map[string]cty.Value, len(val))
		for k, s := range val {
			attrs[k] = cty.StringVal(s)
		}
		return cty.MapVal(attrs)
	case scan.Record:
		return ctyValue(map[string]any(val))
	case map[string]any:
		if len(val) == 0 {
			return cty.EmptyObjectVal
		}
		attrs := make(map[string]cty.Value, len(val))
		for k, item := range val {
			attrs[k] = ctyValue(item)
		}
		return cty.ObjectVal(attrs)
	default:
		return cty.StringVal(fmt.Sprint(val))
	}
}

// heredoc renders a JSON document as an indented heredoc, or null when empty
func heredoc(v any) string {
	doc, _ := v.(string)
	if strings.TrimSpace(doc) == "" {
		return "null"
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, []byte(doc), "", "  "); err == nil {
		doc = pretty.String()
	}
	doc = strings.NewReplacer("${", "$${", "%{", "%%{").Replace(doc)

	marker := "EOT"
	for containsLine(doc, marker) {
		marker += "_"
	}
	return "<<" + marker + "\n" + doc + "\n" + marker
}

func containsLine(doc, line string) bool {
	for _, l := range strings.Split(doc, "\n") {
		if strings.TrimSpace(l) == line {
			return true
		}
	}
	return false
}

// first returns the first element of a list, or nil
func first(v any) any {
	switch val := v.(type) {
	case []any:
		if len(val) > 0 {
			return val[0]
		}
	case []string:
		if len(val) > 0 {
			return val[0]
		}
	}
	return nil
}
