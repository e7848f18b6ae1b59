package terraform

import (
	"github.com/hashicorp/hcl/v2"

	"github.com/pratik-mahalle/iamgen/internal/domain/scan"
)

// Resource is one resource block found in generated HCL
type Resource struct {
	Type       string   `json:"type"`
	Name       string   `json:"name"`
	Address    string   `json:"address"`
	Attributes []string `json:"attributes"`
	Filename   string   `json:"filename"`
}

// ParseResult is the outcome of parsing generated HCL
type ParseResult struct {
	Resources   []Resource      `json:"resources"`
	Diagnostics hcl.Diagnostics `json:"-"`
}

// Addresses returns the resource addresses in file order
func (r *ParseResult) Addresses() []string {
	out := make([]string, 0, len(r.Resources))
	for _, res := range r.Resources {
		out = append(out, res.Address)
	}
	return out
}

// Duplicates returns every address declared more than once, in first-seen order
func (r *ParseResult) Duplicates() []string {
	seen := make(map[string]int, len(r.Resources))
	var dups []string
	for _, res := range r.Resources {
		seen[res.Address]++
		if seen[res.Address] == 2 {
			dups = append(dups, res.Address)
		}
	}
	return dups
}

// Instance is one record ready to render, labelled uniquely within its category
type Instance struct {
	Category string
	Label    string
	Record   scan.Record
}

// ResourceSet is the filtered records of one template-mapped category
type ResourceSet struct {
	Mapping Mapping
	Records []scan.Record
}

// Instances labels every record of the set under convention
func (s ResourceSet) Instances(convention string) []Instance {
	l := newLabeler(convention)
	out := make([]Instance, 0, len(s.Records))
	for _, r := range s.Records {
		name := r.String(s.Mapping.NameField)
		if name == "" {
			name = scan.IdentityOf(s.Mapping.Category, r)
		}
		out = append(out, Instance{
			Category: s.Mapping.Category,
			Label:    l.next(name),
			Record:   r,
		})
	}
	return out
}
