package terraform

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	apperrors "github.com/pratik-mahalle/iamgen/internal/pkg/errors"
)

// TemplateExt is appended to logical template names on disk
const TemplateExt = ".tf.tmpl"

//go:embed templates
var defaultTemplates embed.FS

// Template is a loaded template body and where it came from
type Template struct {
	Name     string
	Location string
	Body     string
}

// TemplateStore resolves templates by logical name such as "aws/iam_user"
type TemplateStore interface {
	Load(name string) (*Template, error)
}

// TemplateTier is one place templates may live
type TemplateTier interface {
	// Open reads name and reports the location it looked at; a missing template yields fs.ErrNotExist
	Open(name string) ([]byte, string, error)
}

// DirTier reads templates from a directory on disk
type DirTier struct {
	Dir string
}

// Open implements TemplateTier
func (t DirTier) Open(name string) ([]byte, string, error) {
	location := filepath.Join(t.Dir, filepath.FromSlash(name)+TemplateExt)
	body, err := os.ReadFile(location)
	return body, location, err
}

// FSTier reads templates from an fs.FS rooted at Root
type FSTier struct {
	FS    fs.FS
	Root  string
	Label string
}

// Open implements TemplateTier
func (t FSTier) Open(name string) ([]byte, string, error) {
	p := path.Join(t.Root, name+TemplateExt)
	body, err := fs.ReadFile(t.FS, p)
	return body, t.Label + ":" + p, err
}

// DefaultTier returns the templates bundled into the binary
func DefaultTier() TemplateTier {
	return FSTier{FS: defaultTemplates, Root: "templates", Label: "embedded"}
}

// LayeredStore consults its tiers in order; the first tier holding a template wins
type LayeredStore struct {
	tiers []TemplateTier
}

// NewLayeredStore creates a store over explicit tiers
func NewLayeredStore(tiers ...TemplateTier) *LayeredStore {
	return &LayeredStore{tiers: tiers}
}

// NewTemplateStore creates the standard two-tier store. An empty overrideDir leaves only the
// bundled defaults.
func NewTemplateStore(overrideDir string) *LayeredStore {
	var tiers []TemplateTier
	if overrideDir != "" {
		tiers = append(tiers, DirTier{Dir: overrideDir})
	}
	return NewLayeredStore(append(tiers, DefaultTier())...)
}

// Load implements TemplateStore
func (s *LayeredStore) Load(name string) (*Template, error) {
	searched := make([]string, 0, len(s.tiers))
	for _, tier := range s.tiers {
		body, location, err := tier.Open(name)
		searched = append(searched, location)
		if err == nil {
			return &Template{Name: name, Location: location, Body: string(body)}, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.TemplateError(fmt.Sprintf("failed to read template %s", name), searched, err)
		}
	}
	return nil, apperrors.TemplateError(fmt.Sprintf("template %s not found", name), searched, nil)
}
