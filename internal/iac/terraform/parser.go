package terraform

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
)

// Parser reads generated HCL back to confirm it is well formed
type Parser struct{}

// NewParser creates a new HCL parser
func NewParser() *Parser {
	return &Parser{}
}

// Parse parses HCL content and collects its resource blocks
func (p *Parser) Parse(content []byte, filename string) (*ParseResult, error) {
	result := &ParseResult{Resources: make([]Resource, 0)}

	// hclparse caches by filename, so a fresh parser keeps repeated renders independent
	file, diags := hclparse.NewParser().ParseHCL(content, filename)
	result.Diagnostics = diags

	if diags.HasErrors() {
		return result, fmt.Errorf("HCL parsing failed: %s", diags.Error())
	}

	if file == nil || file.Body == nil {
		return result, fmt.Errorf("empty HCL file")
	}

	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return result, fmt.Errorf("unexpected body type")
	}

	for _, block := range body.Blocks {
		if block.Type != "resource" {
			continue
		}
		resource, err := parseResourceBlock(block, filename)
		if err != nil {
			return result, err
		}
		result.Resources = append(result.Resources, *resource)
	}

	return result, nil
}

// ParseFile parses a single .tf file
func (p *Parser) ParseFile(filename string) (*ParseResult, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return p.Parse(content, filename)
}

// ParseDirectory parses every .tf file directly inside dir
func (p *Parser) ParseDirectory(dir string) (*ParseResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	combined := &ParseResult{Resources: make([]Resource, 0)}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".tf") {
			continue
		}

		result, err := p.ParseFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", entry.Name(), err)
		}
		combined.Resources = append(combined.Resources, result.Resources...)
		combined.Diagnostics = append(combined.Diagnostics, result.Diagnostics...)
	}

	return combined, nil
}

func parseResourceBlock(block *hclsyntax.Block, filename string) (*Resource, error) {
	if len(block.Labels) < 2 {
		return nil, fmt.Errorf("resource block requires 2 labels (type and name)")
	}

	attrs := make([]string, 0, len(block.Body.Attributes))
	for name := range block.Body.Attributes {
		attrs = append(attrs, name)
	}
	sort.Strings(attrs)

	return &Resource{
		Type:       block.Labels[0],
		Name:       block.Labels[1],
		Address:    fmt.Sprintf("%s.%s", block.Labels[0], block.Labels[1]),
		Attributes: attrs,
		Filename:   filepath.Base(filename),
	}, nil
}
