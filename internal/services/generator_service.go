package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/pratik-mahalle/iamgen/internal/domain/generation"
	"github.com/pratik-mahalle/iamgen/internal/domain/scan"
	"github.com/pratik-mahalle/iamgen/internal/iac/terraform"
	apperrors "github.com/pratik-mahalle/iamgen/internal/pkg/errors"
	"github.com/pratik-mahalle/iamgen/internal/pkg/logger"
	"github.com/pratik-mahalle/iamgen/internal/pkg/metrics"
	"github.com/pratik-mahalle/iamgen/internal/pkg/validator"
)

// GeneratorService renders the selected resources of a scan into Terraform
type GeneratorService struct {
	scans      scan.Store
	selections scan.SelectionStore
	renderer   *terraform.Renderer
	parser     *terraform.Parser
	logger     *logger.Logger
}

// NewGeneratorService creates a new generator service
func NewGeneratorService(scans scan.Store, selections scan.SelectionStore, templates terraform.TemplateStore, log *logger.Logger) *GeneratorService {
	return &GeneratorService{
		scans:      scans,
		selections: selections,
		renderer:   terraform.NewRenderer(templates),
		parser:     terraform.NewParser(),
		logger:     log,
	}
}

// Generate implements generation.Service
func (s *GeneratorService) Generate(ctx context.Context, req generation.Request) (*generation.Result, error) {
	if errs := validator.Validate(req); len(errs) > 0 {
		return nil, apperrors.ConfigurationError("invalid generation config: "+strings.Join(validator.Messages(errs), "; "), errs)
	}
	cfg := req.Config

	doc, err := completedDocument(ctx, s.scans, req.ScanID)
	if err != nil {
		return nil, err
	}

	sel := req.Selection
	if sel == nil {
		if sel, err = s.selections.Get(ctx, req.ScanID); err != nil {
			return nil, apperrors.StoreError("failed to load selection", err)
		}
	}

	sets := SelectResources(doc, sel)
	files, err := s.renderer.Files(sets, cfg.FileSplit, cfg.NamingConvention)
	if err != nil {
		metrics.RecordGeneration("failed", 0)
		return nil, err
	}
	if len(files) == 0 {
		metrics.RecordGeneration("empty", 0)
		return nil, apperrors.GenerationEmptyError()
	}

	result := &generation.Result{GenerationID: uuid.New().String()}
	result.OutputPath = filepath.Join(cfg.OutputDir, result.GenerationID)
	if err := os.MkdirAll(result.OutputPath, 0o755); err != nil {
		return nil, apperrors.Internal("failed to create output directory", err)
	}

	names := make([]string, 0, len(files)+1)
	for _, f := range files {
		if err := writeFile(result.OutputPath, f.Name, f.Body, 0o644); err != nil {
			return nil, err
		}
		names = append(names, f.Name)
	}

	parsed, err := s.parser.ParseDirectory(result.OutputPath)
	if err != nil {
		metrics.RecordGeneration("failed", 0)
		return nil, apperrors.TemplateError("generated Terraform is not valid HCL", nil, err)
	}
	if dups := parsed.Duplicates(); len(dups) > 0 {
		metrics.RecordGeneration("failed", 0)
		return nil, apperrors.TemplateError("generated Terraform declares duplicate resources: "+strings.Join(dups, ", "), nil, nil)
	}

	script := terraform.BuildImportScript(cfg.ImportScriptFormat, terraform.ImportCommands(sets, cfg.NamingConvention))
	if script != nil {
		if err := writeFile(result.OutputPath, script.Filename, []byte(script.Body), 0o755); err != nil {
			return nil, err
		}
		result.ImportScriptPath = filepath.Join(result.OutputPath, script.Filename)
	}

	if cfg.IncludeReadme {
		readme := terraform.Readme(doc.Provider, names, script)
		if err := writeFile(result.OutputPath, "README.md", []byte(readme), 0o644); err != nil {
			return nil, err
		}
		names = append(names, "README.md")
	}
	result.Files = names

	if cfg.PreviewChars > 0 {
		result.Preview = make(map[string]string, len(files))
		for _, f := range files {
			result.Preview[f.Name] = preview(string(f.Body), cfg.PreviewChars)
		}
	}

	metrics.RecordGeneration("success", len(files))
	s.logger.WithFields(map[string]interface{}{
		"scan_id":       req.ScanID,
		"generation_id": result.GenerationID,
		"files":         len(files),
		"resources":     len(parsed.Resources),
		"import_script": script != nil,
	}).Info("Terraform generated")

	return result, nil
}

// SelectResources applies sel to the template-mapped categories of doc. An unrestricted category
// keeps every record; a category selected with an empty list is dropped.
func SelectResources(doc *scan.Document, sel scan.Selection) []terraform.ResourceSet {
	var sets []terraform.ResourceSet
	for _, m := range terraform.Mappings(doc.Provider) {
		records := doc.Records(m.Category)

		ids, restricted := sel.Identities(m.Category)
		if restricted {
			if len(ids) == 0 {
				continue
			}
			kept := make([]scan.Record, 0, len(ids))
			for _, r := range records {
				if _, ok := ids[scan.IdentityOf(m.Category, r)]; ok {
					kept = append(kept, r)
				}
			}
			records = kept
		}

		if len(records) > 0 {
			sets = append(sets, terraform.ResourceSet{Mapping: m, Records: records})
		}
	}
	return sets
}

func writeFile(dir, name string, body []byte, mode os.FileMode) error {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, body, mode); err != nil {
		return apperrors.Internal("failed to write "+name, err)
	}
	// WriteFile is subject to the umask
	if err := os.Chmod(path, mode); err != nil {
		return apperrors.Internal("failed to set mode of "+name, err)
	}
	return nil
}

func preview(body string, n int) string {
	runes := []rune(body)
	if len(runes) <= n {
		return body
	}
	return string(runes[:n])
}

var _ generation.Service = (*GeneratorService)(nil)
