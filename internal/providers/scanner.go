package providers

import (
	"context"
	"fmt"

	"github.com/pratik-mahalle/iamgen/internal/domain/scan"
	apperrors "github.com/pratik-mahalle/iamgen/internal/pkg/errors"
	"github.com/pratik-mahalle/iamgen/internal/pkg/logger"
)

// Category is one enumerable resource class of a provider
type Category struct {
	Name string

	// NameField is matched against the name_prefix filter; empty disables the filter
	NameField string

	// List enumerates every record of the category. A failure aborts the scan.
	List func(ctx context.Context) ([]scan.Record, error)

	// Enrich adds nested lookups to one record in place. A returned error only degrades the
	// record; the fields whose lookups failed are left out. Nil means no enrichment.
	Enrich func(ctx context.Context, record scan.Record) error
}

// Scanner enumerates the IAM resources of one provider account
type Scanner interface {
	// Provider returns the provider tag of produced documents
	Provider() scan.Provider

	// Prepare resolves credentials once per scan
	Prepare(ctx context.Context) error

	// Categories returns every supported category in scan order
	Categories() []Category
}

// Factory creates a scanner for one scan config
type Factory func(ctx context.Context, cfg scan.ScanConfig) (Scanner, error)

// NewFactory returns the factory used in production, backed by the real cloud SDKs
func NewFactory(log *logger.Logger) Factory {
	return func(ctx context.Context, cfg scan.ScanConfig) (Scanner, error) {
		switch cfg.Provider {
		case scan.ProviderAWS:
			return NewAWSScanner(ctx, cfg)
		case scan.ProviderAzure:
			return NewAzureScanner(cfg, log)
		default:
			return nil, apperrors.ConfigurationError(fmt.Sprintf("unsupported provider %q", cfg.Provider), nil)
		}
	}
}

// CategoryNames lists the categories a provider supports, in scan order
func CategoryNames(provider scan.Provider) []string {
	switch provider {
	case scan.ProviderAWS:
		return []string{
			scan.CategoryUsers,
			scan.CategoryGroups,
			scan.CategoryRoles,
			scan.CategoryPolicies,
			scan.CategoryPolicyAttachments,
		}
	case scan.ProviderAzure:
		return []string{
			scan.CategoryRoleDefinitions,
			scan.CategoryRoleAssignments,
		}
	}
	return nil
}

// DefaultCategories enables every category of provider
func DefaultCategories(provider scan.Provider) map[string]bool {
	out := make(map[string]bool)
	for _, name := range CategoryNames(provider) {
		out[name] = true
	}
	return out
}
