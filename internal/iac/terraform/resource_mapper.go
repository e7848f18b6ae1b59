package terraform

import (
	"fmt"

	"github.com/pratik-mahalle/iamgen/internal/domain/scan"
)

// Mapping binds a scanned category to the template that renders it
type Mapping struct {
	Category     string
	Template     string
	Role         string
	ResourceType string
	NameField    string
	// ImportID builds the terraform import id of a record, "" when it cannot be imported
	ImportID func(scan.Record) string
}

var mappings = map[scan.Provider][]Mapping{
	scan.ProviderAWS: {
		{
			Category:     scan.CategoryUsers,
			Template:     "aws/iam_user",
			Role:         "user",
			ResourceType: "aws_iam_user",
			NameField:    "user_name",
			ImportID:     awsImportID("user_name"),
		},
		{
			Category:     scan.CategoryGroups,
			Template:     "aws/iam_group",
			Role:         "group",
			ResourceType: "aws_iam_group",
			NameField:    "group_name",
			ImportID:     awsImportID("group_name"),
		},
		{
			Category:     scan.CategoryRoles,
			Template:     "aws/iam_role",
			Role:         "role",
			ResourceType: "aws_iam_role",
			NameField:    "role_name",
			ImportID:     awsImportID("role_name"),
		},
		{
			Category:     scan.CategoryPolicies,
			Template:     "aws/iam_policy",
			Role:         "policy",
			ResourceType: "aws_iam_policy",
			NameField:    "policy_name",
			ImportID:     awsImportID("arn"),
		},
	},
	scan.ProviderAzure: {
		{
			Category:     scan.CategoryRoleDefinitions,
			Template:     "azure/role_definition",
			Role:         "resource",
			ResourceType: "azurerm_role_definition",
			NameField:    "role_name",
			ImportID:     azureRoleDefinitionImportID,
		},
		{
			Category:     scan.CategoryRoleAssignments,
			Template:     "azure/role_assignment",
			Role:         "resource",
			ResourceType: "azurerm_role_assignment",
			NameField:    "name",
			ImportID:     func(r scan.Record) string { return r.String("id") },
		},
	},
}

// Mappings returns the template-mapped categories of provider, in generation order
func Mappings(provider scan.Provider) []Mapping {
	return mappings[provider]
}

// MappingFor looks up the mapping of category
func MappingFor(provider scan.Provider, category string) (Mapping, bool) {
	for _, m := range mappings[provider] {
		if m.Category == category {
			return m, true
		}
	}
	return Mapping{}, false
}

// Address returns the terraform address of an instance rendered through m
func (m Mapping) Address(label string) string {
	return fmt.Sprintf("%s.%s", m.ResourceType, label)
}

// AWS records are only importable once the scan resolved their ARN
func awsImportID(field string) func(scan.Record) string {
	return func(r scan.Record) string {
		if r.String("arn") == "" {
			return ""
		}
		return r.String(field)
	}
}

func azureRoleDefinitionImportID(r scan.Record) string {
	id := r.String("id")
	if id == "" {
		return ""
	}
	if scopes := r.Strings("assignable_scopes"); len(scopes) > 0 {
		return id + "|" + scopes[0]
	}
	return id
}
