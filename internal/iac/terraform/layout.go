package terraform

import (
	"fmt"
	"strings"

	"github.com/pratik-mahalle/iamgen/internal/domain/generation"
	"github.com/pratik-mahalle/iamgen/internal/domain/scan"
)

// File is one generated .tf file
type File struct {
	Name string
	Body []byte
}

// Files renders sets into .tf files under the split policy. "by_resource_name" yields one file
// per instance; every other policy yields one file per category.
func (r *Renderer) Files(sets []ResourceSet, split, convention string) ([]File, error) {
	var files []File
	for _, set := range sets {
		instances := set.Instances(convention)
		if len(instances) == 0 {
			continue
		}

		if split == generation.SplitByResourceName {
			for _, inst := range instances {
				body, err := r.Render(set.Mapping, inst)
				if err != nil {
					return nil, err
				}
				files = append(files, File{
					Name: fmt.Sprintf("%s_%s.tf", set.Mapping.Category, inst.Label),
					Body: body,
				})
			}
			continue
		}

		body, err := r.RenderAll(set.Mapping, instances)
		if err != nil {
			return nil, err
		}
		files = append(files, File{Name: set.Mapping.Category + ".tf", Body: body})
	}
	return files, nil
}

// Readme describes a generation directory and the steps to adopt it
func Readme(provider scan.Provider, files []string, script *ImportScript) string {
	var b strings.Builder
	b.WriteString("# Generated Terraform configuration\n\n")
	fmt.Fprintf(&b, "Resources scanned from %s.\n\n", provider)

	b.WriteString("## Files\n\n")
	for _, f := range files {
		fmt.Fprintf(&b, "- `%s`\n", f)
	}
	if script != nil {
		fmt.Fprintf(&b, "- `%s` (%d import commands)\n", script.Filename, script.Commands)
	}

	b.WriteString("\n## Next steps\n\n")
	b.WriteString("1. Add a provider block and backend configuration for your environment.\n")
	b.WriteString("2. Run `terraform init`.\n")
	if script != nil {
		if strings.HasSuffix(script.Filename, ".ps1") {
			fmt.Fprintf(&b, "3. Run `./%s` to import the existing resources into state.\n", script.Filename)
		} else {
			fmt.Fprintf(&b, "3. Run `bash %s` to import the existing resources into state.\n", script.Filename)
		}
	} else {
		b.WriteString("3. Import the existing resources with `terraform import`.\n")
	}
	b.WriteString("4. Run `terraform plan` and confirm no changes are proposed.\n")
	return b.String()
}
