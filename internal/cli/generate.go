package cli

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pratik-mahalle/iamgen/internal/domain/generation"
	"github.com/pratik-mahalle/iamgen/internal/domain/scan"
)

func newGenerateCmd() *cobra.Command {
	var (
		outputDir     string
		split         string
		naming        string
		script        string
		readme        bool
		previewChars  int
		showPreview   bool
		selectionFile string
	)

	cmd := &cobra.Command{
		Use:   "generate <scan-id>",
		Short: "Generate Terraform for the selected resources of a scan",
		Long: `Render the selected resources of a completed scan into Terraform files plus an
import script, written to a fresh directory below the output directory.

Without --selection-file the selection stored with 'iamgen select' is used.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defaults := application.cfg.Generation
			req := generation.Request{
				ScanID: args[0],
				Config: generation.Config{
					OutputDir:          pick(cmd, "output-dir", outputDir, defaults.OutputDir),
					FileSplit:          pick(cmd, "split", split, defaults.FileSplit),
					NamingConvention:   pick(cmd, "naming", naming, defaults.NamingConvention),
					ImportScriptFormat: pick(cmd, "import-script", script, defaults.ImportScriptFormat),
					IncludeReadme:      readme,
					PreviewChars:       defaults.PreviewChars,
				},
			}
			if cmd.Flags().Changed("preview-chars") {
				req.Config.PreviewChars = previewChars
			}

			if selectionFile != "" {
				sel, err := readSelection(selectionFile)
				if err != nil {
					return err
				}
				req.Selection = sel
			}

			result, err := application.generator.Generate(context.Background(), req)
			if err != nil {
				return fmt.Errorf("generation failed: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(result)
			}

			printHeading("Generated %s", result.GenerationID)
			fmt.Printf("Output:        %s\n", result.OutputPath)
			if result.ImportScriptPath != "" {
				fmt.Printf("Import script: %s\n", result.ImportScriptPath)
			}
			fmt.Println()
			t := NewTable("FILE")
			for _, f := range result.Files {
				t.AddRow(f)
			}
			t.Render()

			if showPreview {
				names := make([]string, 0, len(result.Preview))
				for name := range result.Preview {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					fmt.Println()
					printHeading("%s", name)
					fmt.Println(result.Preview[name])
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output-dir", "d", "", "directory the generation folder is created in")
	cmd.Flags().StringVar(&split, "split", "", "file layout: single, by_resource_type, by_resource_name")
	cmd.Flags().StringVar(&naming, "naming", "", "resource label convention: snake_case, kebab-case, original")
	cmd.Flags().StringVar(&script, "import-script", "", "import script format: bash, powershell, none")
	cmd.Flags().BoolVar(&readme, "readme", true, "write a README.md with next steps")
	cmd.Flags().IntVar(&previewChars, "preview-chars", 0, "characters of each file kept in the preview")
	cmd.Flags().BoolVar(&showPreview, "preview", false, "print the preview of every generated file")
	cmd.Flags().StringVar(&selectionFile, "selection-file", "", "YAML file mapping categories to identities, used instead of the stored selection")

	return cmd
}

// pick returns the flag value when the flag was set, otherwise the configured default
func pick(cmd *cobra.Command, flag, value, fallback string) string {
	if cmd.Flags().Changed(flag) {
		return value
	}
	return fallback
}

func readSelection(path string) (scan.Selection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read selection: %w", err)
	}
	sel := scan.Selection{}
	if err := yaml.Unmarshal(data, &sel); err != nil {
		return nil, fmt.Errorf("failed to parse selection: %w", err)
	}
	return sel, nil
}
