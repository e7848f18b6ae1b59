package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pratik-mahalle/iamgen/internal/services"
)

func newQueryCmd() *cobra.Command {
	var (
		categories []string
		page       int
		pageSize   int
	)

	cmd := &cobra.Command{
		Use:   "query <scan-id> [expression]",
		Short: "Filter the records of a completed scan",
		Long: `Filter the records of a completed scan with a boolean expression.

Comparisons use ==, !=, LIKE and IN and combine with AND, OR, NOT and
parentheses. LIKE patterns may contain * and ? wildcards.

  iamgen query <scan-id> 'user_name LIKE "app-*" AND NOT path == "/system/"'
  iamgen query <scan-id> 'role_name IN ["ci-runner", "deployer"]'`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := services.QueryRequest{
				ScanID:     args[0],
				Categories: categories,
				Page:       page,
				PageSize:   pageSize,
			}
			if len(args) == 2 {
				req.Query = args[1]
			}

			result, err := application.queries.Query(context.Background(), req)
			if err != nil {
				return fmt.Errorf("query failed: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(result)
			}

			t := NewTable("CATEGORY", "IDENTITY", "NAME")
			for _, m := range result.Matches {
				t.AddRow(m.Category, truncate(m.Identity, 80), displayName(m.Record))
			}
			t.Render()
			fmt.Printf("\nPage %d of %d (%d matches)\n", result.Page, result.TotalPages, result.Total)
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&categories, "category", "c", nil, "restrict to these categories")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 20, "matches per page (max 100)")

	return cmd
}

var nameFields = []string{"user_name", "group_name", "role_name", "policy_name", "principal_display_name", "name"}

func displayName(rec map[string]any) string {
	for _, f := range nameFields {
		if v, ok := rec[f].(string); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return "-"
}
