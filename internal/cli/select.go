package cli

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pratik-mahalle/iamgen/internal/domain/scan"
)

func newSelectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "select",
		Short: "Choose which scanned resources get generated",
		Long: `Manage the selection of a scan. Categories without a selection generate every
record; a category selected with no identities generates nothing.`,
	}

	cmd.AddCommand(newSelectShowCmd())
	cmd.AddCommand(newSelectSetCmd())
	cmd.AddCommand(newSelectQueryCmd())
	cmd.AddCommand(newSelectClearCmd())

	return cmd
}

func newSelectShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <scan-id>",
		Short: "Show the stored selection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := application.selections.Get(context.Background(), args[0])
			if err != nil {
				return fmt.Errorf("failed to get selection: %w", err)
			}
			return printSelection(sel)
		},
	}
}

func newSelectSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <scan-id> <category> [identity...]",
		Short: "Replace the selection of one category",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			markers := make([]any, 0, len(args)-2)
			for _, id := range args[2:] {
				markers = append(markers, id)
			}

			sel, total, err := application.selections.Select(context.Background(), args[0], scan.Selection{args[1]: markers})
			if err != nil {
				return fmt.Errorf("failed to update selection: %w", err)
			}
			fmt.Printf("Selected %d resources\n", total)
			return printSelection(sel)
		},
	}
}

func newSelectQueryCmd() *cobra.Command {
	var categories []string

	cmd := &cobra.Command{
		Use:   "query <scan-id> <expression>",
		Short: "Select exactly the records matching an expression",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, total, err := application.selections.SelectByQuery(context.Background(), args[0], args[1], categories)
			if err != nil {
				return fmt.Errorf("failed to select by query: %w", err)
			}
			fmt.Printf("Selected %d resources\n", total)
			return printSelection(sel)
		},
	}

	cmd.Flags().StringSliceVarP(&categories, "category", "c", nil, "restrict to these categories (default: every category of the scan)")

	return cmd
}

func newSelectClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear <scan-id>",
		Short: "Drop every restriction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := application.selections.Clear(context.Background(), args[0]); err != nil {
				return fmt.Errorf("failed to clear selection: %w", err)
			}
			fmt.Println("Selection cleared")
			return nil
		},
	}
}

func printSelection(sel scan.Selection) error {
	if getOutputFormat() != "table" {
		return printOutput(sel)
	}
	if sel.IsEmpty() {
		fmt.Println("No selection: every record is generated")
		return nil
	}

	categories := make([]string, 0, len(sel))
	for c := range sel {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	t := NewTable("CATEGORY", "SELECTED", "IDENTITY")
	for _, c := range categories {
		markers := sel[c]
		if len(markers) == 0 {
			t.AddRow(c, "0", "-")
			continue
		}
		for i, m := range markers {
			count := ""
			if i == 0 {
				count = strconv.Itoa(len(markers))
			}
			t.AddRow(c, count, truncate(scan.MarkerIdentity(c, m), 80))
		}
	}
	t.Render()
	return nil
}
