package cli

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pratik-mahalle/iamgen/internal/domain/graph"
)

func newGraphCmd() *cobra.Command {
	var (
		root      string
		statsOnly bool
	)

	cmd := &cobra.Command{
		Use:   "graph <scan-id>",
		Short: "Show how the identities of a scan relate",
		Long: `Build the dependency graph of a completed scan: users, groups, roles and policies
for AWS, role definitions and principals for Azure. With --root only the nodes
connected to that node are kept.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			var g *graph.DependencyGraph
			var err error
			if root != "" {
				g, err = application.graphs.BuildRooted(ctx, args[0], root)
			} else {
				g, err = application.graphs.Build(ctx, args[0])
			}
			if err != nil {
				return fmt.Errorf("failed to build graph: %w", err)
			}

			if statsOnly {
				return printGraphStats(g.Stats())
			}
			if getOutputFormat() != "table" {
				return printOutput(g)
			}

			printHeading("Nodes")
			nt := NewTable("ID", "TYPE", "NAME")
			for _, n := range g.Nodes {
				nt.AddRow(truncate(n.ID, 90), n.Type, n.DisplayName)
			}
			nt.Render()

			fmt.Println()
			printHeading("Edges")
			et := NewTable("SOURCE", "RELATION", "TARGET")
			for _, e := range g.Edges {
				et.AddRow(truncate(e.Source, 70), e.Label, truncate(e.Target, 70))
			}
			et.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&root, "root", "", "only keep the component connected to this node id (e.g. user:alice)")
	cmd.Flags().BoolVar(&statsOnly, "stats", false, "print node and edge counts only")

	return cmd
}

func printGraphStats(s graph.Stats) error {
	if getOutputFormat() != "table" {
		return printOutput(s)
	}

	fmt.Printf("Nodes: %d\n", s.NodeCount)
	fmt.Printf("Edges: %d\n\n", s.EdgeCount)

	t := NewTable("KIND", "TYPE", "COUNT")
	for _, k := range sortedKeys(s.NodesByType) {
		t.AddRow("node", k, strconv.Itoa(s.NodesByType[k]))
	}
	for _, k := range sortedKeys(s.EdgesByType) {
		t.AddRow("edge", k, strconv.Itoa(s.EdgesByType[k]))
	}
	t.Render()
	return nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
