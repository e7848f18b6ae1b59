package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pratik-mahalle/iamgen/internal/api/handlers"
	"github.com/pratik-mahalle/iamgen/internal/api/router"
	"github.com/pratik-mahalle/iamgen/internal/domain/generation"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the scan, query, selection, graph and generation API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := application
			if addr == "" {
				addr = a.cfg.Server.Addr
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			gen := a.cfg.Generation
			h := &router.Handlers{
				Health:    handlers.NewHealthHandler(a.db, a.log),
				Scan:      handlers.NewScanHandler(a.scans, a.log),
				Query:     handlers.NewQueryHandler(a.queries, a.log),
				Selection: handlers.NewSelectionHandler(a.selections, a.log),
				Graph:     handlers.NewGraphHandler(a.graphs, a.log),
				Generation: handlers.NewGenerationHandler(a.generator, generation.Config{
					OutputDir:          gen.OutputDir,
					FileSplit:          gen.FileSplit,
					NamingConvention:   gen.NamingConvention,
					ImportScriptFormat: gen.ImportScriptFormat,
					PreviewChars:       gen.PreviewChars,
				}, a.log),
			}

			return serveHTTP(ctx, "API server", addr, router.New(ctx, a.cfg.Server, a.log, h))
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from SERVER_ADDR)")

	return cmd
}
