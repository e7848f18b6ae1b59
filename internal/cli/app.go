package cli

import (
	"database/sql"
	"fmt"

	"github.com/spf13/viper"

	"github.com/pratik-mahalle/iamgen/internal/config"
	"github.com/pratik-mahalle/iamgen/internal/domain/scan"
	"github.com/pratik-mahalle/iamgen/internal/iac/terraform"
	"github.com/pratik-mahalle/iamgen/internal/pkg/logger"
	"github.com/pratik-mahalle/iamgen/internal/providers"
	"github.com/pratik-mahalle/iamgen/internal/repository/memory"
	"github.com/pratik-mahalle/iamgen/internal/repository/postgres"
	"github.com/pratik-mahalle/iamgen/internal/services"
	"github.com/pratik-mahalle/iamgen/migrations"
)

// app holds the wired services used by the commands
type app struct {
	cfg *config.Config
	log *logger.Logger
	db  *sql.DB

	scans      *services.ScanService
	queries    *services.QueryService
	selections *services.SelectionService
	graphs     *services.GraphService
	generator  *services.GeneratorService
}

// loadConfig reads the environment configuration and applies CLI config file overrides
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if v := viper.GetString("store"); v != "" {
		cfg.Database.Driver = v
	}
	if v := viper.GetString("db_path"); v != "" {
		cfg.Database.Path = v
	}
	if v := viper.GetString("log_level"); v != "" {
		cfg.Logging.Level = v
	}
	if v := viper.GetString("output_dir"); v != "" {
		cfg.Generation.OutputDir = v
	}
	if v := viper.GetString("template_dir"); v != "" {
		cfg.Generation.TemplateDir = v
	}
	if v := viper.GetString("metrics_addr"); v != "" {
		cfg.Metrics.Addr = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func openStores(cfg *config.Config, log *logger.Logger) (scan.Store, scan.SelectionStore, *sql.DB, error) {
	if cfg.Database.Driver == "memory" {
		return memory.NewScanStore(), memory.NewSelectionStore(), nil, nil
	}

	db, err := postgres.New(cfg.Database)
	if err != nil {
		return nil, nil, nil, err
	}
	applied, err := postgres.RunMigrations(db, migrations.GetFS())
	if err != nil {
		_ = db.Close()
		return nil, nil, nil, err
	}
	if applied > 0 {
		log.Infof("Applied %d store migrations", applied)
	}

	return postgres.NewScanRepository(db, cfg.Database.Driver), postgres.NewSelectionRepository(db), db, nil
}

func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	scanStore, selectionStore, db, err := openStores(cfg, log)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg: cfg,
		log: log,
		db:  db,
		scans: services.NewScanService(scanStore, providers.NewFactory(log), services.ScanOptions{
			EnrichConcurrency: cfg.Scan.EnrichConcurrency,
			RateLimit:         cfg.Scan.RateLimit,
		}, log),
		queries:    services.NewQueryService(scanStore, log),
		selections: services.NewSelectionService(selectionStore, scanStore, log),
		graphs:     services.NewGraphService(scanStore, log),
		generator:  services.NewGeneratorService(scanStore, selectionStore, terraform.NewTemplateStore(cfg.Generation.TemplateDir), log),
	}, nil
}

// Close waits for in-flight scans and releases the store
func (a *app) Close() error {
	a.scans.Drain()
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}
