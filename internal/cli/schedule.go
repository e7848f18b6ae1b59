package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/pratik-mahalle/iamgen/internal/pkg/metrics"
	"github.com/pratik-mahalle/iamgen/internal/services"
	"github.com/pratik-mahalle/iamgen/internal/worker"
)

func newScheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run scans on cron schedules",
	}

	cmd.AddCommand(newScheduleRunCmd())
	cmd.AddCommand(newScheduleCheckCmd())

	return cmd
}

// readSchedules loads a YAML list of schedules
func readSchedules(path string) ([]worker.Schedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schedules: %w", err)
	}
	var schedules []worker.Schedule
	if err := yaml.Unmarshal(data, &schedules); err != nil {
		return nil, fmt.Errorf("failed to parse schedules: %w", err)
	}
	if len(schedules) == 0 {
		return nil, fmt.Errorf("no schedules found in %s", path)
	}
	return schedules, nil
}

func loadScheduler(path string) (*worker.ScanScheduler, error) {
	schedules, err := readSchedules(path)
	if err != nil {
		return nil, err
	}
	scheduler := worker.NewScanScheduler(application.scans, services.ValidateScanConfig, application.log)
	for i, sch := range schedules {
		if _, err := scheduler.Add(sch); err != nil {
			return nil, fmt.Errorf("schedule #%d: %w", i+1, err)
		}
	}
	return scheduler, nil
}

func newScheduleCheckCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate a schedules file and show the next run of each schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			scheduler, err := loadScheduler(file)
			if err != nil {
				return err
			}
			scheduler.Start(context.Background())
			statuses := scheduler.Statuses()
			<-scheduler.Stop().Done()

			if getOutputFormat() != "table" {
				return printOutput(statuses)
			}
			t := NewTable("ID", "SPEC", "NEXT RUN")
			for _, st := range statuses {
				next := st.Next
				t.AddRow(st.ID, st.Spec, formatTime(&next))
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "schedules.yaml", "YAML list of schedules")

	return cmd
}

func newScheduleRunCmd() *cobra.Command {
	var (
		file   string
		runNow bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the scheduler and serve Prometheus metrics until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			scheduler, err := loadScheduler(file)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			scheduler.Start(ctx)
			if runNow {
				for _, st := range scheduler.Statuses() {
					if _, err := scheduler.RunNow(st.ID); err != nil {
						application.log.WithError(err).Warnf("Schedule %s failed to start", st.ID)
					}
				}
			}

			err = serveMetrics(ctx, application.cfg.Metrics.Addr)
			<-scheduler.Stop().Done()
			return err
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "schedules.yaml", "YAML list of schedules")
	cmd.Flags().BoolVar(&runNow, "run-now", false, "start every schedule once immediately")

	return cmd
}

// serveMetrics exposes /metrics and /healthz until ctx is done
func serveMetrics(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return serveHTTP(ctx, "metrics server", addr, mux)
}

// serveHTTP runs handler on addr and shuts it down gracefully once ctx is done
func serveHTTP(ctx context.Context, name, addr string, handler http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 5 * time.Second}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		application.log.Infof("Shutting down %s", name)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), application.cfg.Server.ShutdownTimeout)
		defer cancel()

		srv.SetKeepAlivesEnabled(false)
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		application.log.Infof("%s listening on %s", name, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s failed: %w", name, err)
		}
		return nil
	})

	return g.Wait()
}
