package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/pratik-mahalle/iamgen/internal/domain/scan"
	apperrors "github.com/pratik-mahalle/iamgen/internal/pkg/errors"
	"github.com/pratik-mahalle/iamgen/internal/pkg/logger"
	"github.com/pratik-mahalle/iamgen/internal/pkg/metrics"
	"github.com/pratik-mahalle/iamgen/internal/pkg/validator"
	"github.com/pratik-mahalle/iamgen/internal/providers"
)

const (
	// MaxEnrichConcurrency caps in-flight enrichment calls within one category
	MaxEnrichConcurrency = 10

	defaultEventBuffer = 16
	waitPollInterval   = 50 * time.Millisecond
)

// ScanOptions tunes the orchestrator
type ScanOptions struct {
	EnrichConcurrency int
	// RateLimit bounds outbound enrichment calls per second; 0 disables it
	RateLimit   float64
	EventBuffer int
}

type progressEvent struct {
	progress int
	message  string
}

// ScanService runs scans in the background and records their state in a scan.Store
type ScanService struct {
	store   scan.Store
	factory providers.Factory
	logger  *logger.Logger
	opts    ScanOptions
	limiter *rate.Limiter

	running sync.WaitGroup
}

// NewScanService creates a new scan orchestrator
func NewScanService(store scan.Store, factory providers.Factory, opts ScanOptions, log *logger.Logger) *ScanService {
	if opts.EnrichConcurrency < 1 || opts.EnrichConcurrency > MaxEnrichConcurrency {
		opts.EnrichConcurrency = MaxEnrichConcurrency
	}
	if opts.EventBuffer < 1 {
		opts.EventBuffer = defaultEventBuffer
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := int(opts.RateLimit)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	return &ScanService{
		store:   store,
		factory: factory,
		logger:  log,
		opts:    opts,
		limiter: limiter,
	}
}

// ValidateScanConfig rejects malformed scan configs before any work starts
func ValidateScanConfig(cfg scan.ScanConfig) error {
	if errs := validator.Validate(cfg); len(errs) > 0 {
		return apperrors.ConfigurationError("invalid scan config: "+strings.Join(validator.Messages(errs), "; "), errs)
	}
	if cfg.Provider == scan.ProviderAzure && cfg.Auth.SubscriptionID == "" {
		return apperrors.ConfigurationError("invalid scan config: subscription_id is required for azure", nil)
	}

	supported := make(map[string]bool)
	for _, name := range providers.CategoryNames(cfg.Provider) {
		supported[name] = true
	}
	var unknown []string
	for name, on := range cfg.Categories {
		if on && !supported[name] {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return apperrors.ConfigurationError(
			fmt.Sprintf("invalid scan config: unsupported %s categories: %s", cfg.Provider, strings.Join(unknown, ", ")),
			unknown)
	}
	return nil
}

// Start implements scan.Service
func (s *ScanService) Start(ctx context.Context, cfg scan.ScanConfig) (string, error) {
	if err := ValidateScanConfig(cfg); err != nil {
		return "", err
	}

	id := uuid.New().String()
	state := scan.NewScanState(id, cfg.Provider)
	if err := s.store.Create(ctx, state); err != nil {
		return "", apperrors.StoreError("failed to register scan", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"scan_id":  id,
		"provider": cfg.Provider,
	}).Info("Scan started")
	metrics.ScanStarted()

	s.running.Add(1)
	go func() {
		defer s.running.Done()
		s.run(context.WithoutCancel(ctx), id, cfg)
	}()

	return id, nil
}

// Status implements scan.Service
func (s *ScanService) Status(ctx context.Context, scanID string) (*scan.ScanState, error) {
	return s.store.Get(ctx, scanID)
}

// List implements scan.Service
func (s *ScanService) List(ctx context.Context) ([]*scan.ScanState, error) {
	return s.store.List(ctx)
}

// Wait implements scan.Service by polling the store
func (s *ScanService) Wait(ctx context.Context, scanID string) (*scan.ScanState, error) {
	ticker := time.NewTicker(waitPollInterval)
	defer ticker.Stop()

	for {
		state, err := s.store.Get(ctx, scanID)
		if err != nil {
			return nil, err
		}
		if state.Status.IsTerminal() {
			return state, nil
		}
		select {
		case <-ctx.Done():
			return state, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Drain blocks until every background scan started by this service has finished
func (s *ScanService) Drain() {
	s.running.Wait()
}

func (s *ScanService) run(ctx context.Context, id string, cfg scan.ScanConfig) {
	log := s.logger.WithFields(map[string]interface{}{
		"scan_id":  id,
		"provider": cfg.Provider,
	})

	events := make(chan progressEvent, s.opts.EventBuffer)
	applied := make(chan struct{})
	go func() {
		defer close(applied)
		for ev := range events {
			err := s.store.Update(ctx, id, func(st *scan.ScanState) error {
				return st.Advance(ev.progress, ev.message)
			})
			if err != nil {
				log.WarnWithErr(err, "Failed to record scan progress")
			}
		}
	}()

	sink := scan.ProgressFunc(func(progress int, message string) {
		events <- progressEvent{progress: progress, message: message}
	})

	doc, scanErr := s.execute(ctx, cfg, sink, log)
	close(events)
	<-applied

	status := scan.StatusCompleted
	err := s.store.Update(ctx, id, func(st *scan.ScanState) error {
		if scanErr != nil {
			return st.Fail(scanErr.Error())
		}
		return st.Complete(doc, completionMessage(doc))
	})
	if scanErr != nil {
		status = scan.StatusFailed
		log.ErrorWithErr(scanErr, "Scan failed")
	} else {
		log.WithFields(map[string]interface{}{"summary": doc.Summary()}).Info("Scan completed")
	}
	if err != nil {
		log.ErrorWithErr(err, "Failed to record scan result")
	}
	metrics.ScanFinished(string(cfg.Provider), string(status))
}

func (s *ScanService) execute(ctx context.Context, cfg scan.ScanConfig, sink scan.ProgressSink, log *logger.Logger) (*scan.Document, error) {
	doc := scan.NewDocument(cfg.Provider)

	total := 0
	for _, name := range providers.CategoryNames(cfg.Provider) {
		if cfg.Enabled(name) {
			total++
		}
	}
	if total == 0 {
		return doc, nil
	}

	sink.Report(0, "Resolving credentials")
	scanner, err := s.factory(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := scanner.Prepare(ctx); err != nil {
		return nil, err
	}

	prefix := cfg.Filter(scan.FilterNamePrefix)
	completed := 0
	for _, cat := range scanner.Categories() {
		if !cfg.Enabled(cat.Name) {
			continue
		}

		sink.Report(completed*100/total, fmt.Sprintf("Scanning %s...", cat.Name))
		started := time.Now()

		records, err := cat.List(ctx)
		if err != nil {
			var appErr *apperrors.AppError
			if !errors.As(err, &appErr) {
				err = apperrors.CategoryEnumerationError(cat.Name, cfg.AuthContext(), "check the permissions of the scanning identity", err)
			}
			return nil, err
		}

		records = filterByPrefix(records, cat.NameField, prefix)
		if cat.Enrich != nil && len(records) > 0 {
			s.enrich(ctx, cfg.Provider, cat, records, log)
		}

		doc.SetRecords(cat.Name, records)
		completed++
		metrics.RecordCategory(string(cfg.Provider), cat.Name, len(records), time.Since(started))
		log.WithFields(map[string]interface{}{
			"category": cat.Name,
			"count":    len(records),
		}).Debug("Category scanned")

		sink.Report(completed*100/total, fmt.Sprintf("Found %d %s", len(records), cat.Name))
	}

	return doc, nil
}

// enrich runs the per-record lookups of one category with bounded concurrency.
// Failures only drop the affected fields.
func (s *ScanService) enrich(ctx context.Context, provider scan.Provider, cat providers.Category, records []scan.Record, log *logger.Logger) {
	var g errgroup.Group
	g.SetLimit(s.opts.EnrichConcurrency)

	for _, rec := range records {
		g.Go(func() error {
			if s.limiter != nil {
				if err := s.limiter.Wait(ctx); err != nil {
					s.degraded(provider, cat.Name, rec, err, log)
					return nil
				}
			}
			if err := cat.Enrich(ctx, rec); err != nil {
				s.degraded(provider, cat.Name, rec, err, log)
			}
			return nil
		})
	}

	// per-record failures are already logged as degradations, so no callback returns an error
	g.Wait()
}

func (s *ScanService) degraded(provider scan.Provider, category string, rec scan.Record, err error, log *logger.Logger) {
	metrics.RecordEnrichmentDegradation(string(provider), category)
	log.WithFields(map[string]interface{}{
		"category": category,
		"identity": scan.IdentityOf(category, rec),
	}).WarnWithErr(err, "Enrichment degraded")
}

func filterByPrefix(records []scan.Record, field, prefix string) []scan.Record {
	if prefix == "" || field == "" {
		return records
	}
	out := make([]scan.Record, 0, len(records))
	for _, r := range records {
		if strings.HasPrefix(r.String(field), prefix) {
			out = append(out, r)
		}
	}
	return out
}

func completionMessage(doc *scan.Document) string {
	total := 0
	for _, n := range doc.Summary() {
		total += n
	}
	return fmt.Sprintf("Scan completed: %d resources in %d categories", total, len(doc.Resources))
}

var _ scan.Service = (*ScanService)(nil)
