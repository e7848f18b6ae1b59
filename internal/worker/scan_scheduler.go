package worker

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/pratik-mahalle/iamgen/internal/domain/scan"
	apperrors "github.com/pratik-mahalle/iamgen/internal/pkg/errors"
	"github.com/pratik-mahalle/iamgen/internal/pkg/logger"
)

// Schedule starts a fresh scan of Config on every tick of Spec
type Schedule struct {
	ID     string          `json:"id" yaml:"id"`
	Spec   string          `json:"spec" yaml:"spec"`
	Config scan.ScanConfig `json:"config" yaml:"config"`
}

// ScheduleStatus reports a registered schedule
type ScheduleStatus struct {
	ID         string    `json:"id"`
	Spec       string    `json:"spec"`
	Next       time.Time `json:"next"`
	LastScanID string    `json:"last_scan_id,omitempty"`
}

// ConfigValidator rejects a scan config before it is scheduled
type ConfigValidator func(scan.ScanConfig) error

type entry struct {
	schedule Schedule
	id       cron.EntryID
	lastScan string
}

// ScanScheduler runs scans on cron schedules
type ScanScheduler struct {
	scans    scan.Service
	validate ConfigValidator
	logger   *logger.Logger

	cron    *cron.Cron
	mu      sync.RWMutex
	entries map[string]*entry
	ctx     context.Context
}

// NewScanScheduler creates a new scheduler. validate may be nil.
func NewScanScheduler(scans scan.Service, validate ConfigValidator, log *logger.Logger) *ScanScheduler {
	return &ScanScheduler{
		scans:    scans,
		validate: validate,
		logger:   log,
		cron:     cron.New(cron.WithLogger(cronLogger{log})),
		entries:  make(map[string]*entry),
		ctx:      context.Background(),
	}
}

// Add registers a schedule and returns its id. An empty ID gets a fresh one.
func (s *ScanScheduler) Add(sch Schedule) (string, error) {
	if _, err := cron.ParseStandard(sch.Spec); err != nil {
		return "", apperrors.ConfigurationError(fmt.Sprintf("invalid cron schedule %q: %v", sch.Spec, err), nil)
	}
	if s.validate != nil {
		if err := s.validate(sch.Config); err != nil {
			return "", err
		}
	}
	if sch.ID == "" {
		sch.ID = uuid.New().String()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[sch.ID]; exists {
		return "", apperrors.Conflict("schedule " + sch.ID + " already exists")
	}

	e := &entry{schedule: sch}
	id, err := s.cron.AddFunc(sch.Spec, func() { s.tick(sch.ID) })
	if err != nil {
		return "", apperrors.ConfigurationError("failed to schedule scan", err.Error())
	}
	e.id = id
	s.entries[sch.ID] = e

	s.logger.WithFields(map[string]interface{}{
		"schedule_id": sch.ID,
		"spec":        sch.Spec,
		"provider":    sch.Config.Provider,
	}).Info("Scan scheduled")

	return sch.ID, nil
}

// Remove unregisters a schedule
func (s *ScanScheduler) Remove(scheduleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[scheduleID]
	if !ok {
		return apperrors.NotFound("schedule " + scheduleID)
	}
	s.cron.Remove(e.id)
	delete(s.entries, scheduleID)

	s.logger.WithFields(map[string]interface{}{
		"schedule_id": scheduleID,
	}).Info("Scan unscheduled")
	return nil
}

// Start runs the scheduler until Stop. Scans started by ticks use ctx.
func (s *ScanScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.cron.Start()
	s.logger.WithFields(map[string]interface{}{
		"schedules": len(s.Statuses()),
	}).Info("Scan scheduler started")
}

// Stop halts the scheduler; the returned context is done once running ticks have returned
func (s *ScanScheduler) Stop() context.Context {
	done := s.cron.Stop()
	s.logger.Info("Scan scheduler stopped")
	return done
}

// RunNow starts the scan of a schedule immediately and returns the new scan id
func (s *ScanScheduler) RunNow(scheduleID string) (string, error) {
	return s.start(scheduleID)
}

// Statuses lists the registered schedules ordered by id
func (s *ScanScheduler) Statuses() []ScheduleStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ScheduleStatus, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, ScheduleStatus{
			ID:         e.schedule.ID,
			Spec:       e.schedule.Spec,
			Next:       s.cron.Entry(e.id).Next,
			LastScanID: e.lastScan,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *ScanScheduler) tick(scheduleID string) {
	if _, err := s.start(scheduleID); err != nil {
		s.logger.WithFields(map[string]interface{}{
			"schedule_id": scheduleID,
		}).ErrorWithErr(err, "Scheduled scan failed to start")
	}
}

func (s *ScanScheduler) start(scheduleID string) (string, error) {
	s.mu.RLock()
	e, ok := s.entries[scheduleID]
	var cfg scan.ScanConfig
	if ok {
		cfg = e.schedule.Config
	}
	ctx := s.ctx
	s.mu.RUnlock()

	if !ok {
		return "", apperrors.NotFound("schedule " + scheduleID)
	}

	scanID, err := s.scans.Start(ctx, cfg)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	if e, ok := s.entries[scheduleID]; ok {
		e.lastScan = scanID
	}
	s.mu.Unlock()

	s.logger.WithFields(map[string]interface{}{
		"schedule_id": scheduleID,
		"scan_id":     scanID,
	}).Info("Scheduled scan started")
	return scanID, nil
}

// cronLogger routes cron's own logging through the application logger
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.WithFields(fields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.WithFields(fields(keysAndValues)).ErrorWithErr(err, msg)
}

func fields(keysAndValues []interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		out[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return out
}
