// Package scheduler fires the two daily triggers: the missed sweep shortly
// before midnight and the report for the day that just ended at midnight.
package scheduler

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/gmsas95/medicinett/internal/adherence"
	"github.com/gmsas95/medicinett/internal/config"
	apperrors "github.com/gmsas95/medicinett/internal/errors"
	"github.com/gmsas95/medicinett/internal/report"
	"github.com/gmsas95/medicinett/internal/store"
)

// Trigger drives the adherence engine and report builder on wall-clock
// schedules. It holds no adherence logic itself; firing a job twice for the
// same logical day is harmless because the operations are idempotent.
type Trigger struct {
	cfg     config.SchedulerConfig
	engine  *adherence.Engine
	builder *report.Builder
	store   *store.Store
	logger  *zap.Logger
	now     func() time.Time

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// New creates a trigger using the wall clock
func New(cfg config.SchedulerConfig, engine *adherence.Engine, builder *report.Builder, st *store.Store, logger *zap.Logger) *Trigger {
	return &Trigger{
		cfg:     cfg,
		engine:  engine,
		builder: builder,
		store:   st,
		logger:  logger,
		now:     time.Now,
	}
}

// WithClock overrides the trigger's notion of "now" (tests)
func (t *Trigger) WithClock(now func() time.Time) *Trigger {
	t.now = now
	return t
}

// Start registers the two cron entries and begins firing
func (t *Trigger) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return fmt.Errorf("scheduler already running")
	}

	c := cron.New()
	if _, err := c.AddFunc(t.cfg.SweepSpec, t.RunSweep); err != nil {
		return fmt.Errorf("invalid sweep spec %q: %w", t.cfg.SweepSpec, err)
	}
	if _, err := c.AddFunc(t.cfg.ReportSpec, t.RunDailyReport); err != nil {
		return fmt.Errorf("invalid report spec %q: %w", t.cfg.ReportSpec, err)
	}
	c.Start()

	t.cron = c
	t.running = true
	t.logger.Info("Scheduler started",
		zap.String("sweep_spec", t.cfg.SweepSpec),
		zap.String("report_spec", t.cfg.ReportSpec),
	)
	return nil
}

// Stop halts firing and waits for a running job to finish
func (t *Trigger) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	c := t.cron
	t.cron = nil
	t.mu.Unlock()

	<-c.Stop().Done()
	t.logger.Info("Scheduler stopped")
}

// IsRunning reports whether the trigger is active
func (t *Trigger) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// RunSweep finalizes today's pending doses as missed
func (t *Trigger) RunSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	date := store.DateKey(t.now())
	t.logger.Info("Running missed medicine detection", zap.String("date", date))

	if _, err := t.engine.RunMissedSweep(ctx, date); err != nil {
		t.logger.Error("Missed sweep failed", zap.String("date", date), zap.Error(err))
	}
}

// RunDailyReport builds, renders and archives the report for the previous
// calendar day
func (t *Trigger) RunDailyReport() {
	// The midnight fire reports on the day that just ended
	date := store.DateKey(t.now().AddDate(0, 0, -1))
	t.logger.Info("Generating daily report", zap.String("date", date))

	rep, err := t.builder.Build(date)
	if err != nil {
		if stderrors.Is(err, apperrors.ErrNoReportData) {
			t.logger.Info("No medicines registered, skipping daily report", zap.String("date", date))
			return
		}
		t.logger.Error("Daily report build failed", zap.String("date", date), zap.Error(err))
		return
	}

	payload, err := json.Marshal(rep)
	if err != nil {
		t.logger.Error("Daily report encoding failed", zap.String("date", date), zap.Error(err))
		return
	}

	rendered := report.Render(rep)
	if err := t.store.ArchiveReport(date, payload, []byte(rendered)); err != nil {
		t.logger.Error("Daily report archive failed", zap.String("date", date), zap.Error(err))
		return
	}

	t.logger.Info("Daily report archived",
		zap.String("date", date),
		zap.Int("rows", len(rep.Rows)),
	)
}
