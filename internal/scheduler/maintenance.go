// Package scheduler runs the periodic maintenance-window activation job.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"mcw-proxy/internal/metrics"
	"mcw-proxy/internal/snapshot"
	"mcw-proxy/internal/store"
)

// WindowStore activates the maintenance windows that contain now.
type WindowStore interface {
	RefreshActiveWindows(ctx context.Context, now time.Time) ([]store.Maintenance, error)
}

// Snapshots persists the maintenance snapshot.
type Snapshots interface {
	ReadMaintenance() (snapshot.Maintenance, error)
	Write(name string, v any) error
}

// MaintenanceJob keeps the is_active flags and maintenance.json in step with
// the configured windows.
type MaintenanceJob struct {
	windows   WindowStore
	snapshots Snapshots
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// NewMaintenanceJob creates the job. It does nothing until Start.
func NewMaintenanceJob(windows WindowStore, snapshots Snapshots, m *metrics.Metrics, logger *slog.Logger) *MaintenanceJob {
	return &MaintenanceJob{
		windows:   windows,
		snapshots: snapshots,
		metrics:   m,
		logger:    logger.With("component", "maintenance_job"),
		now:       time.Now,
	}
}

// Start schedules Run on a standard five-field cron expression.
func (j *MaintenanceJob) Start(ctx context.Context, schedule string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.running {
		return errors.New("maintenance job already running")
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		if err := j.Run(ctx); err != nil {
			j.logger.Error("maintenance run failed", "err", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule maintenance job %q: %w", schedule, err)
	}

	c.Start()
	j.cron = c
	j.running = true
	j.logger.Info("maintenance job started", "schedule", schedule)
	return nil
}

// Stop halts scheduling and waits for a running cycle to finish.
func (j *MaintenanceJob) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.running {
		return
	}
	<-j.cron.Stop().Done()
	j.running = false
	j.logger.Info("maintenance job stopped")
}

// Run executes one cycle. When windows are active the newest is exported
// with maintenance mode on; otherwise the existing snapshot is switched off,
// or a disabled snapshot is written when none exists.
func (j *MaintenanceJob) Run(ctx context.Context) error {
	active, err := j.windows.RefreshActiveWindows(ctx, j.now())
	if err != nil {
		j.observe("error")
		return fmt.Errorf("refresh windows: %w", err)
	}

	if len(active) > 0 {
		snap := snapshot.FromMaintenance(active[0])
		snap.MaintenanceMode = true
		if err := j.snapshots.Write(snapshot.MaintenanceFile, snap); err != nil {
			j.observe("error")
			return err
		}
		j.observe("active")
		j.logger.Info("maintenance window active", "id", active[0].ID, "windows", len(active))
		return nil
	}

	snap, err := j.snapshots.ReadMaintenance()
	switch {
	case errors.Is(err, fs.ErrNotExist):
		snap = snapshot.DisabledMaintenance()
	case err != nil:
		j.logger.Warn("replacing unreadable maintenance snapshot", "err", err)
		snap = snapshot.DisabledMaintenance()
	case !snap.MaintenanceMode:
		j.observe("idle")
		return nil
	}

	snap.MaintenanceMode = false
	if err := j.snapshots.Write(snapshot.MaintenanceFile, snap); err != nil {
		j.observe("error")
		return err
	}
	j.observe("idle")
	j.logger.Info("maintenance mode switched off")
	return nil
}

func (j *MaintenanceJob) observe(result string) {
	if j.metrics != nil {
		j.metrics.MaintenanceRuns.WithLabelValues(result).Inc()
	}
}
