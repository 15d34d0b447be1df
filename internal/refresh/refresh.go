// Package refresh re-derives every stored movement memory on a schedule, so
// days-since-last and recency-driven confidence age while nothing is logged.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/robfig/cron"
)

// DefaultSchedule runs at 03:30 every night. Expressions carry a seconds field.
const DefaultSchedule = "0 30 3 * * *"

// Engine re-derives all memories.
type Engine interface {
	RefreshAll(ctx context.Context) (int, error)
}

type Refresher struct {
	engine   Engine
	schedule cron.Schedule
	expr     string
	timeout  time.Duration
	log      *slog.Logger

	cron    *cron.Cron
	running atomic.Bool
}

// New validates the cron expression and returns a stopped Refresher. timeout bounds one run;
// zero means ten minutes.
func New(engine Engine, expr string, timeout time.Duration, log *slog.Logger) (*Refresher, error) {
	if expr == "" {
		expr = DefaultSchedule
	}
	sched, err := cron.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("parsing refresh schedule %q: %w", expr, err)
	}
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Refresher{
		engine:   engine,
		schedule: sched,
		expr:     expr,
		timeout:  timeout,
		log:      log,
	}, nil
}

// Start schedules nightly runs in the background.
func (r *Refresher) Start() {
	r.cron = cron.New()
	r.cron.Schedule(r.schedule, cron.FuncJob(r.tick))
	r.cron.Start()
	r.log.Info("memory refresh scheduled", "schedule", r.expr, "next", r.Next(time.Now()))
}

// Stop halts the scheduler. A run in progress finishes on its own.
func (r *Refresher) Stop() {
	if r.cron != nil {
		r.cron.Stop()
	}
}

// Next returns the next scheduled run after t.
func (r *Refresher) Next(t time.Time) time.Time {
	return r.schedule.Next(t)
}

func (r *Refresher) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	_, _ = r.RunOnce(ctx)
}

// ErrBusy is returned by RunOnce while another run is in progress.
var ErrBusy = errors.New("refresh already running")

// RunOnce refreshes every memory now. Overlapping runs are refused.
func (r *Refresher) RunOnce(ctx context.Context) (int, error) {
	if !r.running.CompareAndSwap(false, true) {
		r.log.Warn("memory refresh skipped, previous run still active")
		return 0, ErrBusy
	}
	defer r.running.Store(false)

	start := time.Now()
	n, err := r.engine.RefreshAll(ctx)
	if err != nil {
		r.log.Error("memory refresh failed", "refreshed", n, "error", err)
		return n, err
	}
	r.log.Info("memory refresh complete", "refreshed", n, "duration", time.Since(start).String())
	return n, nil
}
