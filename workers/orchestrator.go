package workers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Orchestrator owns the three periodic tasks and everything they share.
type Orchestrator struct {
	Generation  *Generation
	Advancement *Advancement
	Liveness    *Liveness

	GenerationInterval  time.Duration
	AdvancementInterval time.Duration
	HealthInterval      time.Duration

	// Closers run on Shutdown after the scheduler stops, e.g. the redis client.
	Closers []io.Closer
	Logger  *slog.Logger

	sched   gocron.Scheduler
	baseCtx context.Context
}

// Start registers the tasks and begins firing them, each once immediately.
// A trigger that fires while the same task is still running is skipped.
func (o *Orchestrator) Start(ctx context.Context) error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("creating scheduler: %w", err)
	}
	o.sched = sched
	o.baseCtx = ctx

	tasks := []struct {
		name     string
		interval time.Duration
		run      func(ctx context.Context)
	}{
		{"tournament-generation", o.GenerationInterval, func(ctx context.Context) { o.Generation.Run(ctx) }},
		{"status-advancement", o.AdvancementInterval, func(ctx context.Context) { o.Advancement.Run(ctx) }},
		{"liveness-check", o.HealthInterval, func(ctx context.Context) { o.Liveness.Run(ctx) }},
	}
	for _, task := range tasks {
		_, err := sched.NewJob(
			gocron.DurationJob(task.interval),
			gocron.NewTask(o.guard(task.name, task.interval, task.run)),
			gocron.WithName(task.name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithStartAt(gocron.WithStartImmediately()),
		)
		if err != nil {
			_ = sched.Shutdown()
			return fmt.Errorf("registering %s: %w", task.name, err)
		}
		o.Logger.Info("⏰ task scheduled", "task", task.name, "interval", task.interval)
	}
	sched.Start()
	return nil
}

// guard bounds one run by its interval and keeps a panic from taking the
// process down.
func (o *Orchestrator) guard(name string, interval time.Duration, run func(ctx context.Context)) func() {
	return func() {
		defer func() {
			if r := recover(); r != nil {
				o.Logger.Error("task panicked", "task", name, "panic", r)
			}
		}()
		ctx, cancel := context.WithTimeout(o.baseCtx, interval)
		defer cancel()
		started := time.Now()
		run(ctx)
		o.Logger.Debug("task run complete", "task", name, "took", time.Since(started))
	}
}

// Shutdown waits for in-flight runs, then releases shared resources.
func (o *Orchestrator) Shutdown() error {
	var errs []error
	if o.sched != nil {
		if err := o.sched.Shutdown(); err != nil {
			errs = append(errs, fmt.Errorf("scheduler shutdown: %w", err))
		}
	}
	for _, c := range o.Closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
