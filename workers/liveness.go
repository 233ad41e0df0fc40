package workers

import (
	"context"
	"log/slog"
	"time"
)

type HealthChecker interface {
	Health(ctx context.Context) error
}

type Pinger interface {
	Ping(ctx context.Context) error
}

const (
	ProbeOK          = "ok"
	ProbeUnavailable = "unavailable"
	ProbeDisabled    = "disabled"
)

type LivenessReport struct {
	Store    string
	Identity string
	Redis    string
}

// Liveness only observes; it never tries to repair anything.
type Liveness struct {
	Store    HealthChecker
	Identity HealthChecker
	Redis    Pinger // nil when redis is not configured
	Timeout  time.Duration
	Logger   *slog.Logger
}

func (l *Liveness) Run(ctx context.Context) LivenessReport {
	report := LivenessReport{
		Store:    l.check(ctx, "tournament_service", l.Store.Health),
		Identity: l.check(ctx, "auth_service", l.Identity.Health),
		Redis:    ProbeDisabled,
	}
	if l.Redis != nil {
		report.Redis = l.check(ctx, "redis", l.Redis.Ping)
	}
	l.Logger.Info("💓 liveness",
		"tournament_service", report.Store,
		"auth_service", report.Identity,
		"redis", report.Redis,
	)
	return report
}

func (l *Liveness) check(ctx context.Context, name string, probe func(context.Context) error) string {
	if l.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}
	if err := probe(ctx); err != nil {
		l.Logger.Warn("dependency unhealthy", "dependency", name, "error", err)
		return ProbeUnavailable
	}
	return ProbeOK
}
