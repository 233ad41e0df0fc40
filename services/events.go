package services

import (
	"context"
	"log/slog"

	"tournament-engine/models"
)

// Publisher receives a ChangeEvent after each persisted mutation. Delivery
// to sockets or queues is the implementer's concern.
type Publisher interface {
	Publish(ctx context.Context, ev models.ChangeEvent)
}

type LogPublisher struct {
	Logger *slog.Logger
}

func (p LogPublisher) Publish(ctx context.Context, ev models.ChangeEvent) {
	p.Logger.InfoContext(ctx, "tournament changed",
		"tournament_id", ev.TournamentID,
		"kind", ev.Kind,
		"status", ev.Status,
		"version", ev.Version,
	)
}
