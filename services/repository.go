package services

import (
	"context"
	"errors"
	"time"

	"tournament-engine/models"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// errStaleVersion means the conditional update matched no row at the
// expected version; the caller reloads and re-applies.
var errStaleVersion = errors.New("stale tournament version")

type ListFilter struct {
	Statuses  []models.TournamentStatus
	GameType  models.GameType
	Type      models.TournamentType
	StartTime *time.Time
	Page      int
	Limit     int
}

// normalized clamps paging to 1-based pages of at most MaxPageLimit.
func (f ListFilter) normalized() ListFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = DefaultPageLimit
	}
	if f.Limit > MaxPageLimit {
		f.Limit = MaxPageLimit
	}
	return f
}

func (f ListFilter) offset() int {
	return (f.Page - 1) * f.Limit
}

// Repository persists tournaments as whole documents.
type Repository interface {
	// Create fails with models.ErrDuplicateTournament when the slug or
	// dedup key is taken.
	Create(ctx context.Context, t *models.Tournament) error
	Get(ctx context.Context, id string) (*models.Tournament, error)
	List(ctx context.Context, f ListFilter) ([]*models.Tournament, int64, error)
	// Update writes t only if the stored version still equals expected.
	Update(ctx context.Context, t *models.Tournament, expected int) error
	Ping(ctx context.Context) error
}
