package workers

import (
	"context"
	"time"

	"tournament-engine/clients"
	"tournament-engine/models"
)

// TournamentAPI is what the periodic tasks need from the store;
// *clients.TournamentClient satisfies it.
type TournamentAPI interface {
	CreateTournament(ctx context.Context, req clients.CreateTournamentRequest) (*models.Tournament, error)
	ListTournaments(ctx context.Context, q clients.ListQuery) (*clients.TournamentPage, error)
	FindAutomated(ctx context.Context, gameType models.GameType, start time.Time) (*models.Tournament, error)
	UpdateStatus(ctx context.Context, id string, status models.TournamentStatus) (*models.Tournament, error)
	Health(ctx context.Context) error
}
