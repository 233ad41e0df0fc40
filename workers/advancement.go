package workers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"tournament-engine/clients"
	"tournament-engine/models"
)

const (
	defaultAdvancementPageSize = 100
	defaultAdvancementMaxPages = 10
)

var advanceable = []models.TournamentStatus{
	models.StatusUpcoming,
	models.StatusRegistrationOpen,
	models.StatusRegistrationClosed,
}

type AdvancementSummary struct {
	Scanned  int
	Closed   int
	Started  int
	Failed   int
	Deferred int
}

// Advancement moves tournaments along their deadlines.
type Advancement struct {
	API      TournamentAPI
	PageSize int
	MaxPages int
	Now      func() time.Time
	Logger   *slog.Logger
}

// errStopTick ends the current pass; the rest waits for the next tick.
var errStopTick = errors.New("credential rejected")

func (a *Advancement) Run(ctx context.Context) AdvancementSummary {
	var summary AdvancementSummary
	now := time.Now().UTC()
	if a.Now != nil {
		now = a.Now().UTC()
	}

	candidates, err := a.collect(ctx)
	if err != nil {
		a.Logger.Warn("listing tournaments for advancement", "error", err)
		summary.Failed++
		return summary
	}
	summary.Scanned = len(candidates)

	for i, t := range candidates {
		if err := a.advance(ctx, t, now, &summary); errors.Is(err, errStopTick) {
			summary.Deferred = len(candidates) - i - 1
			a.Logger.Warn("credential rejected, deferring remaining tournaments to next tick",
				"tournament_id", t.ID, "deferred", summary.Deferred)
			break
		}
	}

	a.Logger.Info("advancement finished",
		"scanned", summary.Scanned,
		"closed", summary.Closed,
		"started", summary.Started,
		"failed", summary.Failed,
		"deferred", summary.Deferred,
	)
	return summary
}

// collect reads every page up front so status changes made while acting do
// not shift later pages.
func (a *Advancement) collect(ctx context.Context) ([]models.Tournament, error) {
	size, maxPages := a.PageSize, a.MaxPages
	if size <= 0 {
		size = defaultAdvancementPageSize
	}
	if maxPages <= 0 {
		maxPages = defaultAdvancementMaxPages
	}

	var out []models.Tournament
	for page := 1; page <= maxPages; page++ {
		res, err := a.API.ListTournaments(ctx, clients.ListQuery{Statuses: advanceable, Page: page, Limit: size})
		if err != nil {
			return nil, err
		}
		out = append(out, res.Tournaments...)
		if len(res.Tournaments) < size || int64(page*size) >= res.Total {
			return out, nil
		}
	}
	a.Logger.Warn("advancement page bound reached; remaining tournaments wait for the next tick", "max_pages", maxPages)
	return out, nil
}

func (a *Advancement) advance(ctx context.Context, t models.Tournament, now time.Time, summary *AdvancementSummary) error {
	status := t.Status
	if status == models.StatusUpcoming {
		if !now.Before(t.RegistrationDeadline) {
			a.Logger.Debug("registration never opened and deadline passed", "tournament_id", t.ID)
		}
		return nil
	}
	if status == models.StatusRegistrationOpen && !now.Before(t.RegistrationDeadline) {
		updated, err := a.request(ctx, t, models.StatusRegistrationClosed, summary)
		if err != nil {
			return err
		}
		summary.Closed++
		status = updated.Status
	}
	if status == models.StatusRegistrationClosed && !now.Before(t.StartTime) {
		if _, err := a.request(ctx, t, models.StatusLive, summary); err != nil {
			return err
		}
		summary.Started++
	}
	return nil
}

func (a *Advancement) request(ctx context.Context, t models.Tournament, target models.TournamentStatus, summary *AdvancementSummary) (*models.Tournament, error) {
	updated, err := a.API.UpdateStatus(ctx, t.ID, target)
	if err == nil {
		a.Logger.Info("tournament advanced", "tournament_id", t.ID, "from", t.Status, "to", updated.Status)
		return updated, nil
	}
	summary.Failed++
	a.Logger.Warn("advancing tournament", "tournament_id", t.ID, "status", t.Status, "target", target, "error", err)
	if errors.Is(err, models.ErrUnauthorized) {
		return nil, errStopTick
	}
	return nil, err
}
