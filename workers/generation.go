package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"tournament-engine/clients"
	"tournament-engine/models"
	"tournament-engine/storage"
	"tournament-engine/templates"
)

type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"

	// OutcomeDeferred means the run stopped after a rejected credential.
	OutcomeDeferred Outcome = "deferred"
)

type GameTypeResult struct {
	GameType     models.GameType `json:"game_type"`
	Outcome      Outcome         `json:"outcome"`
	TournamentID string          `json:"tournament_id,omitempty"`
	Detail       string          `json:"detail,omitempty"`
}

type GenerationSummary struct {
	RanAt     time.Time        `json:"ran_at"`
	StartTime time.Time        `json:"start_time"`
	Created   int              `json:"created"`
	Skipped   int              `json:"skipped"`
	Failed    int              `json:"failed"`
	Deferred  int              `json:"deferred"`
	Results   []GameTypeResult `json:"results"`
}

// Generation creates one automated tournament per game type for the next
// slot.
type Generation struct {
	API       TournamentAPI
	Templates templates.Resolver
	GameTypes []models.GameType
	Claims    SlotClaimer
	Archive   storage.Archiver

	Interval         time.Duration
	Duration         time.Duration
	RegistrationLead time.Duration
	CheckInLead      time.Duration
	// Workers bounds concurrent game types.
	Workers int

	Now    func() time.Time
	Logger *slog.Logger
}

// SlotStart is the boundary after now+interval. Any run inside the same
// interval computes the same value.
func (g *Generation) SlotStart(now time.Time) time.Time {
	return now.UTC().Truncate(g.Interval).Add(2 * g.Interval)
}

func (g *Generation) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

// Run attempts every game type and never returns early; each outcome is
// recorded by position. Once the store rejects the credential, game types
// that have not made their calls yet are deferred to the next run.
func (g *Generation) Run(ctx context.Context) GenerationSummary {
	ranAt := g.now().UTC()
	start := g.SlotStart(ranAt)
	gameTypes := g.GameTypes
	if len(gameTypes) == 0 {
		gameTypes = templates.GameTypes()
	}

	results := make([]GameTypeResult, len(gameTypes))
	var halted atomic.Bool
	var eg errgroup.Group
	if g.Workers > 0 {
		eg.SetLimit(g.Workers)
	}
	for i, gt := range gameTypes {
		eg.Go(func() error {
			results[i] = g.generateOne(ctx, gt, start, &halted)
			return nil
		})
	}
	_ = eg.Wait()

	summary := GenerationSummary{RanAt: ranAt, StartTime: start, Results: results}
	for _, r := range results {
		switch r.Outcome {
		case OutcomeCreated:
			summary.Created++
		case OutcomeSkipped:
			summary.Skipped++
		case OutcomeDeferred:
			summary.Deferred++
		default:
			summary.Failed++
		}
	}
	g.Logger.Info("🏆 generation finished",
		"start_time", start,
		"created", summary.Created,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"deferred", summary.Deferred,
	)
	g.archive(ctx, summary)
	return summary
}

func (g *Generation) generateOne(ctx context.Context, gt models.GameType, start time.Time, halted *atomic.Bool) GameTypeResult {
	res := GameTypeResult{GameType: gt}
	deferred := func() GameTypeResult {
		res.Outcome = OutcomeDeferred
		res.Detail = "credential rejected earlier in this run"
		return res
	}
	fail := func(stage string, err error) GameTypeResult {
		if errors.Is(err, models.ErrUnauthorized) && !halted.Swap(true) {
			g.Logger.Warn("credential rejected, deferring remaining game types to next run", "game_type", gt)
		}
		res.Outcome = OutcomeFailed
		res.Detail = fmt.Sprintf("%s: %v", stage, err)
		g.Logger.Warn("generation failed", "game_type", gt, "stage", stage, "error", err)
		return res
	}

	tpl, err := g.Templates.Resolve(gt)
	if err != nil {
		return fail("resolve template", err)
	}

	if halted.Load() {
		return deferred()
	}
	existing, err := g.API.FindAutomated(ctx, gt, start)
	if err != nil {
		return fail("dedup lookup", err)
	}
	if existing != nil {
		res.Outcome = OutcomeSkipped
		res.TournamentID = existing.ID
		res.Detail = "slot already filled"
		return res
	}

	key := models.DedupKey(gt, start)
	claimed, err := g.Claims.Claim(ctx, key, 2*g.Interval)
	if err != nil {
		g.Logger.Warn("slot claim unavailable, relying on store dedup", "game_type", gt, "error", err)
	} else if !claimed {
		res.Outcome = OutcomeSkipped
		res.Detail = "slot claimed by another scheduler"
		return res
	}

	if halted.Load() {
		g.release(ctx, gt, key)
		return deferred()
	}
	t, err := g.API.CreateTournament(ctx, g.request(tpl, start))
	if errors.Is(err, models.ErrDuplicateTournament) {
		res.Outcome = OutcomeSkipped
		res.Detail = "slot already filled"
		return res
	}
	if err != nil {
		g.release(ctx, gt, key)
		return fail("create", err)
	}

	res.Outcome = OutcomeCreated
	res.TournamentID = t.ID
	g.Logger.Info("✅ automated tournament created", "game_type", gt, "tournament_id", t.ID, "start_time", start)
	return res
}

func (g *Generation) release(ctx context.Context, gt models.GameType, key string) {
	if err := g.Claims.Release(ctx, key); err != nil {
		g.Logger.Warn("slot release failed", "game_type", gt, "error", err)
	}
}

func (g *Generation) request(tpl templates.Template, start time.Time) clients.CreateTournamentRequest {
	return clients.CreateTournamentRequest{
		Name:                 fmt.Sprintf("%s %s", tpl.Name, start.Format("Jan 2 15:04 MST")),
		Description:          fmt.Sprintf("%s Automated %s tournament.", tpl.Description, templates.DisplayName(tpl.GameType)),
		GameType:             tpl.GameType,
		Type:                 models.TypeAutomated,
		StartTime:            start,
		EndTime:              start.Add(g.Duration),
		RegistrationDeadline: start.Add(-g.RegistrationLead),
		CheckInDeadline:      start.Add(-g.CheckInLead),
		MinParticipants:      tpl.MinParticipants,
		MaxParticipants:      tpl.MaxParticipants,
		EntryFee:             tpl.EntryFee,
		PrizePool:            clients.PrizePool{First: tpl.PrizeFirst, Second: tpl.PrizeSecond, Third: tpl.PrizeThird},
		AutoStartThreshold:   tpl.AutoStartThreshold,
		Rules:                tpl.Rules,
		OpenRegistration:     true,
	}
}

func (g *Generation) archive(ctx context.Context, summary GenerationSummary) {
	if g.Archive == nil {
		return
	}
	body, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		g.Logger.Warn("encoding generation summary", "error", err)
		return
	}
	key := fmt.Sprintf("%s/%d.json", summary.StartTime.Format("2006-01-02T15-04Z"), summary.RanAt.Unix())
	if err := g.Archive.Put(ctx, key, body); err != nil {
		g.Logger.Warn("archiving generation summary", "key", key, "error", err)
	}
}
