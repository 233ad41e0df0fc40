package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tournament-engine/models"
)

const defaultMutationAttempts = 5

type TournamentService struct {
	Repo   Repository
	Events Publisher
	Logger *slog.Logger
	// Now is the clock used for every deadline comparison.
	Now func() time.Time
	// MutationAttempts bounds the read-apply-update loop.
	MutationAttempts int
}

func NewTournamentService(repo Repository, events Publisher, logger *slog.Logger) *TournamentService {
	return &TournamentService{
		Repo:             repo,
		Events:           events,
		Logger:           logger.With("component", "tournament_service"),
		Now:              time.Now,
		MutationAttempts: defaultMutationAttempts,
	}
}

func (s *TournamentService) now() time.Time {
	return s.Now().UTC()
}

func (s *TournamentService) publish(ctx context.Context, t *models.Tournament, kind models.ChangeKind) {
	if s.Events == nil {
		return
	}
	s.Events.Publish(ctx, models.ChangeEvent{
		TournamentID: t.ID,
		Kind:         kind,
		Status:       t.Status,
		Version:      t.Version,
		At:           s.now(),
	})
}

// Create persists a new tournament, optionally opening registration in the
// same write.
func (s *TournamentService) Create(ctx context.Context, p models.TournamentParams, openRegistration bool) (*models.Tournament, error) {
	t, err := models.NewTournament(p)
	if err != nil {
		return nil, err
	}
	if openRegistration {
		if err := t.OpenRegistration(); err != nil {
			return nil, err
		}
	}
	if err := s.Repo.Create(ctx, t); err != nil {
		return nil, err
	}
	s.Logger.InfoContext(ctx, "tournament created",
		"tournament_id", t.ID, "game_type", t.GameType, "type", t.Type, "start_time", t.StartTime)
	s.publish(ctx, t, models.ChangeCreated)
	return t, nil
}

func (s *TournamentService) Find(ctx context.Context, id string) (*models.Tournament, error) {
	return s.Repo.Get(ctx, id)
}

func (s *TournamentService) List(ctx context.Context, f ListFilter) ([]*models.Tournament, int64, error) {
	return s.Repo.List(ctx, f)
}

// mutate loads, applies fn and writes back conditionally on the loaded
// version. A lost race re-runs fn against the fresh record so its
// preconditions are checked again.
func (s *TournamentService) mutate(ctx context.Context, id string, kind models.ChangeKind, fn func(t *models.Tournament, now time.Time) error) (*models.Tournament, error) {
	attempts := s.MutationAttempts
	if attempts <= 0 {
		attempts = defaultMutationAttempts
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		t, err := s.Repo.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		expected := t.Version
		if err := fn(t, s.now()); err != nil {
			return nil, err
		}
		t.Recompute()
		t.Version = expected + 1

		err = s.Repo.Update(ctx, t, expected)
		if errors.Is(err, errStaleVersion) {
			s.Logger.DebugContext(ctx, "version conflict, retrying",
				"tournament_id", id, "attempt", attempt, "version", expected)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("saving tournament %s: %w", id, err)
		}
		s.publish(ctx, t, kind)
		return t, nil
	}
	s.Logger.WarnContext(ctx, "gave up after repeated version conflicts", "tournament_id", id, "attempts", attempts)
	return nil, models.ErrConcurrentModification
}

// Transition applies the time-driven path to target. Closing requires the
// registration deadline to have passed; going live requires the start time.
func (s *TournamentService) Transition(ctx context.Context, id string, target models.TournamentStatus) (*models.Tournament, error) {
	var apply func(t *models.Tournament, now time.Time) error
	switch target {
	case models.StatusRegistrationOpen:
		apply = func(t *models.Tournament, _ time.Time) error { return t.OpenRegistration() }
	case models.StatusRegistrationClosed:
		apply = func(t *models.Tournament, now time.Time) error { return t.CloseRegistration(now, false) }
	case models.StatusLive:
		apply = func(t *models.Tournament, now time.Time) error { return t.BeginAtScheduledTime(now) }
	default:
		v := &models.ValidationError{}
		v.Add("status", fmt.Sprintf("%q is not reachable through a status update", target))
		return nil, v
	}
	t, err := s.mutate(ctx, id, models.ChangeStatus, apply)
	if err == nil {
		s.Logger.InfoContext(ctx, "status advanced", "tournament_id", id, "status", t.Status)
	}
	return t, err
}

func (s *TournamentService) OpenRegistration(ctx context.Context, id string) (*models.Tournament, error) {
	return s.mutate(ctx, id, models.ChangeStatus, func(t *models.Tournament, _ time.Time) error {
		return t.OpenRegistration()
	})
}

// CloseRegistration is the admin close; the deadline is not consulted.
func (s *TournamentService) CloseRegistration(ctx context.Context, id string) (*models.Tournament, error) {
	return s.mutate(ctx, id, models.ChangeStatus, func(t *models.Tournament, now time.Time) error {
		return t.CloseRegistration(now, true)
	})
}

// StartEarly starts once enough participants confirmed, ahead of StartTime.
func (s *TournamentService) StartEarly(ctx context.Context, id string) (*models.Tournament, error) {
	return s.mutate(ctx, id, models.ChangeStatus, func(t *models.Tournament, now time.Time) error {
		return t.Start(now)
	})
}

func (s *TournamentService) End(ctx context.Context, id string) (*models.Tournament, error) {
	return s.mutate(ctx, id, models.ChangeStatus, func(t *models.Tournament, now time.Time) error {
		return t.End(now)
	})
}

func (s *TournamentService) Cancel(ctx context.Context, id, reason string) (*models.Tournament, error) {
	t, err := s.mutate(ctx, id, models.ChangeStatus, func(t *models.Tournament, _ time.Time) error {
		return t.Cancel(reason)
	})
	if err == nil {
		s.Logger.InfoContext(ctx, "tournament cancelled", "tournament_id", id, "reason", reason)
	}
	return t, err
}

func (s *TournamentService) SetPrizePool(ctx context.Context, id string, first, second, third float64) (*models.Tournament, error) {
	return s.mutate(ctx, id, models.ChangePrizePool, func(t *models.Tournament, _ time.Time) error {
		return t.SetPrizePool(first, second, third)
	})
}

func (s *TournamentService) Register(ctx context.Context, id, userID, username string) (*models.Tournament, error) {
	return s.mutate(ctx, id, models.ChangeParticipants, func(t *models.Tournament, now time.Time) error {
		return t.AddParticipant(userID, username, now)
	})
}

func (s *TournamentService) Unregister(ctx context.Context, id, userID string) (*models.Tournament, error) {
	return s.mutate(ctx, id, models.ChangeParticipants, func(t *models.Tournament, _ time.Time) error {
		return t.RemoveParticipant(userID)
	})
}

func (s *TournamentService) Confirm(ctx context.Context, id, userID string) (*models.Tournament, error) {
	return s.mutate(ctx, id, models.ChangeParticipants, func(t *models.Tournament, now time.Time) error {
		return t.ConfirmParticipant(userID, now)
	})
}

func (s *TournamentService) Withdraw(ctx context.Context, id, userID string) (*models.Tournament, error) {
	return s.mutate(ctx, id, models.ChangeParticipants, func(t *models.Tournament, _ time.Time) error {
		return t.WithdrawParticipant(userID)
	})
}

func (s *TournamentService) Disqualify(ctx context.Context, id, userID, reason string) (*models.Tournament, error) {
	return s.mutate(ctx, id, models.ChangeParticipants, func(t *models.Tournament, _ time.Time) error {
		return t.DisqualifyParticipant(userID, reason)
	})
}

func (s *TournamentService) MarkFeePaid(ctx context.Context, id, userID string) (*models.Tournament, error) {
	return s.mutate(ctx, id, models.ChangeParticipants, func(t *models.Tournament, _ time.Time) error {
		return t.MarkEntryFeePaid(userID)
	})
}

func (s *TournamentService) ScheduleMatch(ctx context.Context, id string, round int, userIDs []string) (*models.Tournament, models.MatchStub, error) {
	var match models.MatchStub
	t, err := s.mutate(ctx, id, models.ChangeMatches, func(t *models.Tournament, _ time.Time) error {
		m, err := t.AddMatch(round, userIDs)
		match = m
		return err
	})
	return t, match, err
}

func (s *TournamentService) RecordResult(ctx context.Context, id, matchID string, scores map[string]int64) (*models.Tournament, error) {
	return s.mutate(ctx, id, models.ChangeMatches, func(t *models.Tournament, now time.Time) error {
		return t.RecordMatchResult(matchID, scores, now)
	})
}
