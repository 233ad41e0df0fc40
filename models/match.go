package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type MatchStatus string

const (
	MatchPending   MatchStatus = "pending"
	MatchCompleted MatchStatus = "completed"
)

// MatchStub is a placeholder for one bracket game. Bracket generation lives
// elsewhere; the store only tracks who plays and the final scores.
type MatchStub struct {
	ID           string           `json:"id"`
	Round        int              `json:"round"`
	Participants []string         `json:"participants"`
	Scores       map[string]int64 `json:"scores,omitempty"`
	Status       MatchStatus      `json:"status"`
	CompletedAt  *time.Time       `json:"completed_at,omitempty"`
}

func (t *Tournament) findMatch(matchID string) int {
	for i, m := range t.Matches {
		if m.ID == matchID {
			return i
		}
	}
	return -1
}

// AddMatch appends a pending match between confirmed participants.
func (t *Tournament) AddMatch(round int, userIDs []string) (MatchStub, error) {
	if t.Status != StatusRegistrationClosed && t.Status != StatusLive {
		return MatchStub{}, fmt.Errorf("%w: matches cannot be scheduled while %s", ErrInvalidTransition, t.Status)
	}

	v := &ValidationError{}
	if round < 1 {
		v.Add("round", "must be at least 1")
	}
	if len(userIDs) < 2 {
		v.Add("participants", "a match needs at least two participants")
	}
	seen := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		if seen[id] {
			v.Add("participants", fmt.Sprintf("%s is listed twice", id))
		}
		seen[id] = true
	}
	if err := v.OrNil(); err != nil {
		return MatchStub{}, err
	}

	for _, id := range userIDs {
		p, ok := t.Participant(id)
		if !ok {
			return MatchStub{}, fmt.Errorf("%w: %s", ErrParticipantNotFound, id)
		}
		if p.Status != ParticipantConfirmed {
			return MatchStub{}, fmt.Errorf("%w: %s is %s", ErrInvalidParticipantState, id, p.Status)
		}
	}

	m := MatchStub{
		ID:           uuid.NewString(),
		Round:        round,
		Participants: append([]string{}, userIDs...),
		Status:       MatchPending,
	}
	t.Matches = append(t.Matches, m)
	t.Recompute()
	return m, nil
}

// RecordMatchResult completes a pending match on a live tournament. Scores
// may only name the match's participants.
func (t *Tournament) RecordMatchResult(matchID string, scores map[string]int64, now time.Time) error {
	if t.Status != StatusLive {
		return ErrNotLive
	}
	i := t.findMatch(matchID)
	if i < 0 {
		return ErrMatchNotFound
	}
	m := &t.Matches[i]
	if m.Status == MatchCompleted {
		return ErrMatchAlreadyCompleted
	}

	playing := make(map[string]bool, len(m.Participants))
	for _, id := range m.Participants {
		playing[id] = true
	}
	v := &ValidationError{}
	if len(scores) == 0 {
		v.Add("scores", "is required")
	}
	for id := range scores {
		if !playing[id] {
			v.Add("scores."+id, "is not in this match")
		}
	}
	if err := v.OrNil(); err != nil {
		return err
	}

	at := now.UTC()
	m.Scores = make(map[string]int64, len(scores))
	for id, s := range scores {
		m.Scores[id] = s
	}
	m.Status = MatchCompleted
	m.CompletedAt = &at
	t.Recompute()
	return nil
}
