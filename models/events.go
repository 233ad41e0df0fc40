package models

import "time"

type ChangeKind string

const (
	ChangeCreated      ChangeKind = "created"
	ChangeStatus       ChangeKind = "status_changed"
	ChangeParticipants ChangeKind = "participants_changed"
	ChangeMatches      ChangeKind = "matches_changed"
	ChangePrizePool    ChangeKind = "prize_pool_changed"
)

// ChangeEvent is emitted after every persisted mutation.
type ChangeEvent struct {
	TournamentID string           `json:"tournament_id"`
	Kind         ChangeKind       `json:"kind"`
	Status       TournamentStatus `json:"status"`
	Version      int              `json:"version"`
	At           time.Time        `json:"at"`
}
