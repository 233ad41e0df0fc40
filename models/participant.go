package models

import (
	"strings"
	"time"
)

type ParticipantStatus string

const (
	ParticipantRegistered   ParticipantStatus = "registered"
	ParticipantConfirmed    ParticipantStatus = "confirmed"
	ParticipantDisqualified ParticipantStatus = "disqualified"
	ParticipantWithdrawn    ParticipantStatus = "withdrawn"
)

// Active participants count against capacity.
func (s ParticipantStatus) Active() bool {
	return s == ParticipantRegistered || s == ParticipantConfirmed
}

type Participant struct {
	UserID                 string            `json:"user_id"`
	Username               string            `json:"username"`
	Status                 ParticipantStatus `json:"status"`
	RegistrationTime       time.Time         `json:"registration_time"`
	CheckInTime            *time.Time        `json:"check_in_time,omitempty"`
	IsCheckedIn            bool              `json:"is_checked_in"`
	EntryFeePaid           bool              `json:"entry_fee_paid"`
	DisqualificationReason string            `json:"disqualification_reason,omitempty"`
}

func (t *Tournament) findParticipant(userID string) int {
	for i, p := range t.Participants {
		if p.UserID == userID {
			return i
		}
	}
	return -1
}

// Participant returns a copy of the participant record for userID.
func (t *Tournament) Participant(userID string) (Participant, bool) {
	if i := t.findParticipant(userID); i >= 0 {
		return t.Participants[i], true
	}
	return Participant{}, false
}

func (t *Tournament) activeCount() int {
	n := 0
	for _, p := range t.Participants {
		if p.Status.Active() {
			n++
		}
	}
	return n
}

func (t *Tournament) confirmedCount() int {
	n := 0
	for _, p := range t.Participants {
		if p.Status == ParticipantConfirmed {
			n++
		}
	}
	return n
}

// AddParticipant registers a user. Failure precedence is full, then closed,
// then duplicate.
func (t *Tournament) AddParticipant(userID, username string, now time.Time) error {
	userID = strings.TrimSpace(userID)
	username = strings.TrimSpace(username)
	if userID == "" || username == "" {
		v := &ValidationError{}
		if userID == "" {
			v.Add("user_id", "is required")
		}
		if username == "" {
			v.Add("username", "is required")
		}
		return v
	}

	if t.activeCount() >= t.MaxParticipants {
		return ErrTournamentFull
	}
	if t.Status != StatusRegistrationOpen {
		return ErrRegistrationClosed
	}
	if t.findParticipant(userID) >= 0 {
		return ErrAlreadyRegistered
	}

	t.Participants = append(t.Participants, Participant{
		UserID:           userID,
		Username:         username,
		Status:           ParticipantRegistered,
		RegistrationTime: now.UTC(),
		EntryFeePaid:     t.EntryFee == 0,
	})
	t.Recompute()
	return nil
}

// RemoveParticipant drops the record entirely, freeing the user id.
func (t *Tournament) RemoveParticipant(userID string) error {
	i := t.findParticipant(userID)
	if i < 0 {
		return ErrParticipantNotFound
	}
	t.Participants = append(t.Participants[:i], t.Participants[i+1:]...)
	t.Recompute()
	return nil
}

// ConfirmParticipant checks a registered participant in.
func (t *Tournament) ConfirmParticipant(userID string, now time.Time) error {
	i := t.findParticipant(userID)
	if i < 0 {
		return ErrParticipantNotFound
	}
	if t.Status != StatusRegistrationOpen && t.Status != StatusRegistrationClosed {
		return ErrCheckInClosed
	}
	p := &t.Participants[i]
	if p.Status != ParticipantRegistered {
		return ErrInvalidParticipantState
	}
	at := now.UTC()
	p.Status = ParticipantConfirmed
	p.IsCheckedIn = true
	p.CheckInTime = &at
	t.Recompute()
	return nil
}

func (t *Tournament) WithdrawParticipant(userID string) error {
	i := t.findParticipant(userID)
	if i < 0 {
		return ErrParticipantNotFound
	}
	p := &t.Participants[i]
	if !p.Status.Active() {
		return ErrInvalidParticipantState
	}
	p.Status = ParticipantWithdrawn
	t.Recompute()
	return nil
}

func (t *Tournament) DisqualifyParticipant(userID, reason string) error {
	i := t.findParticipant(userID)
	if i < 0 {
		return ErrParticipantNotFound
	}
	p := &t.Participants[i]
	if !p.Status.Active() {
		return ErrInvalidParticipantState
	}
	p.Status = ParticipantDisqualified
	p.DisqualificationReason = reason
	t.Recompute()
	return nil
}

// MarkEntryFeePaid is called once the payments side has settled the fee.
func (t *Tournament) MarkEntryFeePaid(userID string) error {
	i := t.findParticipant(userID)
	if i < 0 {
		return ErrParticipantNotFound
	}
	if !t.Participants[i].Status.Active() {
		return ErrInvalidParticipantState
	}
	t.Participants[i].EntryFeePaid = true
	t.Recompute()
	return nil
}
