package models

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/datatypes"
)

type GameType string

const (
	GameSolo       GameType = "solo"
	GameDuo        GameType = "duo"
	GameSquad      GameType = "squad"
	GameClashSquad GameType = "clash_squad"
)

// GameTypes is the fixed catalog, in generation order.
var GameTypes = []GameType{GameSolo, GameDuo, GameSquad, GameClashSquad}

func (g GameType) Valid() bool {
	for _, known := range GameTypes {
		if g == known {
			return true
		}
	}
	return false
}

type TournamentStatus string

const (
	StatusUpcoming           TournamentStatus = "upcoming"
	StatusRegistrationOpen   TournamentStatus = "registration_open"
	StatusRegistrationClosed TournamentStatus = "registration_closed"
	StatusLive               TournamentStatus = "live"
	StatusCompleted          TournamentStatus = "completed"
	StatusCancelled          TournamentStatus = "cancelled"
)

func (s TournamentStatus) Valid() bool {
	switch s {
	case StatusUpcoming, StatusRegistrationOpen, StatusRegistrationClosed,
		StatusLive, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s TournamentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type TournamentType string

const (
	TypeAutomated TournamentType = "automated"
	TypeManual    TournamentType = "manual"
	TypeCustom    TournamentType = "custom"
)

func (t TournamentType) Valid() bool {
	return t == TypeAutomated || t == TypeManual || t == TypeCustom
}

const DefaultAutoStartThreshold = 0.8

// PrizePool.Total is derived; it is overwritten by Recompute.
type PrizePool struct {
	First  float64 `json:"first"`
	Second float64 `json:"second"`
	Third  float64 `json:"third"`
	Total  float64 `json:"total"`
}

// Tournament is the lifecycle aggregate. Status, CurrentParticipants,
// PrizePool.Total and the match counters are only ever written by the
// methods in this file.
type Tournament struct {
	ID          string         `json:"id" gorm:"primaryKey;type:uuid"`
	Slug        string         `json:"slug" gorm:"uniqueIndex;not null"`
	Name        string         `json:"name" gorm:"not null"`
	Description string         `json:"description"`
	GameType    GameType       `json:"game_type" gorm:"type:varchar(32);not null;index"`
	Type        TournamentType `json:"type" gorm:"type:varchar(16);not null;default:'manual'"`

	StartTime            time.Time `json:"start_time" gorm:"not null;index"`
	EndTime              time.Time `json:"end_time" gorm:"not null"`
	RegistrationDeadline time.Time `json:"registration_deadline" gorm:"not null"`
	CheckInDeadline      time.Time `json:"check_in_deadline" gorm:"not null"`

	MinParticipants     int     `json:"min_participants" gorm:"not null"`
	MaxParticipants     int     `json:"max_participants" gorm:"not null"`
	CurrentParticipants int     `json:"current_participants" gorm:"not null;default:0"`
	AutoStartThreshold  float64 `json:"auto_start_threshold" gorm:"not null;default:0.8"`

	EntryFee  float64   `json:"entry_fee" gorm:"not null;default:0"`
	PrizePool PrizePool `json:"prize_pool" gorm:"embedded;embeddedPrefix:prize_"`

	Status             TournamentStatus `json:"status" gorm:"type:varchar(24);not null;index"`
	CancellationReason string           `json:"cancellation_reason,omitempty"`

	Rules        datatypes.JSONSlice[string]      `json:"rules" gorm:"type:jsonb"`
	Participants datatypes.JSONSlice[Participant] `json:"participants" gorm:"type:jsonb"`
	Matches      datatypes.JSONSlice[MatchStub]   `json:"matches" gorm:"type:jsonb"`

	TotalMatches     int `json:"total_matches" gorm:"not null;default:0"`
	CompletedMatches int `json:"completed_matches" gorm:"not null;default:0"`

	// DedupKey is set only for automated tournaments; NULLs do not collide.
	DedupKey  *string `json:"dedup_key,omitempty" gorm:"uniqueIndex"`
	CreatedBy string  `json:"created_by,omitempty"`
	Version   int     `json:"version" gorm:"not null;default:1"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TournamentParams is everything a caller may choose at creation.
type TournamentParams struct {
	Name                 string
	Description          string
	GameType             GameType
	Type                 TournamentType
	StartTime            time.Time
	EndTime              time.Time
	RegistrationDeadline time.Time
	CheckInDeadline      time.Time
	MinParticipants      int
	MaxParticipants      int
	EntryFee             float64
	PrizeFirst           float64
	PrizeSecond          float64
	PrizeThird           float64
	AutoStartThreshold   float64
	Rules                []string
	CreatedBy            string
}

// DedupKey identifies an automated slot: one tournament per game type and start.
func DedupKey(gameType GameType, start time.Time) string {
	return fmt.Sprintf("%s@%d", gameType, start.UTC().Unix())
}

// NewTournament validates p and returns an upcoming tournament.
func NewTournament(p TournamentParams) (*Tournament, error) {
	if p.Type == "" {
		p.Type = TypeManual
	}
	if p.AutoStartThreshold == 0 {
		p.AutoStartThreshold = DefaultAutoStartThreshold
	}
	if err := p.validate(); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	t := &Tournament{
		ID:                   id,
		Slug:                 slug.Make(p.Name+" "+p.StartTime.UTC().Format("2006-01-02 1504")) + "-" + id[:8],
		Name:                 strings.TrimSpace(p.Name),
		Description:          p.Description,
		GameType:             p.GameType,
		Type:                 p.Type,
		StartTime:            p.StartTime.UTC(),
		EndTime:              p.EndTime.UTC(),
		RegistrationDeadline: p.RegistrationDeadline.UTC(),
		CheckInDeadline:      p.CheckInDeadline.UTC(),
		MinParticipants:      p.MinParticipants,
		MaxParticipants:      p.MaxParticipants,
		AutoStartThreshold:   p.AutoStartThreshold,
		EntryFee:             p.EntryFee,
		PrizePool:            PrizePool{First: p.PrizeFirst, Second: p.PrizeSecond, Third: p.PrizeThird},
		Status:               StatusUpcoming,
		Rules:                datatypes.JSONSlice[string](append([]string{}, p.Rules...)),
		Participants:         datatypes.JSONSlice[Participant]{},
		Matches:              datatypes.JSONSlice[MatchStub]{},
		CreatedBy:            p.CreatedBy,
		Version:              1,
	}
	if p.Type == TypeAutomated {
		key := DedupKey(p.GameType, p.StartTime)
		t.DedupKey = &key
	}
	t.Recompute()
	return t, nil
}

func (p TournamentParams) validate() error {
	v := &ValidationError{}
	if strings.TrimSpace(p.Name) == "" {
		v.Add("name", "is required")
	} else if utf8.RuneCountInString(p.Name) > 120 {
		v.Add("name", "must be at most 120 characters")
	}
	if !p.GameType.Valid() {
		v.Add("game_type", fmt.Sprintf("%q is not a known game type", p.GameType))
	}
	if !p.Type.Valid() {
		v.Add("type", fmt.Sprintf("%q is not a tournament type", p.Type))
	}

	times := map[string]time.Time{
		"registration_deadline": p.RegistrationDeadline,
		"check_in_deadline":     p.CheckInDeadline,
		"start_time":            p.StartTime,
		"end_time":              p.EndTime,
	}
	allSet := true
	for field, ts := range times {
		if ts.IsZero() {
			v.Add(field, "is required")
			allSet = false
		}
	}
	if allSet {
		if !p.RegistrationDeadline.Before(p.CheckInDeadline) {
			v.Add("registration_deadline", "must be before check_in_deadline")
		}
		if !p.CheckInDeadline.Before(p.StartTime) {
			v.Add("check_in_deadline", "must be before start_time")
		}
		if !p.StartTime.Before(p.EndTime) {
			v.Add("end_time", "must be after start_time")
		}
	}

	if p.MaxParticipants < 1 {
		v.Add("max_participants", "must be at least 1")
	}
	if p.MinParticipants < 0 {
		v.Add("min_participants", "must not be negative")
	} else if p.MinParticipants > p.MaxParticipants {
		v.Add("min_participants", "must not exceed max_participants")
	}
	if p.EntryFee < 0 || math.IsNaN(p.EntryFee) {
		v.Add("entry_fee", "must not be negative")
	}
	if err := validatePrizes(p.PrizeFirst, p.PrizeSecond, p.PrizeThird); err != nil {
		for k, msg := range err.Fields {
			v.Add(k, msg)
		}
	}
	if p.AutoStartThreshold <= 0 || p.AutoStartThreshold > 1 || math.IsNaN(p.AutoStartThreshold) {
		v.Add("auto_start_threshold", "must be in (0, 1]")
	}
	return v.OrNil()
}

func validatePrizes(first, second, third float64) *ValidationError {
	v := &ValidationError{}
	for field, amount := range map[string]float64{"prize_pool.first": first, "prize_pool.second": second, "prize_pool.third": third} {
		if amount < 0 || math.IsNaN(amount) {
			v.Add(field, "must not be negative")
		}
	}
	if len(v.Fields) == 0 {
		return nil
	}
	return v
}

// Recompute derives the fields that must never be taken from input. Every
// mutator calls it before returning.
func (t *Tournament) Recompute() {
	confirmed := 0
	for _, p := range t.Participants {
		if p.Status == ParticipantConfirmed {
			confirmed++
		}
	}
	t.CurrentParticipants = confirmed
	t.PrizePool.Total = t.PrizePool.First + t.PrizePool.Second + t.PrizePool.Third

	completed := 0
	for _, m := range t.Matches {
		if m.Status == MatchCompleted {
			completed++
		}
	}
	t.TotalMatches = len(t.Matches)
	t.CompletedMatches = completed
}

// RequiredForStart is ceil(MaxParticipants × AutoStartThreshold).
func (t *Tournament) RequiredForStart() int {
	threshold := t.AutoStartThreshold
	if threshold <= 0 {
		threshold = DefaultAutoStartThreshold
	}
	// the epsilon absorbs products like 0.7*10 landing a hair above 7
	return int(math.Ceil(float64(t.MaxParticipants)*threshold - 1e-9))
}

// CanStart reports whether an early start is permitted.
func (t *Tournament) CanStart() bool {
	return t.Status == StatusRegistrationClosed && t.confirmedCount() >= t.RequiredForStart()
}

// OpenRegistration moves an upcoming tournament to registration_open.
func (t *Tournament) OpenRegistration() error {
	if t.Status != StatusUpcoming {
		return fmt.Errorf("%w: cannot open registration from %s", ErrInvalidTransition, t.Status)
	}
	t.Status = StatusRegistrationOpen
	t.Recompute()
	return nil
}

// CloseRegistration closes an open registration. Without force the deadline
// must have passed.
func (t *Tournament) CloseRegistration(now time.Time, force bool) error {
	if t.Status != StatusRegistrationOpen {
		return fmt.Errorf("%w: cannot close registration from %s", ErrInvalidTransition, t.Status)
	}
	if !force && now.Before(t.RegistrationDeadline) {
		return ErrDeadlineNotReached
	}
	t.Status = StatusRegistrationClosed
	t.Recompute()
	return nil
}

// BeginAtScheduledTime is the time-driven path to live. The planned start
// time is kept.
func (t *Tournament) BeginAtScheduledTime(now time.Time) error {
	if t.Status != StatusRegistrationClosed {
		return fmt.Errorf("%w: cannot go live from %s", ErrInvalidTransition, t.Status)
	}
	if now.Before(t.StartTime) {
		return ErrCannotStartYet
	}
	t.Status = StatusLive
	t.Recompute()
	return nil
}

// Start is the early start. It requires CanStart and re-stamps StartTime to
// the actual start.
func (t *Tournament) Start(now time.Time) error {
	if !t.CanStart() {
		return fmt.Errorf("%w: %d of %d required participants confirmed (status %s)",
			ErrCannotStartYet, t.confirmedCount(), t.RequiredForStart(), t.Status)
	}
	t.Status = StatusLive
	t.StartTime = now.UTC()
	t.Recompute()
	return nil
}

// End completes a live tournament.
func (t *Tournament) End(now time.Time) error {
	if t.Status != StatusLive {
		return ErrNotLive
	}
	t.Status = StatusCompleted
	t.EndTime = now.UTC()
	t.Recompute()
	return nil
}

// Cancel overrides any status except completed; reason is stored verbatim.
func (t *Tournament) Cancel(reason string) error {
	if t.Status == StatusCompleted {
		return ErrAlreadyCompleted
	}
	t.Status = StatusCancelled
	t.CancellationReason = reason
	t.Recompute()
	return nil
}

// SetPrizePool replaces the three prize components.
func (t *Tournament) SetPrizePool(first, second, third float64) error {
	if t.Status.Terminal() {
		return fmt.Errorf("%w: prize pool is frozen once %s", ErrInvalidTransition, t.Status)
	}
	if v := validatePrizes(first, second, third); v != nil {
		return v
	}
	t.PrizePool.First = first
	t.PrizePool.Second = second
	t.PrizePool.Third = third
	t.Recompute()
	return nil
}

// Clone returns a deep copy; the embedded lists are not shared.
func (t *Tournament) Clone() *Tournament {
	c := *t
	c.Rules = append(datatypes.JSONSlice[string]{}, t.Rules...)
	c.Participants = make(datatypes.JSONSlice[Participant], len(t.Participants))
	for i, p := range t.Participants {
		if p.CheckInTime != nil {
			at := *p.CheckInTime
			p.CheckInTime = &at
		}
		c.Participants[i] = p
	}
	c.Matches = make(datatypes.JSONSlice[MatchStub], len(t.Matches))
	for i, m := range t.Matches {
		m.Participants = append([]string{}, m.Participants...)
		if m.Scores != nil {
			scores := make(map[string]int64, len(m.Scores))
			for k, v := range m.Scores {
				scores[k] = v
			}
			m.Scores = scores
		}
		if m.CompletedAt != nil {
			at := *m.CompletedAt
			m.CompletedAt = &at
		}
		c.Matches[i] = m
	}
	if t.DedupKey != nil {
		key := *t.DedupKey
		c.DedupKey = &key
	}
	return &c
}
