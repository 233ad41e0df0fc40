package clients

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tournament-engine/models"
)

// TournamentClient is the typed surface of the Tournament Store API used by
// the scheduler.
type TournamentClient struct {
	api *CredentialedClient
}

func NewTournamentClient(api *CredentialedClient) *TournamentClient {
	return &TournamentClient{api: api}
}

type PrizePool struct {
	First  float64 `json:"first"`
	Second float64 `json:"second"`
	Third  float64 `json:"third"`
}

type CreateTournamentRequest struct {
	Name                 string                `json:"name"`
	Description          string                `json:"description,omitempty"`
	GameType             models.GameType       `json:"game_type"`
	Type                 models.TournamentType `json:"type"`
	StartTime            time.Time             `json:"start_time"`
	EndTime              time.Time             `json:"end_time"`
	RegistrationDeadline time.Time             `json:"registration_deadline"`
	CheckInDeadline      time.Time             `json:"check_in_deadline"`
	MinParticipants      int                   `json:"min_participants"`
	MaxParticipants      int                   `json:"max_participants"`
	EntryFee             float64               `json:"entry_fee"`
	PrizePool            PrizePool             `json:"prize_pool"`
	AutoStartThreshold   float64               `json:"auto_start_threshold"`
	Rules                []string              `json:"rules,omitempty"`
	OpenRegistration     bool                  `json:"open_registration"`
}

type ListQuery struct {
	Statuses  []models.TournamentStatus
	GameType  models.GameType
	Type      models.TournamentType
	StartTime *time.Time
	Page      int
	Limit     int
}

func (q ListQuery) values() url.Values {
	v := url.Values{}
	if len(q.Statuses) > 0 {
		parts := make([]string, len(q.Statuses))
		for i, s := range q.Statuses {
			parts[i] = string(s)
		}
		v.Set("status", strings.Join(parts, ","))
	}
	if q.GameType != "" {
		v.Set("gameType", string(q.GameType))
	}
	if q.Type != "" {
		v.Set("type", string(q.Type))
	}
	if q.StartTime != nil {
		v.Set("startTime", q.StartTime.UTC().Format(time.RFC3339))
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}

type TournamentPage struct {
	Tournaments []models.Tournament `json:"tournaments"`
	Total       int64               `json:"total"`
	Page        int                 `json:"page"`
	Limit       int                 `json:"limit"`
}

func (c *TournamentClient) CreateTournament(ctx context.Context, req CreateTournamentRequest) (*models.Tournament, error) {
	var out models.Tournament
	if err := c.api.Do(ctx, http.MethodPost, "/tournaments", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *TournamentClient) ListTournaments(ctx context.Context, q ListQuery) (*TournamentPage, error) {
	var out TournamentPage
	if err := c.api.Do(ctx, http.MethodGet, "/tournaments", q.values(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FindAutomated returns the automated tournament already occupying the
// (gameType, start) slot, or nil.
func (c *TournamentClient) FindAutomated(ctx context.Context, gameType models.GameType, start time.Time) (*models.Tournament, error) {
	page, err := c.ListTournaments(ctx, ListQuery{
		GameType:  gameType,
		Type:      models.TypeAutomated,
		StartTime: &start,
		Limit:     1,
	})
	if err != nil {
		return nil, err
	}
	if len(page.Tournaments) == 0 {
		return nil, nil
	}
	return &page.Tournaments[0], nil
}

func (c *TournamentClient) UpdateStatus(ctx context.Context, id string, status models.TournamentStatus) (*models.Tournament, error) {
	var out models.Tournament
	body := map[string]models.TournamentStatus{"status": status}
	if err := c.api.Do(ctx, http.MethodPatch, "/tournaments/"+url.PathEscape(id)+"/status", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *TournamentClient) Health(ctx context.Context) error {
	return c.api.Health(ctx)
}
