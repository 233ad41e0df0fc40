package services

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"tournament-engine/middleware"
	"tournament-engine/models"
)

// Request bodies omit status, current_participants and
// prize_pool.total; anything a client sends for those is dropped.
type prizePoolRequest struct {
	First  float64 `json:"first"`
	Second float64 `json:"second"`
	Third  float64 `json:"third"`
}

type createTournamentRequest struct {
	Name                 string                `json:"name"`
	Description          string                `json:"description"`
	GameType             models.GameType       `json:"game_type"`
	Type                 models.TournamentType `json:"type"`
	StartTime            time.Time             `json:"start_time"`
	EndTime              time.Time             `json:"end_time"`
	RegistrationDeadline time.Time             `json:"registration_deadline"`
	CheckInDeadline      time.Time             `json:"check_in_deadline"`
	MinParticipants      int                   `json:"min_participants"`
	MaxParticipants      int                   `json:"max_participants"`
	EntryFee             float64               `json:"entry_fee"`
	PrizePool            prizePoolRequest      `json:"prize_pool"`
	AutoStartThreshold   float64               `json:"auto_start_threshold"`
	Rules                []string              `json:"rules"`
	OpenRegistration     bool                  `json:"open_registration"`
}

type statusRequest struct {
	Status models.TournamentStatus `json:"status"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

type participantRequest struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

type disqualifyRequest struct {
	Reason string `json:"reason"`
}

type matchRequest struct {
	Round        int      `json:"round"`
	Participants []string `json:"participants"`
}

type matchResultRequest struct {
	Scores map[string]int64 `json:"scores"`
}

// HealthCheck reports whether the store can reach its persistence layer.
func (s *TournamentService) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
	defer cancel()
	if err := s.Repo.Ping(ctx); err != nil {
		s.Logger.Warn("health check failed", "error", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "disconnected"})
	}
	return c.JSON(fiber.Map{"status": "connected"})
}

func (s *TournamentService) CreateTournament(c *fiber.Ctx) error {
	var req createTournamentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "body", "invalid JSON payload")
	}
	t, err := s.Create(c.UserContext(), models.TournamentParams{
		Name:                 req.Name,
		Description:          req.Description,
		GameType:             req.GameType,
		Type:                 req.Type,
		StartTime:            req.StartTime,
		EndTime:              req.EndTime,
		RegistrationDeadline: req.RegistrationDeadline,
		CheckInDeadline:      req.CheckInDeadline,
		MinParticipants:      req.MinParticipants,
		MaxParticipants:      req.MaxParticipants,
		EntryFee:             req.EntryFee,
		PrizeFirst:           req.PrizePool.First,
		PrizeSecond:          req.PrizePool.Second,
		PrizeThird:           req.PrizePool.Third,
		AutoStartThreshold:   req.AutoStartThreshold,
		Rules:                req.Rules,
		CreatedBy:            middleware.UserID(c),
	}, req.OpenRegistration)
	if err != nil {
		return respondError(c, s.Logger, err)
	}
	return c.Status(fiber.StatusCreated).JSON(t)
}

func (s *TournamentService) GetAllTournaments(c *fiber.Ctx) error {
	f := ListFilter{
		GameType: models.GameType(c.Query("gameType", c.Query("game_type"))),
		Type:     models.TournamentType(c.Query("type")),
	}
	if f.GameType != "" && !f.GameType.Valid() {
		return badRequest(c, "gameType", "unknown game type")
	}
	if f.Type != "" && !f.Type.Valid() {
		return badRequest(c, "type", "unknown tournament type")
	}
	if raw := c.Query("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			st := models.TournamentStatus(strings.TrimSpace(part))
			if !st.Valid() {
				return badRequest(c, "status", "unknown status "+string(st))
			}
			f.Statuses = append(f.Statuses, st)
		}
	}
	if raw := c.Query("startTime", c.Query("start_time")); raw != "" {
		st, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return badRequest(c, "startTime", "must be RFC3339")
		}
		f.StartTime = &st
	}
	var err error
	if f.Page, err = intQuery(c, "page", 1); err != nil {
		return badRequest(c, "page", "must be an integer")
	}
	if f.Limit, err = intQuery(c, "limit", DefaultPageLimit); err != nil {
		return badRequest(c, "limit", "must be an integer")
	}
	f = f.normalized()

	items, total, err := s.List(c.UserContext(), f)
	if err != nil {
		return respondError(c, s.Logger, err)
	}
	return c.JSON(fiber.Map{
		"tournaments": items,
		"total":       total,
		"page":        f.Page,
		"limit":       f.Limit,
	})
}

func intQuery(c *fiber.Ctx, key string, fallback int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func (s *TournamentService) GetTournamentByID(c *fiber.Ctx) error {
	t, err := s.Find(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, s.Logger, err)
	}
	return c.JSON(t)
}

// UpdateTournamentStatus drives the deadline-based transitions.
func (s *TournamentService) UpdateTournamentStatus(c *fiber.Ctx) error {
	var req statusRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "body", "invalid JSON payload")
	}
	return s.reply(c, func(ctx context.Context, id string) (*models.Tournament, error) {
		return s.Transition(ctx, id, req.Status)
	})
}

func (s *TournamentService) OpenTournament(c *fiber.Ctx) error {
	return s.reply(c, s.OpenRegistration)
}

func (s *TournamentService) CloseTournament(c *fiber.Ctx) error {
	return s.reply(c, s.CloseRegistration)
}

func (s *TournamentService) StartTournament(c *fiber.Ctx) error {
	return s.reply(c, s.StartEarly)
}

func (s *TournamentService) EndTournament(c *fiber.Ctx) error {
	return s.reply(c, s.End)
}

func (s *TournamentService) CancelTournament(c *fiber.Ctx) error {
	var req cancelRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "body", "invalid JSON payload")
		}
	}
	return s.reply(c, func(ctx context.Context, id string) (*models.Tournament, error) {
		return s.Cancel(ctx, id, req.Reason)
	})
}

func (s *TournamentService) UpdatePrizePool(c *fiber.Ctx) error {
	var req prizePoolRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "body", "invalid JSON payload")
	}
	return s.reply(c, func(ctx context.Context, id string) (*models.Tournament, error) {
		return s.SetPrizePool(ctx, id, req.First, req.Second, req.Third)
	})
}

// JoinTournament registers user_id from the body, or the caller when absent.
// actingFor allows participant actions on the caller's own record; staff and
// the scheduler may act for anyone.
func actingFor(c *fiber.Ctx, userID string) bool {
	if userID == middleware.UserID(c) {
		return true
	}
	return middleware.HasRole(c, middleware.RoleAdmin, middleware.RoleOrganizer, middleware.RoleScheduler)
}

func (s *TournamentService) JoinTournament(c *fiber.Ctx) error {
	var req participantRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "body", "invalid JSON payload")
	}
	if req.UserID == "" {
		req.UserID = middleware.UserID(c)
	}
	if !actingFor(c, req.UserID) {
		return middleware.Forbidden(c, "cannot register another user")
	}
	return s.reply(c, func(ctx context.Context, id string) (*models.Tournament, error) {
		return s.Register(ctx, id, req.UserID, req.Username)
	})
}

func (s *TournamentService) RemoveParticipant(c *fiber.Ctx) error {
	userID := c.Params("userId")
	return s.reply(c, func(ctx context.Context, id string) (*models.Tournament, error) {
		return s.Unregister(ctx, id, userID)
	})
}

func (s *TournamentService) ConfirmParticipant(c *fiber.Ctx) error {
	userID := c.Params("userId")
	if !actingFor(c, userID) {
		return middleware.Forbidden(c, "cannot check in another user")
	}
	return s.reply(c, func(ctx context.Context, id string) (*models.Tournament, error) {
		return s.Confirm(ctx, id, userID)
	})
}

func (s *TournamentService) WithdrawParticipant(c *fiber.Ctx) error {
	userID := c.Params("userId")
	if !actingFor(c, userID) {
		return middleware.Forbidden(c, "cannot withdraw another user")
	}
	return s.reply(c, func(ctx context.Context, id string) (*models.Tournament, error) {
		return s.Withdraw(ctx, id, userID)
	})
}

func (s *TournamentService) DisqualifyParticipant(c *fiber.Ctx) error {
	var req disqualifyRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "body", "invalid JSON payload")
		}
	}
	userID := c.Params("userId")
	return s.reply(c, func(ctx context.Context, id string) (*models.Tournament, error) {
		return s.Disqualify(ctx, id, userID, req.Reason)
	})
}

func (s *TournamentService) MarkParticipantFeePaid(c *fiber.Ctx) error {
	userID := c.Params("userId")
	return s.reply(c, func(ctx context.Context, id string) (*models.Tournament, error) {
		return s.MarkFeePaid(ctx, id, userID)
	})
}

func (s *TournamentService) CreateMatch(c *fiber.Ctx) error {
	var req matchRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "body", "invalid JSON payload")
	}
	t, match, err := s.ScheduleMatch(c.UserContext(), c.Params("id"), req.Round, req.Participants)
	if err != nil {
		return respondError(c, s.Logger, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"match": match, "tournament": t})
}

func (s *TournamentService) SubmitMatchResult(c *fiber.Ctx) error {
	var req matchResultRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "body", "invalid JSON payload")
	}
	matchID := c.Params("matchId")
	return s.reply(c, func(ctx context.Context, id string) (*models.Tournament, error) {
		return s.RecordResult(ctx, id, matchID, req.Scores)
	})
}

// reply runs op against the :id route param and writes the result.
func (s *TournamentService) reply(c *fiber.Ctx, op func(ctx context.Context, id string) (*models.Tournament, error)) error {
	t, err := op(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, s.Logger, err)
	}
	return c.JSON(t)
}
