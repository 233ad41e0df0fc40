package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tournament-engine/middleware"
	"tournament-engine/services"
)

var (
	secret = []byte("handler-test-secret")
	now    = time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC)
)

type harness struct {
	app       *fiber.App
	admin     string
	scheduler string
	player    string
	svc       *services.TournamentService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := services.NewTournamentService(services.NewMemoryRepository(), services.LogPublisher{Logger: logger}, logger)
	svc.Now = func() time.Time { return now }

	app := fiber.New()
	SetupTournamentRoutes(app, svc, secret, logger)

	sign := func(sub string, roles ...string) string {
		tok, err := middleware.SignToken(secret, sub, roles, time.Hour)
		require.NoError(t, err)
		return tok
	}
	return &harness{
		app:       app,
		svc:       svc,
		admin:     sign("admin-1", middleware.RoleAdmin),
		scheduler: sign("scheduler", middleware.RoleScheduler),
		player:    sign("player-1", "player"),
	}
}

func (h *harness) call(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := h.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func createBody() map[string]any {
	start := now.Add(time.Hour)
	return map[string]any{
		"name":                  "Morning Duo",
		"game_type":             "duo",
		"start_time":            start,
		"end_time":              start.Add(2 * time.Hour),
		"registration_deadline": start.Add(-10 * time.Minute),
		"check_in_deadline":     start.Add(-5 * time.Minute),
		"min_participants":      2,
		"max_participants":      2,
		"auto_start_threshold":  1,
		"prize_pool":            map[string]any{"first": 60, "second": 30, "third": 10, "total": 99999},
		"status":                "live",
		"current_participants":  42,
		"open_registration":     true,
	}
}

func TestHealth_NoAuth(t *testing.T) {
	h := newHarness(t)
	code, body := h.call(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "connected", body["status"])
}

func TestCreate_IgnoresDerivedFields(t *testing.T) {
	h := newHarness(t)
	code, body := h.call(t, http.MethodPost, "/tournaments", h.scheduler, createBody())
	require.Equal(t, http.StatusCreated, code, body)

	assert.Equal(t, "registration_open", body["status"])
	assert.EqualValues(t, 0, body["current_participants"])
	assert.EqualValues(t, 100, body["prize_pool"].(map[string]any)["total"])
	assert.Equal(t, "scheduler", body["created_by"])
}

func TestCreate_Auth(t *testing.T) {
	h := newHarness(t)
	code, body := h.call(t, http.MethodPost, "/tournaments", "", createBody())
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "UNAUTHORIZED", body["code"])

	code, body = h.call(t, http.MethodPost, "/tournaments", h.player, createBody())
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "FORBIDDEN", body["code"])
}

func TestCreate_ValidationFields(t *testing.T) {
	h := newHarness(t)
	b := createBody()
	b["game_type"] = "battle_royale"
	code, body := h.call(t, http.MethodPost, "/tournaments", h.admin, b)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "VALIDATION_FAILED", body["code"])
	assert.Contains(t, body["fields"], "game_type")
}

func TestLifecycleOverHTTP(t *testing.T) {
	h := newHarness(t)
	_, created := h.call(t, http.MethodPost, "/tournaments", h.admin, createBody())
	id := created["id"].(string)
	base := "/tournaments/" + id

	code, _ := h.call(t, http.MethodPost, base+"/participants", h.player, map[string]any{"username": "p1"})
	require.Equal(t, http.StatusOK, code)
	code, _ = h.call(t, http.MethodPost, base+"/participants", h.admin, map[string]any{"user_id": "p2", "username": "p2"})
	require.Equal(t, http.StatusOK, code)

	code, body := h.call(t, http.MethodPost, base+"/participants", h.admin, map[string]any{"user_id": "p3", "username": "p3"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "TOURNAMENT_FULL", body["code"])

	code, body = h.call(t, http.MethodPost, base+"/participants/player-1/confirm", h.player, nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["current_participants"])

	code, body = h.call(t, http.MethodPatch, base+"/status", h.scheduler, map[string]any{"status": "registration_closed"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "DEADLINE_NOT_REACHED", body["code"])

	code, _ = h.call(t, http.MethodPost, base+"/close", h.admin, nil)
	require.Equal(t, http.StatusOK, code)

	code, body = h.call(t, http.MethodPost, base+"/start", h.admin, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "CANNOT_START_YET", body["code"])

	code, _ = h.call(t, http.MethodPost, base+"/participants/p2/confirm", h.admin, nil)
	require.Equal(t, http.StatusOK, code)
	code, body = h.call(t, http.MethodPost, base+"/start", h.admin, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "live", body["status"])

	code, body = h.call(t, http.MethodPost, base+"/matches", h.admin, map[string]any{"round": 1, "participants": []string{"player-1", "p2"}})
	require.Equal(t, http.StatusCreated, code)
	matchID := body["match"].(map[string]any)["id"].(string)

	code, body = h.call(t, http.MethodPost, base+"/matches/"+matchID+"/result", h.admin, map[string]any{"scores": map[string]int{"player-1": 2, "p2": 1}})
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["completed_matches"])

	code, body = h.call(t, http.MethodPost, base+"/end", h.admin, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "completed", body["status"])

	code, body = h.call(t, http.MethodPost, base+"/cancel", h.admin, map[string]any{"reason": "oops"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "ALREADY_COMPLETED", body["code"])
}

func TestCancelRecordsReason(t *testing.T) {
	h := newHarness(t)
	_, created := h.call(t, http.MethodPost, "/tournaments", h.admin, createBody())
	code, body := h.call(t, http.MethodPost, "/tournaments/"+created["id"].(string)+"/cancel", h.admin, map[string]any{"reason": "Server outage (EU)"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "cancelled", body["status"])
	assert.Equal(t, "Server outage (EU)", body["cancellation_reason"])
}

func TestListTournaments(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 3; i++ {
		b := createBody()
		if i == 2 {
			b["open_registration"] = false
		}
		code, _ := h.call(t, http.MethodPost, "/tournaments", h.admin, b)
		require.Equal(t, http.StatusCreated, code)
	}

	code, body := h.call(t, http.MethodGet, "/tournaments?status=registration_open,registration_closed&limit=500", h.player, nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 2, body["total"])
	assert.EqualValues(t, 100, body["limit"])
	assert.Len(t, body["tournaments"], 2)

	start := now.Add(time.Hour).Format(time.RFC3339)
	code, body = h.call(t, http.MethodGet, "/tournaments?gameType=duo&startTime="+start, h.player, nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 3, body["total"])

	code, body = h.call(t, http.MethodGet, "/tournaments?status=paused", h.player, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "VALIDATION_FAILED", body["code"])
}

func TestGetTournament_NotFound(t *testing.T) {
	h := newHarness(t)
	code, body := h.call(t, http.MethodGet, "/tournaments/nope", h.player, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "TOURNAMENT_NOT_FOUND", body["code"])
}

func TestParticipantErrors(t *testing.T) {
	h := newHarness(t)
	_, created := h.call(t, http.MethodPost, "/tournaments", h.admin, createBody())
	base := "/tournaments/" + created["id"].(string)

	code, body := h.call(t, http.MethodPost, base+"/participants/ghost/confirm", h.admin, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "PARTICIPANT_NOT_FOUND", body["code"])

	h.call(t, http.MethodPost, base+"/participants", h.player, map[string]any{"username": "p1"})
	code, body = h.call(t, http.MethodPost, base+"/participants", h.player, map[string]any{"username": "p1"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "ALREADY_REGISTERED", body["code"])

	code, body = h.call(t, http.MethodPost, base+"/participants/player-1/disqualify", h.admin, map[string]any{"reason": "cheating"})
	require.Equal(t, http.StatusOK, code)
	participants := body["participants"].([]any)
	assert.Equal(t, "disqualified", participants[0].(map[string]any)["status"])

	code, _ = h.call(t, http.MethodDelete, base+"/participants/player-1", h.admin, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestParticipantActions_OwnRecordOnly(t *testing.T) {
	h := newHarness(t)
	_, created := h.call(t, http.MethodPost, "/tournaments", h.admin, createBody())
	base := "/tournaments/" + created["id"].(string)

	code, body := h.call(t, http.MethodPost, base+"/participants", h.player, map[string]any{"user_id": "someone-else", "username": "x"})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "FORBIDDEN", body["code"])

	code, _ = h.call(t, http.MethodPost, base+"/participants", h.admin, map[string]any{"user_id": "p2", "username": "p2"})
	require.Equal(t, http.StatusOK, code)

	code, _ = h.call(t, http.MethodPost, base+"/participants/p2/confirm", h.player, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = h.call(t, http.MethodPost, base+"/participants/p2/withdraw", h.player, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = h.call(t, http.MethodPost, base+"/participants", h.player, map[string]any{"username": "p1"})
	require.Equal(t, http.StatusOK, code)
	code, _ = h.call(t, http.MethodPost, base+"/participants/player-1/withdraw", h.player, nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = h.call(t, http.MethodPost, base+"/participants/p2/confirm", h.scheduler, nil)
	assert.Equal(t, http.StatusOK, code)
}
