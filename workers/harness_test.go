package workers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/stretchr/testify/require"

	"tournament-engine/clients"
	"tournament-engine/handlers"
	"tournament-engine/middleware"
	"tournament-engine/models"
	"tournament-engine/services"
	"tournament-engine/templates"
)

var jwtSecret = []byte("workers-test-secret")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// stack is a real store and a fake identity service behind httptest, with
// the scheduler's clients pointed at them.
type stack struct {
	clock   *testClock
	svc     *services.TournamentService
	api     *clients.CredentialedClient
	client  *clients.TournamentClient
	auth    *clients.AuthServiceClient
	logins  atomic.Int32
	patches atomic.Int32
	// rejectPatch401 and rejectGet401 make the next N status updates or
	// reads fail with 401.
	rejectPatch401 atomic.Int32
	rejectGet401   atomic.Int32
}

func newStack(t *testing.T, start time.Time) *stack {
	t.Helper()
	s := &stack{clock: &testClock{now: start}}
	logger := discardLogger()

	s.svc = services.NewTournamentService(services.NewMemoryRepository(), services.LogPublisher{Logger: logger}, logger)
	s.svc.Now = s.clock.Now
	app := fiber.New()
	handlers.SetupTournamentRoutes(app, s.svc, jwtSecret, logger)
	storeHandler := adaptor.FiberApp(app)

	store := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reject := &s.rejectGet401
		if r.Method == http.MethodPatch {
			s.patches.Add(1)
			reject = &s.rejectPatch401
		}
		if r.URL.Path != "/health" && reject.Load() > 0 {
			reject.Add(-1)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"error":"invalid authentication token","code":"UNAUTHORIZED"}`)
			return
		}
		storeHandler(w, r)
	}))
	t.Cleanup(store.Close)

	identity := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(http.StatusOK)
		case "/auth/login":
			s.logins.Add(1)
			tok, err := middleware.SignToken(jwtSecret, "scheduler", []string{middleware.RoleScheduler}, time.Hour)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]string{"token": tok})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(identity.Close)

	s.auth = clients.NewAuthServiceClient(identity.URL, identity.Client())
	s.api = clients.NewCredentialedClient(store.URL, store.Client(), s.auth, "scheduler", "pw", 1000, logger)
	s.client = clients.NewTournamentClient(s.api)
	return s
}

func (s *stack) generation() *Generation {
	return &Generation{
		API:              s.client,
		Templates:        templates.Catalog{},
		GameTypes:        templates.GameTypes(),
		Claims:           NoopSlotClaims{},
		Interval:         30 * time.Minute,
		Duration:         2 * time.Hour,
		RegistrationLead: 10 * time.Minute,
		CheckInLead:      5 * time.Minute,
		Workers:          4,
		Now:              s.clock.Now,
		Logger:           discardLogger(),
	}
}

func (s *stack) advancement() *Advancement {
	return &Advancement{API: s.client, PageSize: 2, MaxPages: 10, Now: s.clock.Now, Logger: discardLogger()}
}

// seed creates a tournament directly in the store starting at start.
func (s *stack) seed(t *testing.T, name string, start time.Time, open bool) *models.Tournament {
	t.Helper()
	tr, err := s.svc.Create(context.Background(), models.TournamentParams{
		Name:                 name,
		GameType:             models.GameSquad,
		StartTime:            start,
		EndTime:              start.Add(2 * time.Hour),
		RegistrationDeadline: start.Add(-10 * time.Minute),
		CheckInDeadline:      start.Add(-5 * time.Minute),
		MinParticipants:      2,
		MaxParticipants:      16,
	}, open)
	require.NoError(t, err)
	return tr
}

func (s *stack) status(t *testing.T, id string) models.TournamentStatus {
	t.Helper()
	tr, err := s.svc.Find(context.Background(), id)
	require.NoError(t, err)
	return tr.Status
}
