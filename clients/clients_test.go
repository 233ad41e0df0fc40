package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tournament-engine/models"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeAuth hands out token-1, token-2, ... and can be told to reject.
type fakeAuth struct {
	logins atomic.Int32
	delay  time.Duration
	err    error
}

func (f *fakeAuth) Login(_ context.Context, username, password string) (string, error) {
	n := f.logins.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("token-%d", n), nil
}

// fakeStore records the bearer of each request and answers with the next
// scripted status.
type fakeStore struct {
	mu       sync.Mutex
	bearers  []string
	statuses []int
	bodies   []string
	queries  []string
}

func (s *fakeStore) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.bearers = append(s.bearers, r.Header.Get("Authorization"))
		s.queries = append(s.queries, r.URL.RawQuery)
		status, body := http.StatusOK, `{"id":"t1","status":"registration_open"}`
		if len(s.statuses) > 0 {
			status, body = s.statuses[0], s.bodies[0]
			s.statuses, s.bodies = s.statuses[1:], s.bodies[1:]
		}
		s.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	})
}

func (s *fakeStore) script(status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, status)
	s.bodies = append(s.bodies, body)
}

func newClient(t *testing.T, store *fakeStore, auth TokenSource) (*CredentialedClient, *TournamentClient) {
	t.Helper()
	srv := httptest.NewServer(store.handler())
	t.Cleanup(srv.Close)
	api := NewCredentialedClient(srv.URL, srv.Client(), auth, "scheduler", "pw", 1000, discard())
	return api, NewTournamentClient(api)
}

// region AuthServiceClient

func TestLogin_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/login", r.URL.Path)
		var body loginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "scheduler", body.Username)
		_, _ = io.WriteString(w, `{"token":"abc"}`)
	}))
	defer srv.Close()

	tok, err := NewAuthServiceClient(srv.URL, srv.Client()).Login(context.Background(), "scheduler", "pw")
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)
}

func TestLogin_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":"bad credentials"}`)
	}))
	defer srv.Close()

	_, err := NewAuthServiceClient(srv.URL, srv.Client()).Login(context.Background(), "scheduler", "nope")
	assert.ErrorIs(t, err, models.ErrAuthenticationFailed)
}

func TestLogin_ServiceDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewAuthServiceClient(srv.URL, srv.Client())
	_, err := client.Login(context.Background(), "scheduler", "pw")
	assert.ErrorIs(t, err, models.ErrDependencyUnavailable)
	assert.ErrorIs(t, client.Health(context.Background()), models.ErrDependencyUnavailable)
}

func TestLogin_EmptyToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	_, err := NewAuthServiceClient(srv.URL, srv.Client()).Login(context.Background(), "scheduler", "pw")
	assert.ErrorIs(t, err, models.ErrAuthenticationFailed)
}

// endregion

// region CredentialedClient

func TestDo_AcquiresOnceAndReuses(t *testing.T) {
	store := &fakeStore{}
	auth := &fakeAuth{}
	api, tc := newClient(t, store, auth)
	assert.False(t, api.HasCredential())

	for i := 0; i < 3; i++ {
		_, err := tc.UpdateStatus(context.Background(), "t1", models.StatusRegistrationClosed)
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1, auth.logins.Load())
	assert.Equal(t, []string{"Bearer token-1", "Bearer token-1", "Bearer token-1"}, store.bearers)
}

func TestDo_UnauthorizedClearsWithoutRetry(t *testing.T) {
	store := &fakeStore{}
	auth := &fakeAuth{}
	api, tc := newClient(t, store, auth)
	store.script(http.StatusUnauthorized, `{"error":"invalid authentication token","code":"UNAUTHORIZED"}`)

	_, err := tc.UpdateStatus(context.Background(), "t1", models.StatusLive)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
	assert.False(t, api.HasCredential())
	assert.Len(t, store.bearers, 1, "the rejected call must not be retried")
	assert.EqualValues(t, 1, auth.logins.Load())

	_, err = tc.UpdateStatus(context.Background(), "t1", models.StatusLive)
	require.NoError(t, err)
	assert.EqualValues(t, 2, auth.logins.Load())
	assert.Equal(t, "Bearer token-2", store.bearers[1])
}

func TestInvalidate_KeepsNewerToken(t *testing.T) {
	api, _ := newClient(t, &fakeStore{}, &fakeAuth{})
	api.token = "fresh"
	api.invalidate("stale")
	assert.True(t, api.HasCredential())
	api.invalidate("fresh")
	assert.False(t, api.HasCredential())
}

func TestDo_ConcurrentCallersShareAcquisition(t *testing.T) {
	store := &fakeStore{}
	auth := &fakeAuth{delay: 100 * time.Millisecond}
	_, tc := newClient(t, store, auth)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := tc.UpdateStatus(context.Background(), "t1", models.StatusLive)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, auth.logins.Load())
	assert.Len(t, store.bearers, 8)
}

func TestDo_AuthenticationFailedPropagates(t *testing.T) {
	store := &fakeStore{}
	auth := &fakeAuth{err: models.ErrAuthenticationFailed}
	api, tc := newClient(t, store, auth)

	_, err := tc.CreateTournament(context.Background(), CreateTournamentRequest{Name: "x"})
	assert.ErrorIs(t, err, models.ErrAuthenticationFailed)
	assert.Empty(t, store.bearers)
	assert.False(t, api.HasCredential())
}

func TestDo_MapsErrorCodes(t *testing.T) {
	store := &fakeStore{}
	_, tc := newClient(t, store, &fakeAuth{})
	store.script(http.StatusConflict, `{"error":"state conflict: tournament is full","code":"TOURNAMENT_FULL"}`)
	store.script(http.StatusInternalServerError, `{"error":"internal server error","code":"INTERNAL"}`)
	store.script(http.StatusBadRequest, `not json`)

	_, err := tc.UpdateStatus(context.Background(), "t1", models.StatusLive)
	assert.ErrorIs(t, err, models.ErrTournamentFull)
	assert.ErrorIs(t, err, models.ErrStateConflict)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)

	_, err = tc.UpdateStatus(context.Background(), "t1", models.StatusLive)
	assert.ErrorIs(t, err, models.ErrDependencyUnavailable)

	_, err = tc.UpdateStatus(context.Background(), "t1", models.StatusLive)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestDo_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	api := NewCredentialedClient(url, &http.Client{Timeout: time.Second}, &fakeAuth{}, "scheduler", "pw", 10, discard())
	err := api.Do(context.Background(), http.MethodGet, "/tournaments", nil, nil, nil)
	assert.ErrorIs(t, err, models.ErrDependencyUnavailable)
	assert.ErrorIs(t, api.Health(context.Background()), models.ErrDependencyUnavailable)
}

// endregion

// region TournamentClient

func TestFindAutomated_Query(t *testing.T) {
	store := &fakeStore{}
	_, tc := newClient(t, store, &fakeAuth{})
	store.script(http.StatusOK, `{"tournaments":[],"total":0,"page":1,"limit":1}`)
	store.script(http.StatusOK, `{"tournaments":[{"id":"t9","game_type":"duo","type":"automated"}],"total":1,"page":1,"limit":1}`)

	start := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	found, err := tc.FindAutomated(context.Background(), models.GameDuo, start)
	require.NoError(t, err)
	assert.Nil(t, found)
	assert.Equal(t, "gameType=duo&limit=1&startTime=2026-03-01T18%3A00%3A00Z&type=automated", store.queries[0])

	found, err = tc.FindAutomated(context.Background(), models.GameDuo, start)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "t9", found.ID)
}

func TestListQuery_Statuses(t *testing.T) {
	q := ListQuery{Statuses: []models.TournamentStatus{models.StatusUpcoming, models.StatusRegistrationOpen}, Page: 2, Limit: 100}
	assert.Equal(t, "limit=100&page=2&status=upcoming%2Cregistration_open", q.values().Encode())
}

// endregion
