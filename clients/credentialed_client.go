package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"tournament-engine/models"
	"tournament-engine/utils"
)

// TokenSource acquires a bearer token for a principal.
type TokenSource interface {
	Login(ctx context.Context, username, password string) (string, error)
}

// APIError is a non-2xx response from the store. It unwraps to the sentinel
// named by its code, so errors.Is works across the wire.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	sentinel   error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tournament service returned %d %s: %s", e.StatusCode, e.Code, e.Message)
}

func (e *APIError) Unwrap() error { return e.sentinel }

// CredentialedClient calls the Tournament Store with a held bearer token.
// The token is acquired lazily, shared by concurrent callers, and dropped on
// a 401 so the next call logs in again.
type CredentialedClient struct {
	baseURL  string
	http     *http.Client
	limiter  *rate.Limiter
	auth     TokenSource
	username string
	password string
	logger   *slog.Logger

	mu    sync.Mutex
	token string
	login singleflight.Group
}

func NewCredentialedClient(baseURL string, httpClient *http.Client, auth TokenSource, username, password string, requestsPerSecond float64, logger *slog.Logger) *CredentialedClient {
	burst := int(requestsPerSecond)
	if burst < 1 {
		burst = 1
	}
	return &CredentialedClient{
		baseURL:  baseURL,
		http:     httpClient,
		limiter:  rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
		auth:     auth,
		username: username,
		password: password,
		logger:   logger.With("component", "credentialed_client"),
	}
}

// HasCredential reports whether a token is currently held.
func (c *CredentialedClient) HasCredential() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token != ""
}

func (c *CredentialedClient) credential(ctx context.Context) (string, error) {
	c.mu.Lock()
	tok := c.token
	c.mu.Unlock()
	if tok != "" {
		return tok, nil
	}

	// The shared login outlives any one caller's cancellation; the HTTP
	// client timeout still bounds it.
	loginCtx := context.WithoutCancel(ctx)
	v, err, _ := c.login.Do("login", func() (any, error) {
		c.mu.Lock()
		if c.token != "" {
			tok := c.token
			c.mu.Unlock()
			return tok, nil
		}
		c.mu.Unlock()

		tok, err := c.auth.Login(loginCtx, c.username, c.password)
		if err != nil {
			c.logger.Warn("credential acquisition failed", "error", err)
			return "", err
		}
		c.mu.Lock()
		c.token = tok
		c.mu.Unlock()
		c.logger.Info("credential acquired")
		return tok, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// invalidate clears the held token if it is still the one that was used.
func (c *CredentialedClient) invalidate(used string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == used {
		c.token = ""
		c.logger.Warn("credential rejected, cleared for re-acquisition on next call")
	}
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Do sends one authenticated request. A 401 clears the credential and
// returns models.ErrUnauthorized without retrying.
func (c *CredentialedClient) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	token, err := c.credential(ctx)
	if err != nil {
		return err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limiter: %v", models.ErrDependencyUnavailable, err)
	}

	target := utils.JoinURL(c.baseURL, path)
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", models.ErrDependencyUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.invalidate(token)
		return fmt.Errorf("%w: %s %s: %s", models.ErrUnauthorized, method, path, utils.ReadErrorBody(resp))
	}
	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", method, path, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	raw := utils.ReadErrorBody(resp)
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: raw}
	var eb errorBody
	if json.Unmarshal([]byte(raw), &eb) == nil && eb.Code != "" {
		apiErr.Code = eb.Code
		apiErr.Message = eb.Error
		apiErr.sentinel = models.ErrorForCode(eb.Code)
	}
	if apiErr.sentinel == nil {
		switch {
		case resp.StatusCode >= 500:
			apiErr.sentinel = models.ErrDependencyUnavailable
		case resp.StatusCode == http.StatusForbidden:
			apiErr.sentinel = models.ErrForbidden
		case resp.StatusCode == http.StatusNotFound:
			apiErr.sentinel = models.ErrNotFound
		case resp.StatusCode == http.StatusConflict:
			apiErr.sentinel = models.ErrStateConflict
		default:
			apiErr.sentinel = models.ErrValidation
		}
	}
	return apiErr
}

// Health probes the store's unauthenticated /health.
func (c *CredentialedClient) Health(ctx context.Context) error {
	return probe(ctx, c.http, utils.JoinURL(c.baseURL, "/health"))
}
