package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"tournament-engine/models"
	"tournament-engine/utils"
)

// AuthServiceClient talks to the identity service.
type AuthServiceClient struct {
	BaseURL string
	Client  *http.Client
}

func NewAuthServiceClient(baseURL string, client *http.Client) *AuthServiceClient {
	return &AuthServiceClient{BaseURL: baseURL, Client: client}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// Login exchanges the automation principal's password for a bearer token.
// A rejected login is models.ErrAuthenticationFailed; an unreachable or
// failing service is models.ErrDependencyUnavailable.
func (c *AuthServiceClient) Login(ctx context.Context, username, password string) (string, error) {
	payload, err := json.Marshal(loginRequest{Username: username, Password: password})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, utils.JoinURL(c.BaseURL, "/auth/login"), bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: auth service: %v", models.ErrDependencyUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= 500:
		return "", fmt.Errorf("%w: auth service /auth/login returned %d: %s",
			models.ErrDependencyUnavailable, resp.StatusCode, utils.ReadErrorBody(resp))
	default:
		return "", fmt.Errorf("%w: auth service /auth/login returned %d: %s",
			models.ErrAuthenticationFailed, resp.StatusCode, utils.ReadErrorBody(resp))
	}

	var out loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decoding login response: %v", models.ErrAuthenticationFailed, err)
	}
	if out.Token == "" {
		return "", fmt.Errorf("%w: login response carried no token", models.ErrAuthenticationFailed)
	}
	return out.Token, nil
}

// Health probes GET /health.
func (c *AuthServiceClient) Health(ctx context.Context) error {
	return probe(ctx, c.Client, utils.JoinURL(c.BaseURL, "/health"))
}

func probe(ctx context.Context, client *http.Client, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrDependencyUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned %d: %s", models.ErrDependencyUnavailable, url, resp.StatusCode, utils.ReadErrorBody(resp))
	}
	return nil
}
