package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Livingbruce/nextstep-mentorship-sub001/internal/domain/user"
	apperrors "github.com/Livingbruce/nextstep-mentorship-sub001/pkg/errors"
)

const (
	loginPath = "/api/auth/login"
	mePath    = "/api/auth/me"
)

// Client talks to the platform backend's auth endpoints. It classifies
// responses into the three outcomes the session service cares about:
// success, authoritative rejection (401/403), and transient failure
// (everything else, including transport errors).
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a backend API client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// LoginResult is the payload of a successful login.
type LoginResult struct {
	Token string     `json:"token"`
	User  *user.User `json:"user"`
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Secret     string `json:"secret"`
}

type errorResponse struct {
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

// Login exchanges credentials for a bearer token.
// A 4xx response becomes an *errors.AuthError carrying the backend message.
func (c *Client) Login(ctx context.Context, identifier, secret string) (*LoginResult, error) {
	body, err := json.Marshal(loginRequest{Identifier: identifier, Secret: secret})
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to encode login request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+loginPath, bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to build login request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(err, "login request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.loginError(resp)
	}

	var result LoginResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, apperrors.Wrap(err, "failed to decode login response")
	}
	if result.Token == "" || result.User == nil {
		return nil, apperrors.Wrap(apperrors.ErrInternal, "login response missing token or user")
	}

	return &result, nil
}

// Me fetches the current user for the given token.
// 401/403 means the token was revoked or is invalid; that outcome is
// returned as ErrSessionRevoked and is authoritative. Any other failure is
// transient and keeps its transport-level error.
func (c *Client) Me(ctx context.Context, token string) (*user.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+mePath, nil)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to build me request")
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(err, "me request failed")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var u user.User
		if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
			return nil, apperrors.Wrap(err, "failed to decode me response")
		}
		return &u, nil

	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, apperrors.ErrSessionRevoked

	default:
		return nil, fmt.Errorf("me request returned status %d", resp.StatusCode)
	}
}

// loginError decodes a backend rejection into an AuthError. Bodies that do
// not follow the error shape fall back to a generic message.
func (c *Client) loginError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Code != "" {
		return apperrors.NewAuthError(errResp.Code, errResp.Description, resp.StatusCode)
	}

	if resp.StatusCode >= 500 {
		return fmt.Errorf("login returned status %d", resp.StatusCode)
	}
	return apperrors.NewAuthError("login_failed", "login was rejected", resp.StatusCode)
}
