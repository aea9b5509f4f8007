package loginsession

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hal9ai/h9login/internal/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultBaseURL is the production login API.
	DefaultBaseURL = "https://api.hal9.com"

	defaultRetryDelay = 1000 * time.Millisecond
)

// Identity is the resolved identity for a completed login. Immutable once
// constructed and never persisted.
type Identity struct {
	User  string `json:"user"`
	Photo string `json:"photo"`
}

// Client talks to the two login endpoints: POST /api/login to mint a token
// and GET /api/login?token= to long-poll for completion.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retryDelay time.Duration
	log        zerolog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL points the client at a non-production login API.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithRetryDelay overrides the 1s wait between poll retries (for tests).
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// WithClientLogger sets the logger used for retry diagnostics.
func WithClientLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.log = logger
	}
}

func NewClient(options ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: http.DefaultClient,
		retryDelay: defaultRetryDelay,
		log:        log.Logger,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// LoginPageURL returns the external login page for a token. The host opens
// it in a new browsing context.
func (c *Client) LoginPageURL(token string) string {
	return c.baseURL + "/login?token=" + url.QueryEscape(token)
}

// RequestToken asks the login API for a fresh one-time token.
func (c *Client) RequestToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/login", http.NoBody)
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request login token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned %s", resp.Status)
	}

	var payload struct {
		Token *string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", errors.Wrapf(ProtocolErr, "decode token response (%v)", err)
	}
	if payload.Token == nil || *payload.Token == "" {
		return "", errors.Wrapf(ProtocolErr, "token response missing token field")
	}
	return *payload.Token, nil
}

// SubscribeLoginInfo long-polls GET /api/login?token= until the login
// completes. A 502 means the upstream held the poll open too long and is
// retried immediately; any other non-200 status is logged and retried after
// the retry delay; a 200 with done:false is retried after the delay. The
// loop only returns on a resolved identity, a ProtocolErr, or context
// cancellation.
func (c *Client) SubscribeLoginInfo(ctx context.Context, token string) (Identity, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Identity{}, err
		}

		status, statusText, body, err := c.pollOnce(ctx, token)
		if err != nil {
			if ctx.Err() != nil {
				return Identity{}, ctx.Err()
			}
			c.log.Warn().Err(err).Msg("login poll request failed")
			if err := c.waitRetry(ctx); err != nil {
				return Identity{}, err
			}
			continue
		}

		if status == http.StatusBadGateway {
			// Expected under long-polling: the upstream timed the held
			// request out. Re-issue without delay.
			continue
		}
		if status != http.StatusOK {
			c.log.Warn().Int("status", status).Str("status_text", statusText).Msg("unexpected login poll status")
			if err := c.waitRetry(ctx); err != nil {
				return Identity{}, err
			}
			continue
		}

		var payload struct {
			Done  *bool   `json:"done"`
			User  *string `json:"user"`
			Photo *string `json:"photo"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return Identity{}, errors.Wrapf(ProtocolErr, "decode login info (%v)", err)
		}

		if payload.Done != nil && !*payload.Done {
			if err := c.waitRetry(ctx); err != nil {
				return Identity{}, err
			}
			continue
		}

		if payload.User == nil || payload.Photo == nil {
			return Identity{}, errors.Wrapf(ProtocolErr, "login info missing user or photo")
		}
		return Identity{User: *payload.User, Photo: *payload.Photo}, nil
	}
}

func (c *Client) pollOnce(ctx context.Context, token string) (status int, statusText string, body []byte, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/login", http.NoBody)
	if err != nil {
		return 0, "", nil, fmt.Errorf("create poll request: %w", err)
	}
	q := req.URL.Query()
	q.Set("token", token)
	req.URL.RawQuery = q.Encode()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, "", nil, fmt.Errorf("poll login info: %w", err)
	}
	defer resp.Body.Close()

	var payload []byte
	if resp.StatusCode == http.StatusOK {
		payload, err = io.ReadAll(resp.Body)
		if err != nil {
			return 0, "", nil, fmt.Errorf("read poll response: %w", err)
		}
	}
	return resp.StatusCode, resp.Status, payload, nil
}

// waitRetry sleeps for the retry delay, aborting early on cancellation so
// a torn-down session never leaks its timer.
func (c *Client) waitRetry(ctx context.Context) error {
	timer := time.NewTimer(c.retryDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
