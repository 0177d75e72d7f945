package agentapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"cymbal-assist/internal/auth"
)

// Identity supplies the bearer token and user id for authenticated calls.
// auth.Wrapper implements it.
type Identity interface {
	Token(ctx context.Context) (string, error)
	UserID() string
}

// Client handles communication with the remote agent service
type Client struct {
	baseURL    string
	httpClient *http.Client
	identity   Identity
	logger     logrus.FieldLogger
	now        func() time.Time
}

// NewClient creates a new agent service client
func NewClient(baseURL string, timeout time.Duration, identity Identity, logger logrus.FieldLogger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		identity: identity,
		logger:   logger,
		now:      time.Now,
	}
}

// UserID returns the signed-in user's id, or "" when signed out.
func (c *Client) UserID() string {
	return c.identity.UserID()
}

// authorize fetches the bearer token and user id. It never touches the network
// of the agent service, so an unauthenticated call stops here. A token source
// that fails for any reason other than a missing sign-in is a communication error.
func (c *Client) authorize(ctx context.Context) (token string, userID string, err error) {
	token, err = c.identity.Token(ctx)
	if errors.Is(err, auth.ErrNotSignedIn) {
		return "", "", fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	if err != nil {
		return "", "", fmt.Errorf("%w: failed to get a token: %w", ErrCommunication, err)
	}
	if token == "" {
		return "", "", ErrUnauthenticated
	}
	return token, c.identity.UserID(), nil
}

// newRequest builds an authenticated request against the service.
func (c *Client) newRequest(ctx context.Context, method, path, token string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// newJSONRequest marshals payload and builds an authenticated POST.
func (c *Client) newJSONRequest(ctx context.Context, path, token string, payload any) (*http.Request, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, token, bytes.NewReader(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// do executes req and decodes a 2xx JSON body into out (which may be nil).
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCommunication, err)
	}
	defer resp.Body.Close()

	// Check status code
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		c.logger.WithFields(logrus.Fields{
			"method": req.Method,
			"path":   req.URL.Path,
			"status": resp.StatusCode,
			"body":   string(body),
		}).Error("agent service returned an error status")

		return &RequestError{
			StatusCode: resp.StatusCode,
			Path:       req.URL.Path,
			Body:       string(body),
		}
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to parse response: %w", ErrCommunication, err)
	}
	return nil
}

// decodeList accepts either a bare JSON array or an object wrapping the
// array under key.
func decodeList[T any](raw json.RawMessage, key string) ([]T, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	var items []T
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("%w: failed to parse list: %w", ErrCommunication, err)
		}
		return items, nil
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, fmt.Errorf("%w: failed to parse list: %w", ErrCommunication, err)
	}
	inner, ok := wrapped[key]
	if !ok {
		return nil, nil
	}
	if err := json.Unmarshal(inner, &items); err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %w", ErrCommunication, key, err)
	}
	return items, nil
}

// Health verifies that the agent service is reachable
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodGet, "/health", "", nil)
	if err != nil {
		return HealthStatus{}, err
	}

	var status HealthStatus
	if err := c.do(req, &status); err != nil {
		return HealthStatus{}, fmt.Errorf("agent service at %s is not healthy: %w", c.baseURL, err)
	}
	return status, nil
}
