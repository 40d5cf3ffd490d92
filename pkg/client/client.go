// Package client is a Go client for the qrclock HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"qrclock/internal/domain/accounts"
	"qrclock/internal/domain/attendance"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrUnknownCode  = errors.New("unknown code")
	ErrInactive     = errors.New("company inactive")
	ErrTooSoon      = errors.New("scan too soon")
	ErrTransient    = errors.New("service temporarily unavailable")
)

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: http=%d code=%s: %s", e.Status, e.Code, e.Message)
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrForbidden:
		return e.Status == http.StatusForbidden
	case ErrUnknownCode:
		return e.Code == "unknown_code"
	case ErrInactive:
		return e.Status == http.StatusLocked
	case ErrTooSoon:
		return e.Code == "scan_too_soon"
	case ErrTransient:
		return e.Status == http.StatusServiceUnavailable
	}
	return false
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	backoff    time.Duration

	mu    sync.RWMutex
	token string
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithBackoff sets the pause before the single retry of a 503.
func WithBackoff(d time.Duration) Option {
	return func(c *Client) { c.backoff = d }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		backoff:    500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// do sends one request and retries it once when the server answers 503.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return err
		}
	}

	err := c.send(ctx, method, path, body, out)
	if !errors.Is(err, ErrTransient) {
		return err
	}

	t := time.NewTimer(c.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
	}
	return c.send(ctx, method, path, body, out)
}

func (c *Client) send(ctx context.Context, method, path string, body []byte, out any) error {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 300 {
		var env struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		_ = json.Unmarshal(raw, &env)
		return &APIError{Status: resp.StatusCode, Code: env.Code, Message: env.Message}
	}
	if out == nil {
		return nil
	}

	env := struct {
		Data any `json:"data"`
	}{Data: out}
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

type Session struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	Account   accounts.Summary `json:"account"`
}

// Login exchanges credentials for a token and keeps it for later calls.
func (c *Client) Login(ctx context.Context, username, password string) (*Session, error) {
	in := map[string]string{"username": username, "password": password}
	var s Session
	if err := c.do(ctx, http.MethodPost, "/v1/authentication/token", in, &s); err != nil {
		return nil, err
	}
	c.SetToken(s.Token)
	return &s, nil
}

func (c *Client) Me(ctx context.Context) (*accounts.Summary, error) {
	var s accounts.Summary
	if err := c.do(ctx, http.MethodGet, "/v1/authentication/me", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) Dashboard(ctx context.Context) (string, error) {
	var out struct {
		View string `json:"view"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/dashboard", nil, &out); err != nil {
		return "", err
	}
	return out.View, nil
}

// Scan records a badge read. The server clock decides the event time;
// clientTime is kept for audit only.
func (c *Client) Scan(ctx context.Context, code string, clientTime *time.Time) (*attendance.Event, error) {
	in := struct {
		Code            string     `json:"code"`
		ClientTimestamp *time.Time `json:"client_timestamp,omitempty"`
	}{Code: code, ClientTimestamp: clientTime}

	var ev attendance.Event
	if err := c.do(ctx, http.MethodPost, "/v1/attendance/scan", in, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

func (c *Client) Events(ctx context.Context, employeeID int64, page int) ([]attendance.Event, error) {
	q := url.Values{}
	if employeeID > 0 {
		q.Set("employee_id", fmt.Sprint(employeeID))
	}
	if page > 0 {
		q.Set("page", fmt.Sprint(page))
	}
	var out struct {
		Events []attendance.Event `json:"events"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/attendance/events?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out.Events, nil
}
