package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func writeErr(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"success": false, "status": status, "code": code, "message": code})
}

func TestLoginStoresToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/authentication/token":
			writeData(w, http.StatusCreated, map[string]any{
				"token":   "tok",
				"account": map[string]any{"id": 1, "username": "owner", "type": "owner", "role": "owner"},
			})
		case "/v1/authentication/me":
			if r.Header.Get("Authorization") != "Bearer tok" {
				writeErr(w, http.StatusUnauthorized, "unauthenticated")
				return
			}
			writeData(w, http.StatusOK, map[string]any{"id": 1, "username": "owner", "type": "owner"})
		}
	}))
	defer srv.Close()

	c := New(srv.URL)
	s, err := c.Login(context.Background(), "owner", "owner123")
	if err != nil {
		t.Fatal(err)
	}
	if s.Token != "tok" || s.Account.Type != "owner" {
		t.Errorf("unexpected session %+v", s)
	}

	me, err := c.Me(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if me.Username != "owner" {
		t.Errorf("unexpected account %+v", me)
	}

	c.SetToken("")
	if _, err := c.Me(context.Background()); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestRetriesOnceOnTransient(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			writeErr(w, http.StatusServiceUnavailable, "transient")
			return
		}
		writeData(w, http.StatusCreated, map[string]any{"id": 5, "type": "clock_in"})
	}))
	defer srv.Close()

	c := New(srv.URL, WithBackoff(time.Millisecond))
	ev, err := c.Scan(context.Background(), "EMP-X", nil)
	if err != nil {
		t.Fatal(err)
	}
	if ev.ID != 5 || calls.Load() != 2 {
		t.Errorf("expected one retry, got %d calls and %+v", calls.Load(), ev)
	}
}

func TestGivesUpAfterOneRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeErr(w, http.StatusServiceUnavailable, "transient")
	}))
	defer srv.Close()

	c := New(srv.URL, WithBackoff(time.Millisecond))
	if _, err := c.Scan(context.Background(), "EMP-X", nil); !errors.Is(err, ErrTransient) {
		t.Errorf("expected ErrTransient, got %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 calls, got %d", calls.Load())
	}
}

func TestScanErrorsAreDistinguishable(t *testing.T) {
	cases := map[string]struct {
		status int
		code   string
		want   error
	}{
		"unknown":  {http.StatusNotFound, "unknown_code", ErrUnknownCode},
		"inactive": {http.StatusLocked, "inactive_company", ErrInactive},
		"too soon": {http.StatusTooManyRequests, "scan_too_soon", ErrTooSoon},
		"scope":    {http.StatusForbidden, "forbidden", ErrForbidden},
	}
	for name, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeErr(w, tc.status, tc.code)
		}))
		_, err := New(srv.URL).Scan(context.Background(), "EMP-X", nil)
		srv.Close()

		if !errors.Is(err, tc.want) {
			t.Errorf("%s: expected %v, got %v", name, tc.want, err)
		}
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.Status != tc.status {
			t.Errorf("%s: expected APIError with status %d, got %v", name, tc.status, err)
		}
	}
}
