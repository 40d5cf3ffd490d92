package dashboard

import (
	"context"
	"errors"
	"testing"

	"qrclock/internal/domain/accounts"
	"qrclock/pkg/client"
)

func TestViewForOwnerTypeWins(t *testing.T) {
	tests := []struct {
		name string
		in   accounts.Summary
		want View
	}{
		{"owner type", accounts.Summary{Type: accounts.TypeOwner}, ViewOwner},
		{"owner type with admin role", accounts.Summary{Type: accounts.TypeOwner, Role: accounts.RoleAdmin}, ViewOwner},
		{"owner type with user role", accounts.Summary{Type: accounts.TypeOwner, Role: accounts.RoleUser}, ViewOwner},
		{"admin", accounts.Summary{Type: accounts.TypeUser, Role: accounts.RoleAdmin}, ViewAdmin},
		{"user", accounts.Summary{Type: accounts.TypeUser, Role: accounts.RoleUser}, ViewUser},
		{"no role", accounts.Summary{Type: accounts.TypeUser}, ViewLogin},
	}
	for _, tt := range tests {
		if got := ViewFor(tt.in); got != tt.want {
			t.Errorf("%s: got %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestTransition(t *testing.T) {
	admin := &accounts.Summary{Type: accounts.TypeUser, Role: accounts.RoleAdmin}
	owner := &accounts.Summary{Type: accounts.TypeOwner, Role: accounts.RoleOwner}
	bad := errors.New("expired")

	tests := []struct {
		from State
		ev   Event
		want State
	}{
		{Loading, Event{Kind: TokenChecked, Account: admin}, Admin},
		{Loading, Event{Kind: TokenChecked, Account: owner}, Owner},
		{Loading, Event{Kind: TokenChecked, Err: bad}, Unauthenticated},
		{Loading, Event{Kind: TokenChecked}, Unauthenticated},
		{Unauthenticated, Event{Kind: LoggedIn, Account: admin}, Admin},
		{Unauthenticated, Event{Kind: TokenChecked, Account: admin}, Unauthenticated},
		{Admin, Event{Kind: LoggedOut}, Unauthenticated},
		{Owner, Event{Kind: Expired}, Unauthenticated},
		{Unauthenticated, Event{Kind: Expired}, Unauthenticated},
		{Admin, Event{Kind: LoggedIn, Account: owner}, Admin},
		{User, Event{Kind: TokenChecked, Account: owner}, User},
	}
	for _, tt := range tests {
		if got := Transition(tt.from, tt.ev); got != tt.want {
			t.Errorf("%s + %d: got %s, want %s", tt.from, tt.ev.Kind, got, tt.want)
		}
	}
}

type fakeAPI struct {
	token   string
	valid   map[string]*accounts.Summary
	meErr   error
	logins  map[string]string
	issued  string
	account accounts.Summary
}

func (f *fakeAPI) SetToken(token string) { f.token = token }

func (f *fakeAPI) Login(_ context.Context, username, password string) (*client.Session, error) {
	if f.logins[username] != password {
		return nil, &client.APIError{Status: 401, Code: "unauthenticated"}
	}
	return &client.Session{Token: f.issued, Account: f.account}, nil
}

func (f *fakeAPI) Me(context.Context) (*accounts.Summary, error) {
	if f.meErr != nil {
		return nil, f.meErr
	}
	s, ok := f.valid[f.token]
	if !ok {
		return nil, &client.APIError{Status: 401, Code: "unauthenticated"}
	}
	return s, nil
}

func TestControllerStartWithoutToken(t *testing.T) {
	c := NewController(&fakeAPI{}, &MemoryTokenStorage{})
	st, err := c.Start(context.Background())
	if err != nil || st != Unauthenticated {
		t.Errorf("got %s, %v", st, err)
	}
}

func TestControllerStartWithValidToken(t *testing.T) {
	api := &fakeAPI{valid: map[string]*accounts.Summary{"good": {Type: accounts.TypeUser, Role: accounts.RoleUser}}}
	tokens := &MemoryTokenStorage{}
	tokens.Save("good")

	c := NewController(api, tokens)
	st, err := c.Start(context.Background())
	if err != nil || st != User {
		t.Fatalf("got %s, %v", st, err)
	}
	if c.Account() == nil || c.State().View() != ViewUser {
		t.Errorf("account not kept: %+v", c.Account())
	}

	if st := c.Logout(); st != Unauthenticated {
		t.Errorf("logout: got %s", st)
	}
	if _, ok := tokens.Load(); ok {
		t.Error("logout must discard the stored token")
	}
	if api.token != "" {
		t.Error("logout must drop the client token")
	}
}

func TestControllerDiscardsRejectedToken(t *testing.T) {
	tokens := &MemoryTokenStorage{}
	tokens.Save("stale")

	c := NewController(&fakeAPI{}, tokens)
	st, err := c.Start(context.Background())
	if err != nil || st != Unauthenticated {
		t.Fatalf("got %s, %v", st, err)
	}
	if _, ok := tokens.Load(); ok {
		t.Error("rejected token must be discarded")
	}
}

func TestControllerStaysLoadingOnTransient(t *testing.T) {
	tokens := &MemoryTokenStorage{}
	tokens.Save("good")
	api := &fakeAPI{meErr: &client.APIError{Status: 503, Code: "transient"}}

	c := NewController(api, tokens)
	st, err := c.Start(context.Background())
	if !errors.Is(err, client.ErrTransient) || st != Loading {
		t.Errorf("got %s, %v", st, err)
	}
	if _, ok := tokens.Load(); !ok {
		t.Error("token must survive a transient failure")
	}
}

func TestControllerLoginAndExpiry(t *testing.T) {
	owner := accounts.Summary{Type: accounts.TypeOwner, Role: accounts.RoleOwner}
	api := &fakeAPI{
		logins:  map[string]string{"owner": "owner123"},
		issued:  "fresh",
		account: owner,
		valid:   map[string]*accounts.Summary{"fresh": &owner},
	}
	tokens := &MemoryTokenStorage{}
	c := NewController(api, tokens)
	ctx := context.Background()

	if _, err := c.Login(ctx, "owner", "nope"); !errors.Is(err, client.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if c.State() != Unauthenticated {
		t.Errorf("failed login: got %s", c.State())
	}

	st, err := c.Login(ctx, "owner", "owner123")
	if err != nil || st != Owner {
		t.Fatalf("login: got %s, %v", st, err)
	}
	if tok, _ := tokens.Load(); tok != "fresh" {
		t.Errorf("token not stored: %q", tok)
	}

	if st, err := c.Recheck(ctx); err != nil || st != Owner {
		t.Errorf("recheck: got %s, %v", st, err)
	}

	delete(api.valid, "fresh")
	if st, err := c.Recheck(ctx); err != nil || st != Unauthenticated {
		t.Errorf("expired recheck: got %s, %v", st, err)
	}
}
