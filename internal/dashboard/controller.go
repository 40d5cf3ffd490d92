package dashboard

import (
	"context"
	"errors"
	"sync"

	"qrclock/internal/domain/accounts"
	"qrclock/pkg/client"
)

var ErrNoToken = errors.New("no stored token")

// API is the part of the HTTP client the controller needs.
type API interface {
	SetToken(token string)
	Login(ctx context.Context, username, password string) (*client.Session, error)
	Me(ctx context.Context) (*accounts.Summary, error)
}

type Controller struct {
	mu      sync.Mutex
	state   State
	account *accounts.Summary
	api     API
	tokens  TokenStorage
}

func NewController(api API, tokens TokenStorage) *Controller {
	return &Controller{state: Loading, api: api, tokens: tokens}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Account() *accounts.Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.account
}

func (c *Controller) apply(ev Event) State {
	c.state = Transition(c.state, ev)
	if c.state.Authenticated() {
		c.account = ev.Account
	} else {
		c.account = nil
		c.tokens.Clear()
		c.api.SetToken("")
	}
	return c.state
}

// Start verifies the stored token. Errors other than a rejected token leave
// the session in Loading so the caller can retry.
func (c *Controller) Start(ctx context.Context) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	token, ok := c.tokens.Load()
	if !ok {
		return c.apply(Event{Kind: TokenChecked, Err: ErrNoToken}), nil
	}

	c.api.SetToken(token)
	me, err := c.api.Me(ctx)
	if err != nil && !errors.Is(err, client.ErrUnauthorized) {
		return c.state, err
	}
	return c.apply(Event{Kind: TokenChecked, Account: me, Err: err}), nil
}

func (c *Controller) Login(ctx context.Context, username, password string) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Unauthenticated {
		c.apply(Event{Kind: LoggedOut})
	}
	sess, err := c.api.Login(ctx, username, password)
	if err != nil {
		return c.state, err
	}
	c.tokens.Save(sess.Token)
	c.api.SetToken(sess.Token)
	return c.apply(Event{Kind: LoggedIn, Account: &sess.Account}), nil
}

// Recheck asks the server again and logs out on rejection.
func (c *Controller) Recheck(ctx context.Context) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.Authenticated() {
		return c.state, nil
	}
	if _, err := c.api.Me(ctx); err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			return c.apply(Event{Kind: Expired, Err: err}), nil
		}
		return c.state, err
	}
	return c.state, nil
}

func (c *Controller) Logout() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.apply(Event{Kind: LoggedOut})
}
