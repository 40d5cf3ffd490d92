// Package dashboard resolves which view a session lands on and drives the
// session through its lifecycle.
package dashboard

import (
	"qrclock/internal/domain/accounts"
)

type State int

const (
	Loading State = iota
	Unauthenticated
	Owner
	Admin
	User
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Unauthenticated:
		return "unauthenticated"
	case Owner:
		return "owner"
	case Admin:
		return "admin"
	case User:
		return "user"
	}
	return "unknown"
}

func (s State) Authenticated() bool {
	return s == Owner || s == Admin || s == User
}

type View string

const (
	ViewLogin View = "login"
	ViewOwner View = "owner"
	ViewAdmin View = "admin"
	ViewUser  View = "user"
)

// ViewFor picks the view for an account. An owner type wins over whatever
// role is present.
func ViewFor(s accounts.Summary) View {
	if s.Type == accounts.TypeOwner {
		return ViewOwner
	}
	switch s.Role {
	case accounts.RoleOwner:
		return ViewOwner
	case accounts.RoleAdmin:
		return ViewAdmin
	case accounts.RoleUser:
		return ViewUser
	}
	return ViewLogin
}

func stateFor(v View) State {
	switch v {
	case ViewOwner:
		return Owner
	case ViewAdmin:
		return Admin
	case ViewUser:
		return User
	}
	return Unauthenticated
}

func (s State) View() View {
	switch s {
	case Owner:
		return ViewOwner
	case Admin:
		return ViewAdmin
	case User:
		return ViewUser
	}
	return ViewLogin
}

type EventKind int

const (
	// TokenChecked ends Loading with the outcome of verifying the stored token.
	TokenChecked EventKind = iota
	// LoggedIn carries the account of a fresh login.
	LoggedIn
	LoggedOut
	// Expired is a failed re-check of an authenticated session.
	Expired
)

type Event struct {
	Kind    EventKind
	Account *accounts.Summary
	Err     error
}

// Transition is the only place the session state changes. Pairs not listed
// leave the state unchanged.
func Transition(s State, ev Event) State {
	switch ev.Kind {
	case LoggedOut:
		return Unauthenticated
	case Expired:
		if s.Authenticated() {
			return Unauthenticated
		}
	case TokenChecked:
		if s == Loading {
			return resolve(ev)
		}
	case LoggedIn:
		if s == Unauthenticated {
			return resolve(ev)
		}
	}
	return s
}

func resolve(ev Event) State {
	if ev.Err != nil || ev.Account == nil {
		return Unauthenticated
	}
	return stateFor(ViewFor(*ev.Account))
}
