// Package session carries the authenticated caller's identity from the JWT
// middleware into service calls.
package session

import "github.com/bharathmeg/InsightHub/internal/model"

// Session identifies the caller. Company scopes every sale and ledger query.
type Session struct {
	Email   string
	Role    string
	Company string
}

func (s Session) IsAdmin() bool { return s.Role == model.RoleAdmin }
