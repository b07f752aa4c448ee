package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session is a live login. Revoking it forces the holder out on the next request.
type Session struct {
	ID          string      `json:"id"`
	AccountType AccountType `json:"accountType"`
	AccountID   string      `json:"accountId"`
	Role        Role        `json:"role,omitempty"`
	IssuedAt    time.Time   `json:"issuedAt"`
	ExpiresAt   time.Time   `json:"expiresAt"`
}

// Key returns the session identity.
func (s Session) Key() string {
	return s.ID
}

// Principal converts the session holder into an acting principal.
func (s Session) Principal() Principal {
	return Principal{ID: s.AccountID, Role: s.Role, AccountType: s.AccountType}
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	SessionID   string      `json:"sid"`
	AccountID   string      `json:"account_id"`
	AccountType AccountType `json:"account_type"`
	Role        Role        `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Principal converts verified claims into an acting principal.
func (c *JWTClaims) Principal() Principal {
	if c == nil {
		return Principal{}
	}
	return Principal{ID: c.AccountID, Role: c.Role, AccountType: c.AccountType}
}
