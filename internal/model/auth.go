package model

import (
	"strings"
	"time"
)

// ActionAuth is an authentication method required before acting on an envelope.
type ActionAuth string

const (
	ActionAuthAccount           ActionAuth = "ACCOUNT"
	ActionAuthTwoFactor         ActionAuth = "TWO_FACTOR"
	ActionAuthExternalTwoFactor ActionAuth = "EXTERNAL_TWO_FACTOR"
	ActionAuthExplicitNone      ActionAuth = "EXPLICIT_NONE"
)

// AccessAuth is an authentication method required before viewing an envelope.
type AccessAuth string

const (
	AccessAuthAccount   AccessAuth = "ACCOUNT"
	AccessAuthTwoFactor AccessAuth = "TWO_FACTOR"
)

// Identity is the authenticated caller, if any. The zero value is anonymous.
type Identity struct {
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
	Name   string `json:"name,omitempty"`
}

// Authenticated reports whether a user session backs the identity.
func (i Identity) Authenticated() bool {
	return i.UserID != ""
}

// Matches reports whether the identity is authenticated as the given email.
func (i Identity) Matches(email string) bool {
	return i.Authenticated() && email != "" && strings.EqualFold(strings.TrimSpace(i.Email), strings.TrimSpace(email))
}

// AuthEvidence is proof supplied by the caller for an action-auth method,
// for example a two-factor code.
type AuthEvidence struct {
	Type ActionAuth `json:"type"`
	Code string     `json:"code,omitempty"`
}

// TwoFactorToken is an issued one-time code scoped to one recipient of one envelope.
type TwoFactorToken struct {
	ID          int64      `json:"id"`
	EnvelopeID  string     `json:"envelope_id"`
	RecipientID int64      `json:"recipient_id"`
	CodeHash    string     `json:"-"`
	ExpiresAt   time.Time  `json:"expires_at"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
