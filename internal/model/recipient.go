package model

import "time"

// RecipientRole is the part a recipient plays in the signing flow.
type RecipientRole string

const (
	RoleSigner    RecipientRole = "SIGNER"
	RoleApprover  RecipientRole = "APPROVER"
	RoleViewer    RecipientRole = "VIEWER"
	RoleCC        RecipientRole = "CC"
	RoleAssistant RecipientRole = "ASSISTANT"
)

// RequiresAction reports whether the role must complete before the envelope can complete.
// CC recipients only receive copies.
func (r RecipientRole) RequiresAction() bool {
	return r != RoleCC
}

// SigningStatus is the per-recipient completion state.
type SigningStatus string

const (
	SigningStatusNotSigned SigningStatus = "NOT_SIGNED"
	SigningStatusSigned    SigningStatus = "SIGNED"
)

// RecipientAuthOptions override the envelope auth requirements for one recipient.
type RecipientAuthOptions struct {
	AccessAuth []AccessAuth `json:"accessAuth"`
	ActionAuth []ActionAuth `json:"actionAuth"`
}

// Recipient is a party attached to an envelope. Token is a bearer credential and
// must never be serialized back to other recipients.
type Recipient struct {
	ID            int64                `json:"id"`
	EnvelopeID    string               `json:"envelope_id"`
	Token         string               `json:"-"`
	Email         string               `json:"email"`
	Name          string               `json:"name"`
	Role          RecipientRole        `json:"role"`
	SigningOrder  *int                 `json:"signing_order,omitempty"`
	SigningStatus SigningStatus        `json:"signing_status"`
	SignedAt      *time.Time           `json:"signed_at,omitempty"`
	AuthOptions   RecipientAuthOptions `json:"auth_options"`
	ExpiresAt     *time.Time           `json:"expires_at,omitempty"`
}

// IsSigned reports whether the recipient has completed.
func (r *Recipient) IsSigned() bool {
	return r.SigningStatus == SigningStatusSigned
}

// IsExpired reports whether the recipient's deadline is not in the future at now.
func (r *Recipient) IsExpired(now time.Time) bool {
	return r.ExpiresAt != nil && !now.Before(*r.ExpiresAt)
}
