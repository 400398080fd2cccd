package model

import "time"

// AuditKind names a structured fact written to the audit trail.
type AuditKind string

const (
	AuditFieldInserted              AuditKind = "FIELD_INSERTED"
	AuditFieldUninserted            AuditKind = "FIELD_UNINSERTED"
	AuditFieldPrefilled             AuditKind = "FIELD_PREFILLED"
	AuditRecipientCompleted         AuditKind = "RECIPIENT_COMPLETED"
	AuditNextSignerDictated         AuditKind = "NEXT_SIGNER_DICTATED"
	AuditDocumentCompleted          AuditKind = "DOCUMENT_COMPLETED"
	AuditDocumentFromDirectTemplate AuditKind = "DOCUMENT_CREATED_FROM_DIRECT_TEMPLATE"
	AuditTwoFactorTokenIssued       AuditKind = "TWO_FACTOR_TOKEN_ISSUED"
)

// AuditFact is an append-only audit record describing a state mutation.
type AuditFact struct {
	ID         string         `json:"id"`
	EnvelopeID string         `json:"envelope_id"`
	Kind       AuditKind      `json:"kind"`
	UserID     string         `json:"user_id,omitempty"`
	Email      string         `json:"email,omitempty"`
	Name       string         `json:"name,omitempty"`
	IPAddress  string         `json:"ip_address,omitempty"`
	UserAgent  string         `json:"user_agent,omitempty"`
	Data       map[string]any `json:"data"`
	CreatedAt  time.Time      `json:"created_at"`
}
