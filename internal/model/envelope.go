// Package model contains the domain types of envelopes and their signing state.
// It has no persistence or transport dependencies.
package model

import "time"

// EnvelopeType distinguishes sendable documents from reusable templates.
type EnvelopeType string

const (
	EnvelopeTypeDocument EnvelopeType = "DOCUMENT"
	EnvelopeTypeTemplate EnvelopeType = "TEMPLATE"
)

// EnvelopeStatus is the lifecycle state of an envelope.
type EnvelopeStatus string

const (
	EnvelopeStatusDraft     EnvelopeStatus = "DRAFT"
	EnvelopeStatusPending   EnvelopeStatus = "PENDING"
	EnvelopeStatusCompleted EnvelopeStatus = "COMPLETED"
)

// SigningOrder controls whether recipients act one after another or concurrently.
type SigningOrder string

const (
	SigningOrderParallel   SigningOrder = "PARALLEL"
	SigningOrderSequential SigningOrder = "SEQUENTIAL"
)

// DistributionMethod describes how recipients receive their signing links.
type DistributionMethod string

const (
	DistributionMethodEmail DistributionMethod = "EMAIL"
	DistributionMethodNone  DistributionMethod = "NONE"
)

// DocumentMeta holds per-envelope signing settings.
type DocumentMeta struct {
	SigningOrder           SigningOrder       `json:"signingOrder"`
	AllowDictateNextSigner bool               `json:"allowDictateNextSigner"`
	DistributionMethod     DistributionMethod `json:"distributionMethod"`
	RedirectURL            string             `json:"redirectUrl,omitempty"`
	DateFormat             string             `json:"dateFormat,omitempty"`
	Timezone               string             `json:"timezone,omitempty"`
	TypedSignatureEnabled  bool               `json:"typedSignatureEnabled"`
	UploadSignatureEnabled bool               `json:"uploadSignatureEnabled"`
	DrawSignatureEnabled   bool               `json:"drawSignatureEnabled"`
}

// DefaultDocumentMeta returns the settings applied when an envelope carries no explicit meta.
func DefaultDocumentMeta() DocumentMeta {
	return DocumentMeta{
		SigningOrder:           SigningOrderParallel,
		DistributionMethod:     DistributionMethodEmail,
		DateFormat:             DefaultDateFormat,
		Timezone:               DefaultTimezone,
		TypedSignatureEnabled:  true,
		UploadSignatureEnabled: true,
		DrawSignatureEnabled:   true,
	}
}

const (
	DefaultDateFormat = "yyyy-MM-dd hh:mm a"
	DefaultTimezone   = "Etc/UTC"
)

// IsSequential reports whether recipients must act in signing order.
func (m DocumentMeta) IsSequential() bool {
	return m.SigningOrder == SigningOrderSequential
}

// EnvelopeAuthOptions are the envelope-wide authentication requirements.
type EnvelopeAuthOptions struct {
	GlobalAccessAuth []AccessAuth `json:"globalAccessAuth"`
	GlobalActionAuth []ActionAuth `json:"globalActionAuth"`
}

// EnvelopeItem is one underlying document file within an envelope.
type EnvelopeItem struct {
	ID         string `json:"id"`
	EnvelopeID string `json:"envelope_id"`
	Title      string `json:"title"`
	Order      int    `json:"order"`
}

// Envelope is the unit of signing: documents, recipients and their fields.
// Recipients and Fields are populated only when the caller loads the full aggregate.
type Envelope struct {
	ID                    string              `json:"id"`
	Type                  EnvelopeType        `json:"type"`
	Status                EnvelopeStatus      `json:"status"`
	Title                 string              `json:"title"`
	TemplateID            *string             `json:"template_id,omitempty"`
	DirectLinkRecipientID *int64              `json:"direct_link_recipient_id,omitempty"`
	AuthOptions           EnvelopeAuthOptions `json:"auth_options"`
	DocumentMeta          DocumentMeta        `json:"document_meta"`
	CompletedAt           *time.Time          `json:"completed_at,omitempty"`
	DeletedAt             *time.Time          `json:"deleted_at,omitempty"`
	CreatedAt             time.Time           `json:"created_at"`

	Items      []EnvelopeItem `json:"items,omitempty"`
	Recipients []Recipient    `json:"recipients,omitempty"`
	Fields     []Field        `json:"fields,omitempty"`
}

// IsDeleted reports whether the envelope has been soft-deleted.
func (e *Envelope) IsDeleted() bool {
	return e.DeletedAt != nil
}
