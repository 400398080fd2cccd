package model

import "time"

// Signature is the value of a signature-family field. Exactly one of
// SignatureImageAsBase64 and TypedSignature is set.
type Signature struct {
	ID                     int64     `json:"id"`
	FieldID                int64     `json:"field_id"`
	RecipientID            int64     `json:"recipient_id"`
	SignatureImageAsBase64 string    `json:"signature_image_as_base64,omitempty"`
	TypedSignature         string    `json:"typed_signature,omitempty"`
	CreatedAt              time.Time `json:"created_at"`
}
