package signing

import "signapi/internal/model"

// RemainingFields returns required, not yet inserted fields owned by recipientID.
func RemainingFields(fields []model.Field, recipientID int64) []model.Field {
	var out []model.Field
	for _, f := range fields {
		if f.RecipientID == recipientID && f.IsRequired() && !f.Inserted {
			out = append(out, f)
		}
	}
	return out
}

// HasSignableSignatureFields reports whether recipientID owns a signature-family
// field it can insert itself. Read-only fields are prefilled and never pass
// through the insertion auth check.
func HasSignableSignatureFields(fields []model.Field, recipientID int64) bool {
	for _, f := range fields {
		if f.RecipientID == recipientID && f.Type.IsSignature() && !f.Meta.ReadOnly {
			return true
		}
	}
	return false
}

// FieldsFor returns every field owned by recipientID.
func FieldsFor(fields []model.Field, recipientID int64) []model.Field {
	var out []model.Field
	for _, f := range fields {
		if f.RecipientID == recipientID {
			out = append(out, f)
		}
	}
	return out
}

// AllRecipientsSigned reports whether every recipient required to act has signed.
// CC recipients are exempt.
func AllRecipientsSigned(rs []model.Recipient) bool {
	for _, r := range rs {
		if r.Role.RequiresAction() && !r.IsSigned() {
			return false
		}
	}
	return true
}
