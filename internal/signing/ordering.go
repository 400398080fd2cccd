package signing

import (
	"cmp"
	"slices"

	"signapi/internal/apperr"
	"signapi/internal/model"
)

// compareRecipients orders by signing order ascending with unset orders last, then by id.
func compareRecipients(a, b model.Recipient) int {
	switch {
	case a.SigningOrder == nil && b.SigningOrder != nil:
		return 1
	case a.SigningOrder != nil && b.SigningOrder == nil:
		return -1
	case a.SigningOrder != nil && b.SigningOrder != nil && *a.SigningOrder != *b.SigningOrder:
		return cmp.Compare(*a.SigningOrder, *b.SigningOrder)
	}
	return cmp.Compare(a.ID, b.ID)
}

// SortRecipients returns a sorted copy of rs in signing order.
func SortRecipients(rs []model.Recipient) []model.Recipient {
	out := slices.Clone(rs)
	slices.SortStableFunc(out, compareRecipients)
	return out
}

// NextRecipient returns the recipient immediately after currentID in signing order.
// It returns nil for parallel envelopes, for the last recipient and for unknown ids.
func NextRecipient(env *model.Envelope, currentID int64) *model.Recipient {
	if !env.DocumentMeta.IsSequential() {
		return nil
	}
	sorted := SortRecipients(env.Recipients)
	i := slices.IndexFunc(sorted, func(r model.Recipient) bool { return r.ID == currentID })
	if i < 0 || i+1 >= len(sorted) {
		return nil
	}
	next := sorted[i+1]
	return &next
}

// IsRecipientTurn reports whether every action-requiring recipient ordered before r
// has signed. Parallel envelopes are always the recipient's turn.
func IsRecipientTurn(env *model.Envelope, r *model.Recipient) bool {
	if !env.DocumentMeta.IsSequential() {
		return true
	}
	for _, other := range SortRecipients(env.Recipients) {
		if other.ID == r.ID {
			return true
		}
		if other.Role.RequiresAction() && !other.IsSigned() {
			return false
		}
	}
	return true
}

// AssistantScope is the set of recipients and fields an assistant may act on.
type AssistantScope struct {
	DelegateRecipients []model.Recipient
	DelegateFields     []model.Field
}

// ResolveAssistantScope computes the delegation scope of assistant within env.
// Delegates are recipients with a strictly greater signing order. Delegate fields
// exclude signature-family fields and fields of recipients who already signed.
// Non-assistants get an empty scope.
func ResolveAssistantScope(assistant *model.Recipient, env *model.Envelope) AssistantScope {
	var scope AssistantScope
	if assistant == nil || assistant.Role != model.RoleAssistant || assistant.SigningOrder == nil {
		return scope
	}
	signed := make(map[int64]bool)
	for _, r := range SortRecipients(env.Recipients) {
		if r.ID == assistant.ID || r.SigningOrder == nil || *r.SigningOrder <= *assistant.SigningOrder {
			continue
		}
		scope.DelegateRecipients = append(scope.DelegateRecipients, r)
		signed[r.ID] = r.IsSigned()
	}
	for _, f := range env.Fields {
		isSigned, ok := signed[f.RecipientID]
		if !ok || isSigned || f.Type.IsSignature() {
			continue
		}
		scope.DelegateFields = append(scope.DelegateFields, f)
	}
	return scope
}

// CoversRecipient reports whether id is a delegate recipient.
func (s AssistantScope) CoversRecipient(id int64) bool {
	return slices.ContainsFunc(s.DelegateRecipients, func(r model.Recipient) bool { return r.ID == id })
}

// CoversField reports whether id is a delegate field.
func (s AssistantScope) CoversField(id int64) bool {
	return slices.ContainsFunc(s.DelegateFields, func(f model.Field) bool { return f.ID == id })
}

// NextSigner is a replacement identity for the next recipient.
type NextSigner struct {
	Name  string `json:"name" validate:"required,max=255"`
	Email string `json:"email" validate:"required,email"`
}

// ResolveDictatedNextSigner returns the recipient the override applies to.
// It fails when the envelope does not allow dictation, is not sequential, or the
// next recipient is missing or already signed.
func ResolveDictatedNextSigner(env *model.Envelope, currentID int64) (*model.Recipient, error) {
	if !env.DocumentMeta.AllowDictateNextSigner || !env.DocumentMeta.IsSequential() {
		return nil, apperr.InvalidRequest("this document does not allow dictating the next signer")
	}
	next := NextRecipient(env, currentID)
	if next == nil {
		return nil, apperr.InvalidRequest("there is no next recipient to update")
	}
	if next.IsSigned() {
		return nil, apperr.InvalidRequest("the next recipient has already signed")
	}
	return next, nil
}
