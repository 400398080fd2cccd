package service

import (
	"context"
	"time"

	"signapi/internal/apperr"
	"signapi/internal/model"
	"signapi/internal/repository"
	"signapi/internal/signing"
)

// EnvelopeSummary is the part of an envelope shown to a recipient.
type EnvelopeSummary struct {
	ID           string               `json:"id"`
	Type         model.EnvelopeType   `json:"type"`
	Status       model.EnvelopeStatus `json:"status"`
	Title        string               `json:"title"`
	DocumentMeta model.DocumentMeta   `json:"document_meta"`
	Items        []model.EnvelopeItem `json:"items"`
	CompletedAt  *time.Time           `json:"completed_at,omitempty"`
}

// SigningView is everything a recipient needs to render the signing page.
// AccessAuth is reported for the client; no signing operation enforces it.
type SigningView struct {
	Envelope           EnvelopeSummary    `json:"envelope"`
	Recipient          model.Recipient    `json:"recipient"`
	Fields             []model.Field      `json:"fields"`
	RemainingFields    []model.Field      `json:"remaining_fields"`
	DelegateRecipients []model.Recipient  `json:"delegate_recipients,omitempty"`
	DelegateFields     []model.Field      `json:"delegate_fields,omitempty"`
	AccessAuth         []model.AccessAuth `json:"access_auth"`
	ActionAuth         []model.ActionAuth `json:"action_auth"`
	IsRecipientTurn    bool               `json:"is_recipient_turn"`
	NextRecipient      *model.Recipient   `json:"next_recipient,omitempty"`
}

func (s *signingService) GetSigningView(ctx context.Context, token string, identity model.Identity) (*SigningView, error) {
	ctx, span := tracer.Start(ctx, "SigningService.GetSigningView")
	defer span.End()

	var view *SigningView
	err := s.store.InTx(ctx, func(ctx context.Context, q repository.Queries) error {
		tokenRecipient, err := q.RecipientByToken(ctx, token)
		if err != nil {
			return notFound(err, "recipient")
		}
		env, err := repository.LoadEnvelope(ctx, q, tokenRecipient.EnvelopeID, repository.LockNone, repository.LockNone)
		if err != nil {
			return notFound(err, "document")
		}
		if env.IsDeleted() {
			return apperr.NotFound("document not found")
		}
		r := findRecipient(env.Recipients, tokenRecipient.ID)
		if r == nil {
			return apperr.NotFound("recipient not found")
		}
		if !r.IsSigned() && r.IsExpired(s.now()) {
			return apperr.Expired("signing link has expired")
		}

		scope := signing.ResolveAssistantScope(r, env)
		view = &SigningView{
			Envelope: EnvelopeSummary{
				ID:           env.ID,
				Type:         env.Type,
				Status:       env.Status,
				Title:        env.Title,
				DocumentMeta: env.DocumentMeta,
				Items:        env.Items,
				CompletedAt:  env.CompletedAt,
			},
			Recipient:          *r,
			Fields:             signing.FieldsFor(env.Fields, r.ID),
			RemainingFields:    signing.RemainingFields(env.Fields, r.ID),
			DelegateRecipients: scope.DelegateRecipients,
			DelegateFields:     scope.DelegateFields,
			AccessAuth:         signing.EffectiveAccessAuth(env.AuthOptions, r),
			ActionAuth:         signing.EffectiveActionAuth(env.AuthOptions, r),
			IsRecipientTurn:    signing.IsRecipientTurn(env, r),
			NextRecipient:      signing.NextRecipient(env, r.ID),
		}
		return nil
	})
	if err != nil {
		s.metrics.failure("get_signing_view", err)
		return nil, err
	}
	return view, nil
}
