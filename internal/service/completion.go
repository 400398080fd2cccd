package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"signapi/internal/apperr"
	"signapi/internal/model"
	"signapi/internal/repository"
	"signapi/internal/signing"
)

// afterCommit collects the collaborator calls that may only run once the
// transaction has committed.
type afterCommit struct {
	envelope      *model.Envelope
	completedRole model.RecipientRole
	finalize      bool
	notify        []model.Recipient
}

func (s *signingService) CompleteDocument(ctx context.Context, in CompleteInput) (*CompleteResult, error) {
	ctx, span := tracer.Start(ctx, "SigningService.CompleteDocument")
	defer span.End()

	var (
		res  *CompleteResult
		post afterCommit
	)
	err := s.store.InTx(ctx, func(ctx context.Context, q repository.Queries) error {
		post = afterCommit{}
		var err error
		res, err = s.complete(ctx, q, in, &post)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.metrics.failure("complete_document", err)
		return nil, err
	}

	s.runAfterCommit(context.WithoutCancel(ctx), post)
	return res, nil
}

func (s *signingService) complete(ctx context.Context, q repository.Queries, in CompleteInput, post *afterCommit) (*CompleteResult, error) {
	now := s.now().UTC()

	recipient, err := q.RecipientByToken(ctx, in.Token)
	if err != nil {
		return nil, notFound(err, "recipient")
	}
	env, err := repository.LoadEnvelope(ctx, q, recipient.EnvelopeID, repository.LockUpdate, repository.LockUpdate)
	if err != nil {
		return nil, notFound(err, "document")
	}

	if env.Type == model.EnvelopeTypeTemplate {
		return s.completeDirectTemplate(ctx, q, env, recipient.ID, in, now, post)
	}
	if err := s.completeRecipient(ctx, q, env, recipient.ID, in, now, false, post); err != nil {
		return nil, err
	}
	return &CompleteResult{
		RedirectTarget:    redirectTarget(env, in.Token),
		EnvelopeID:        env.ID,
		EnvelopeCompleted: post.finalize,
	}, nil
}

func redirectTarget(env *model.Envelope, token string) string {
	if env.DocumentMeta.RedirectURL != "" {
		return env.DocumentMeta.RedirectURL
	}
	return "/sign/" + token + "/complete"
}

// completeRecipient marks recipientID signed on the locked envelope aggregate env and
// completes the envelope when nobody else has to act.
func (s *signingService) completeRecipient(
	ctx context.Context,
	q repository.Queries,
	env *model.Envelope,
	recipientID int64,
	in CompleteInput,
	now time.Time,
	materialized bool,
	post *afterCommit,
) error {
	r := findRecipient(env.Recipients, recipientID)
	if r == nil {
		return apperr.NotFound("recipient not found")
	}
	if env.IsDeleted() {
		return apperr.InvalidRequest("document has been deleted")
	}
	if env.Status != model.EnvelopeStatusPending {
		return apperr.InvalidRequest("document must be pending to complete")
	}
	if r.IsSigned() {
		return apperr.InvalidRequest("recipient has already completed signing")
	}
	if r.IsExpired(now) {
		return apperr.Expired("signing link has expired")
	}
	if !signing.IsRecipientTurn(env, r) {
		return apperr.InvalidRequest("it is not this recipient's turn to sign")
	}

	remaining, err := s.remainingFor(env, r, in.DelegateRecipientID)
	if err != nil {
		return err
	}
	if len(remaining) > 0 {
		return apperr.InvalidRequest(fmt.Sprintf("%d required fields have not been completed", len(remaining)))
	}

	var authMethod model.ActionAuth
	if !in.preAuthorized && !signing.HasSignableSignatureFields(env.Fields, r.ID) {
		outcome, err := s.auth.ResolveFieldAuth(ctx, signing.AuthInput{
			EnvelopeID:  env.ID,
			AuthOptions: env.AuthOptions,
			Recipient:   r,
			Identity:    in.Actor.Identity,
			Evidence:    in.AuthOptions,
		})
		if err != nil {
			return err
		}
		authMethod = outcome.Method
	}

	if err := signing.RecipientTransitions.Check(r.SigningStatus, model.SigningStatusSigned); err != nil {
		return apperr.InvalidRequest(err.Error())
	}
	ok, err := q.MarkRecipientSigned(ctx, r.ID, now)
	if err != nil {
		return fmt.Errorf("mark recipient signed: %w", err)
	}
	if !ok {
		return apperr.InvalidRequest("recipient has already completed signing")
	}
	r.SigningStatus = model.SigningStatusSigned
	r.SignedAt = &now
	post.completedRole = r.Role

	if err := q.AppendAudit(ctx, newAuditFact(model.AuditRecipientCompleted, env.ID, in.Actor, r, now, map[string]any{
		"recipientId":   r.ID,
		"recipientRole": r.Role,
		"authMethod":    authMethod,
	})); err != nil {
		return fmt.Errorf("append audit: %w", err)
	}

	if in.NextSigner != nil {
		if err := s.dictateNextSigner(ctx, q, env, r, in, now); err != nil {
			return err
		}
	}

	post.envelope = env
	if signing.AllRecipientsSigned(env.Recipients) {
		return s.completeEnvelope(ctx, q, env, r, in.Actor, now, post)
	}

	if env.DocumentMeta.IsSequential() {
		if next := nextPending(env, r.ID); next != nil {
			post.notify = append(post.notify, *next)
		}
	} else if materialized {
		for _, other := range env.Recipients {
			if other.ID != r.ID && other.Role.RequiresAction() && !other.IsSigned() {
				post.notify = append(post.notify, other)
			}
		}
	}
	return nil
}

// remainingFor returns the required fields still blocking r. For assistants this
// includes the delegated, non-signature fields of the selected delegate.
func (s *signingService) remainingFor(env *model.Envelope, r *model.Recipient, delegateID *int64) ([]model.Field, error) {
	remaining := signing.RemainingFields(env.Fields, r.ID)
	if r.Role != model.RoleAssistant {
		return remaining, nil
	}
	scope := signing.ResolveAssistantScope(r, env)
	var delegate int64
	switch {
	case delegateID != nil:
		if !scope.CoversRecipient(*delegateID) {
			return nil, apperr.InvalidRequest("selected recipient is not delegated to this assistant")
		}
		delegate = *delegateID
	default:
		next := signing.NextRecipient(env, r.ID)
		if next == nil || !scope.CoversRecipient(next.ID) {
			return remaining, nil
		}
		delegate = next.ID
	}
	return append(remaining, signing.RemainingFields(scope.DelegateFields, delegate)...), nil
}

func nextPending(env *model.Envelope, currentID int64) *model.Recipient {
	next := signing.NextRecipient(env, currentID)
	for next != nil && (next.IsSigned() || !next.Role.RequiresAction()) {
		next = signing.NextRecipient(env, next.ID)
	}
	return next
}

func (s *signingService) dictateNextSigner(ctx context.Context, q repository.Queries, env *model.Envelope, r *model.Recipient, in CompleteInput, now time.Time) error {
	next, err := signing.ResolveDictatedNextSigner(env, r.ID)
	if err != nil {
		return err
	}
	if err := q.UpdateRecipientIdentity(ctx, next.ID, in.NextSigner.Name, in.NextSigner.Email); err != nil {
		return notFound(err, "next recipient")
	}
	if err := q.AppendAudit(ctx, newAuditFact(model.AuditNextSignerDictated, env.ID, in.Actor, r, now, map[string]any{
		"recipientId":   next.ID,
		"previousName":  next.Name,
		"previousEmail": next.Email,
		"name":          in.NextSigner.Name,
		"email":         in.NextSigner.Email,
	})); err != nil {
		return fmt.Errorf("append audit: %w", err)
	}
	if target := findRecipient(env.Recipients, next.ID); target != nil {
		target.Name = in.NextSigner.Name
		target.Email = in.NextSigner.Email
	}
	return nil
}

func (s *signingService) completeEnvelope(ctx context.Context, q repository.Queries, env *model.Envelope, r *model.Recipient, actor Actor, now time.Time, post *afterCommit) error {
	if err := signing.EnvelopeTransitions.Check(env.Status, model.EnvelopeStatusCompleted); err != nil {
		return apperr.InvalidRequest(err.Error())
	}
	ok, err := q.CompleteEnvelope(ctx, env.ID, now)
	if err != nil {
		return fmt.Errorf("complete envelope: %w", err)
	}
	if !ok {
		return nil
	}
	env.Status = model.EnvelopeStatusCompleted
	env.CompletedAt = &now
	if err := q.AppendAudit(ctx, newAuditFact(model.AuditDocumentCompleted, env.ID, actor, r, now, map[string]any{
		"recipientCount": len(env.Recipients),
	})); err != nil {
		return fmt.Errorf("append audit: %w", err)
	}
	post.finalize = true
	return nil
}

// runAfterCommit invokes the finalizer and notifier. Their failures are logged
// and never undo the committed signing state.
func (s *signingService) runAfterCommit(ctx context.Context, post afterCommit) {
	if post.envelope == nil {
		return
	}
	env := post.envelope
	if post.completedRole != "" {
		s.metrics.recipientCompleted(string(post.completedRole))
	}
	if post.finalize {
		s.metrics.envelopeCompleted()
		s.log.Info("envelope completed", zap.String("envelope_id", env.ID))
		if s.finalizer != nil {
			if err := s.finalizer.Finalize(ctx, env.ID); err != nil {
				s.log.Error("finalize envelope failed", zap.String("envelope_id", env.ID), zap.Error(err))
			}
		}
		return
	}
	if s.notifier == nil {
		return
	}
	for i := range post.notify {
		r := &post.notify[i]
		if err := s.notifier.NotifyRecipient(ctx, env, r); err != nil {
			s.log.Error("notify recipient failed",
				zap.String("envelope_id", env.ID),
				zap.Int64("recipient_id", r.ID),
				zap.Error(err),
			)
		}
	}
}
