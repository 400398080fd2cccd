package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"signapi/internal/apperr"
	"signapi/internal/model"
	"signapi/internal/repository"
	"signapi/internal/signing"
)

var tracer = otel.Tracer("signapi/internal/service")

// SignFieldInput is one field insertion or un-insertion request.
type SignFieldInput struct {
	Token       string
	FieldID     int64
	Value       signing.FieldValue
	AuthOptions *model.AuthEvidence
	Actor       Actor
}

// DirectRecipientInfo identifies the anonymous party of a direct template link and
// carries the values they filled in, keyed by template field id.
type DirectRecipientInfo struct {
	Name        string
	Email       string
	FieldValues map[int64]signing.FieldValue
}

// CompleteInput is a recipient's request to finish signing.
type CompleteInput struct {
	Token       string
	NextSigner  *signing.NextSigner
	AuthOptions *model.AuthEvidence
	// DelegateRecipientID selects whose fields an assistant has been filling.
	// Defaults to the next recipient in signing order.
	DelegateRecipientID *int64
	DirectRecipient     *DirectRecipientInfo
	Actor               Actor

	preAuthorized bool
}

// CompleteResult tells the client where to go next.
type CompleteResult struct {
	RedirectTarget    string `json:"redirectTarget"`
	EnvelopeID        string `json:"envelopeId"`
	EnvelopeCompleted bool   `json:"envelopeCompleted"`
}

// SigningService defines the signing use cases available to a recipient token.
type SigningService interface {
	// SignField inserts or un-inserts one field as a single atomic unit and returns the stored field.
	SignField(ctx context.Context, in SignFieldInput) (*model.Field, error)

	// CompleteDocument marks the recipient signed and completes the envelope when
	// every required recipient has signed.
	CompleteDocument(ctx context.Context, in CompleteInput) (*CompleteResult, error)

	// GetSigningView returns what the recipient behind token may see and do.
	GetSigningView(ctx context.Context, token string, identity model.Identity) (*SigningView, error)
}

type signingService struct {
	store     repository.Store
	auth      *signing.AuthPolicy
	templates TemplateMaterializer
	finalizer Finalizer
	notifier  Notifier
	log       *zap.Logger
	now       func() time.Time
	metrics   *Metrics
}

// NewSigningService constructs a new SigningService. finalizer and notifier may be nil.
func NewSigningService(
	store repository.Store,
	auth *signing.AuthPolicy,
	templates TemplateMaterializer,
	finalizer Finalizer,
	notifier Notifier,
	log *zap.Logger,
	opts ...Option,
) SigningService {
	o := buildOptions(opts)
	if log == nil {
		log = zap.NewNop()
	}
	return &signingService{
		store:     store,
		auth:      auth,
		templates: templates,
		finalizer: finalizer,
		notifier:  notifier,
		log:       log,
		now:       o.now,
		metrics:   o.metrics,
	}
}

func notFound(err error, what string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(what + " not found")
	}
	return err
}

func findRecipient(rs []model.Recipient, id int64) *model.Recipient {
	for i := range rs {
		if rs[i].ID == id {
			return &rs[i]
		}
	}
	return nil
}

func (s *signingService) SignField(ctx context.Context, in SignFieldInput) (*model.Field, error) {
	ctx, span := tracer.Start(ctx, "SigningService.SignField")
	defer span.End()
	span.SetAttributes(attribute.Int64("field.id", in.FieldID))

	var out *model.Field
	err := s.store.InTx(ctx, func(ctx context.Context, q repository.Queries) error {
		f, err := s.signField(ctx, q, in)
		out = f
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.metrics.failure("sign_field", err)
		return nil, err
	}
	action := "uninsert"
	if out.Inserted {
		action = "insert"
	}
	s.metrics.fieldTransition(string(out.Type), action)
	return out, nil
}

func (s *signingService) signField(ctx context.Context, q repository.Queries, in SignFieldInput) (*model.Field, error) {
	now := s.now().UTC()

	tokenRecipient, err := q.RecipientByToken(ctx, in.Token)
	if err != nil {
		return nil, notFound(err, "recipient")
	}
	env, err := repository.LoadEnvelope(ctx, q, tokenRecipient.EnvelopeID, repository.LockShare, repository.LockShare)
	if err != nil {
		return nil, notFound(err, "document")
	}
	recipient := findRecipient(env.Recipients, tokenRecipient.ID)
	if recipient == nil {
		return nil, apperr.NotFound("recipient not found")
	}

	field, err := q.GetField(ctx, env.ID, in.FieldID, repository.LockUpdate)
	if err != nil {
		return nil, notFound(err, "field")
	}
	isOwner := field.RecipientID == recipient.ID
	onBehalf := false
	if !isOwner && recipient.Role == model.RoleAssistant {
		onBehalf = signing.ResolveAssistantScope(recipient, env).CoversRecipient(field.RecipientID)
	}
	if !isOwner && !onBehalf {
		return nil, apperr.NotFound("field not found")
	}
	owner := findRecipient(env.Recipients, field.RecipientID)
	if owner == nil {
		return nil, apperr.NotFound("field not found")
	}

	if field.Type.IsSignature() && !isOwner {
		return nil, apperr.InvalidRequest("only the owning recipient may sign a signature field")
	}
	if in.Value == nil || in.Value.FieldType() != field.Type {
		return nil, apperr.TypeMismatch(fmt.Sprintf("value does not match %s field", field.Type))
	}
	if env.IsDeleted() {
		return nil, apperr.InvalidRequest("document has been deleted")
	}
	if env.Status != model.EnvelopeStatusPending {
		return nil, apperr.InvalidRequest("document must be pending for signing")
	}
	if recipient.IsSigned() || owner.IsSigned() {
		return nil, apperr.InvalidRequest("recipient has already signed")
	}
	if recipient.IsExpired(now) {
		return nil, apperr.Expired("signing link has expired")
	}

	value, err := signing.ExtractInsertionValue(in.Value, field, env.DocumentMeta, now)
	if err != nil {
		return nil, err
	}
	from, to := signing.StateOf(field), signing.FieldUnsigned
	if value.Inserted {
		to = signing.FieldSigned
	}
	if err := signing.FieldTransitions.Check(from, to); err != nil {
		if from == signing.FieldLocked {
			return nil, apperr.InvalidRequest("field is read-only")
		}
		return nil, apperr.InvalidRequest(err.Error())
	}
	if !value.Inserted && !field.Inserted && field.Signature == nil {
		// nothing to clear
		return field, nil
	}

	if !value.Inserted {
		if err := s.uninsert(ctx, q, env, recipient, field, in.Actor, now); err != nil {
			return nil, err
		}
	} else if err := s.insert(ctx, q, env, recipient, owner, field, value, onBehalf, in, now); err != nil {
		return nil, err
	}

	stored, err := q.GetField(ctx, env.ID, field.ID, repository.LockNone)
	if err != nil {
		return nil, fmt.Errorf("reload field: %w", err)
	}
	return stored, nil
}

func (s *signingService) uninsert(ctx context.Context, q repository.Queries, env *model.Envelope, actor *model.Recipient, field *model.Field, a Actor, now time.Time) error {
	if err := q.UpdateFieldValue(ctx, field.ID, false, ""); err != nil {
		return fmt.Errorf("clear field: %w", err)
	}
	if field.Type.IsSignature() || field.Signature != nil {
		if err := q.DeleteSignature(ctx, field.ID); err != nil {
			return fmt.Errorf("delete signature: %w", err)
		}
	}
	if actor.Role != model.RoleAssistant {
		fact := newAuditFact(model.AuditFieldUninserted, env.ID, a, actor, now, map[string]any{
			"fieldId":     field.ID,
			"fieldType":   field.Type,
			"recipientId": field.RecipientID,
		})
		if err := q.AppendAudit(ctx, fact); err != nil {
			return fmt.Errorf("append audit: %w", err)
		}
	}
	return nil
}

func (s *signingService) insert(
	ctx context.Context,
	q repository.Queries,
	env *model.Envelope,
	actor, owner *model.Recipient,
	field *model.Field,
	value signing.InsertionValue,
	onBehalf bool,
	in SignFieldInput,
	now time.Time,
) error {
	outcome, err := s.auth.ResolveFieldAuth(ctx, signing.AuthInput{
		EnvelopeID:  env.ID,
		AuthOptions: env.AuthOptions,
		Recipient:   actor,
		Field:       field,
		Identity:    in.Actor.Identity,
		Evidence:    in.AuthOptions,
	})
	if err != nil {
		return err
	}

	if err := q.UpdateFieldValue(ctx, field.ID, true, value.CustomText); err != nil {
		return fmt.Errorf("update field: %w", err)
	}
	data := map[string]any{
		"fieldId":           field.ID,
		"fieldType":         field.Type,
		"recipientId":       owner.ID,
		"recipientEmail":    owner.Email,
		"recipientName":     owner.Name,
		"recipientRole":     owner.Role,
		"actingRecipientId": actor.ID,
		"actingUserId":      in.Actor.Identity.UserID,
		"actingUserEmail":   in.Actor.Identity.Email,
		"value":             value.CustomText,
		"authMethod":        outcome.Method,
	}
	if value.Signature != nil {
		if _, err := q.UpsertSignature(ctx, &model.Signature{
			FieldID:                field.ID,
			RecipientID:            owner.ID,
			SignatureImageAsBase64: value.Signature.ImageAsBase64,
			TypedSignature:         value.Signature.Typed,
			CreatedAt:              now,
		}); err != nil {
			return fmt.Errorf("upsert signature: %w", err)
		}
		if value.Signature.Typed != "" {
			data["value"] = value.Signature.Typed
			data["signatureType"] = "typed"
		} else {
			data["signatureType"] = "image"
		}
	}

	kind := model.AuditFieldInserted
	if onBehalf {
		kind = model.AuditFieldPrefilled
	}
	if err := q.AppendAudit(ctx, newAuditFact(kind, env.ID, in.Actor, actor, now, data)); err != nil {
		return fmt.Errorf("append audit: %w", err)
	}
	return nil
}
