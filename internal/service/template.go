package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"signapi/internal/apperr"
	"signapi/internal/model"
	"signapi/internal/repository"
	"signapi/internal/signing"
)

// TemplateMaterializer creates a DOCUMENT envelope from a template for the
// anonymous party of its direct link.
type TemplateMaterializer interface {
	// CreateDocumentFromTemplate writes the new envelope through q and returns its id and
	// the recipient that took the direct recipient's place. Values in info seed that
	// recipient's fields.
	CreateDocumentFromTemplate(ctx context.Context, q repository.Queries, tpl *model.Envelope, info DirectRecipientInfo, actor Actor, now time.Time) (string, *model.Recipient, error)
}

type templateMaterializer struct{}

// NewTemplateMaterializer constructs the default TemplateMaterializer.
func NewTemplateMaterializer() TemplateMaterializer {
	return &templateMaterializer{}
}

func (m *templateMaterializer) CreateDocumentFromTemplate(ctx context.Context, q repository.Queries, tpl *model.Envelope, info DirectRecipientInfo, actor Actor, now time.Time) (string, *model.Recipient, error) {
	if tpl.DirectLinkRecipientID == nil {
		return "", nil, apperr.InvalidRequest("template has no direct link")
	}
	directID := *tpl.DirectLinkRecipientID

	doc := &model.Envelope{
		ID:           uuid.NewString(),
		Type:         model.EnvelopeTypeDocument,
		Status:       model.EnvelopeStatusPending,
		Title:        tpl.Title,
		TemplateID:   &tpl.ID,
		AuthOptions:  tpl.AuthOptions,
		DocumentMeta: tpl.DocumentMeta,
		CreatedAt:    now,
	}
	if err := q.CreateEnvelope(ctx, doc); err != nil {
		return "", nil, fmt.Errorf("create envelope: %w", err)
	}

	itemIDs := make(map[string]string, len(tpl.Items))
	for _, it := range tpl.Items {
		item := model.EnvelopeItem{ID: uuid.NewString(), EnvelopeID: doc.ID, Title: it.Title, Order: it.Order}
		if err := q.CreateEnvelopeItem(ctx, &item); err != nil {
			return "", nil, fmt.Errorf("create envelope item: %w", err)
		}
		itemIDs[it.ID] = item.ID
	}

	recipientIDs := make(map[int64]int64, len(tpl.Recipients))
	var direct *model.Recipient
	for _, r := range signing.SortRecipients(tpl.Recipients) {
		nr := model.Recipient{
			EnvelopeID:    doc.ID,
			Token:         uuid.NewString(),
			Email:         r.Email,
			Name:          r.Name,
			Role:          r.Role,
			SigningOrder:  r.SigningOrder,
			SigningStatus: model.SigningStatusNotSigned,
			AuthOptions:   r.AuthOptions,
			ExpiresAt:     r.ExpiresAt,
		}
		if r.ID == directID {
			nr.Email = info.Email
			nr.Name = info.Name
		}
		if err := q.CreateRecipient(ctx, &nr); err != nil {
			return "", nil, fmt.Errorf("create recipient: %w", err)
		}
		recipientIDs[r.ID] = nr.ID
		if r.ID == directID {
			d := nr
			direct = &d
		}
	}
	if direct == nil {
		return "", nil, apperr.NotFound("direct link recipient not found")
	}

	used := make(map[int64]bool, len(info.FieldValues))
	for _, f := range tpl.Fields {
		nf := f
		nf.ID = 0
		nf.EnvelopeID = doc.ID
		nf.EnvelopeItemID = itemIDs[f.EnvelopeItemID]
		nf.RecipientID = recipientIDs[f.RecipientID]
		nf.Signature = nil
		if !f.Meta.ReadOnly {
			nf.Inserted = false
			nf.CustomText = ""
		}

		var sig *signing.SignatureInput
		if v, ok := info.FieldValues[f.ID]; ok && f.RecipientID == directID {
			used[f.ID] = true
			if f.Meta.ReadOnly {
				return "", nil, apperr.InvalidRequest("field is read-only")
			}
			val, err := signing.ExtractInsertionValue(v, &nf, tpl.DocumentMeta, now)
			if err != nil {
				return "", nil, err
			}
			nf.Inserted = val.Inserted
			nf.CustomText = val.CustomText
			sig = val.Signature
		}
		if err := q.CreateField(ctx, &nf); err != nil {
			return "", nil, fmt.Errorf("create field: %w", err)
		}
		if sig != nil {
			if _, err := q.UpsertSignature(ctx, &model.Signature{
				FieldID:                nf.ID,
				RecipientID:            direct.ID,
				SignatureImageAsBase64: sig.ImageAsBase64,
				TypedSignature:         sig.Typed,
				CreatedAt:              now,
			}); err != nil {
				return "", nil, fmt.Errorf("upsert signature: %w", err)
			}
		}
	}
	for id := range info.FieldValues {
		if !used[id] {
			return "", nil, apperr.NotFound("field not found")
		}
	}

	if err := q.AppendAudit(ctx, newAuditFact(model.AuditDocumentFromDirectTemplate, doc.ID, actor, direct, now, map[string]any{
		"templateId":  tpl.ID,
		"recipientId": direct.ID,
	})); err != nil {
		return "", nil, fmt.Errorf("append audit: %w", err)
	}
	return doc.ID, direct, nil
}

// completeDirectTemplate materializes tpl for the direct link recipient and completes
// that recipient on the new document.
func (s *signingService) completeDirectTemplate(
	ctx context.Context,
	q repository.Queries,
	tpl *model.Envelope,
	recipientID int64,
	in CompleteInput,
	now time.Time,
	post *afterCommit,
) (*CompleteResult, error) {
	if tpl.IsDeleted() {
		return nil, apperr.InvalidRequest("template has been deleted")
	}
	if tpl.DirectLinkRecipientID == nil || *tpl.DirectLinkRecipientID != recipientID {
		return nil, apperr.InvalidRequest("template has no direct link for this recipient")
	}
	if in.DirectRecipient == nil || in.DirectRecipient.Email == "" {
		return nil, apperr.InvalidRequest("direct recipient details are required")
	}
	if s.templates == nil {
		return nil, fmt.Errorf("template materialization is not configured")
	}

	placeholder := findRecipient(tpl.Recipients, recipientID)
	if placeholder == nil {
		return nil, apperr.NotFound("recipient not found")
	}
	gate := *placeholder
	gate.Email = in.DirectRecipient.Email
	if _, err := s.auth.ResolveFieldAuth(ctx, signing.AuthInput{
		EnvelopeID:  tpl.ID,
		AuthOptions: tpl.AuthOptions,
		Recipient:   &gate,
		Identity:    in.Actor.Identity,
		Evidence:    in.AuthOptions,
	}); err != nil {
		return nil, err
	}

	docID, direct, err := s.templates.CreateDocumentFromTemplate(ctx, q, tpl, *in.DirectRecipient, in.Actor, now)
	if err != nil {
		return nil, err
	}
	doc, err := repository.LoadEnvelope(ctx, q, docID, repository.LockUpdate, repository.LockUpdate)
	if err != nil {
		return nil, fmt.Errorf("load materialized document: %w", err)
	}

	completeIn := in
	completeIn.preAuthorized = true
	if err := s.completeRecipient(ctx, q, doc, direct.ID, completeIn, now, true, post); err != nil {
		return nil, err
	}
	return &CompleteResult{
		RedirectTarget:    redirectTarget(doc, direct.Token),
		EnvelopeID:        doc.ID,
		EnvelopeCompleted: post.finalize,
	}, nil
}
