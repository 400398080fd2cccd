// Package memory is an in-process implementation of the signing repositories.
// A single mutex serializes transactions; a failed transaction restores the
// snapshot taken when it began.
package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"signapi/internal/model"
	"signapi/internal/repository"
)

type state struct {
	envelopes  map[string]model.Envelope
	items      map[string]model.EnvelopeItem
	recipients map[int64]model.Recipient
	fields     map[int64]model.Field
	signatures map[int64]model.Signature // keyed by field id
	audit      []model.AuditFact
	nextID     int64
}

func newState() *state {
	return &state{
		envelopes:  make(map[string]model.Envelope),
		items:      make(map[string]model.EnvelopeItem),
		recipients: make(map[int64]model.Recipient),
		fields:     make(map[int64]model.Field),
		signatures: make(map[int64]model.Signature),
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *state) clone() *state {
	return &state{
		envelopes:  cloneMap(s.envelopes),
		items:      cloneMap(s.items),
		recipients: cloneMap(s.recipients),
		fields:     cloneMap(s.fields),
		signatures: cloneMap(s.signatures),
		audit:      slices.Clone(s.audit),
		nextID:     s.nextID,
	}
}

// Store implements repository.Store in memory.
type Store struct {
	mu sync.Mutex
	st *state
}

func NewStore() *Store {
	return &Store{st: newState()}
}

var _ repository.Store = (*Store)(nil)

// InTx runs fn with exclusive access to the store.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, q repository.Queries) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	snapshot := s.st.clone()
	if err := fn(ctx, &queries{st: s.st}); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

type queries struct {
	st *state
}

func (q *queries) id() int64 {
	q.st.nextID++
	return q.st.nextID
}

func (q *queries) RecipientByToken(_ context.Context, token string) (*model.Recipient, error) {
	for _, r := range q.st.recipients {
		if r.Token == token {
			return &r, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (q *queries) GetEnvelope(_ context.Context, id string, _ repository.LockMode) (*model.Envelope, error) {
	e, ok := q.st.envelopes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (q *queries) ListItems(_ context.Context, envelopeID string) ([]model.EnvelopeItem, error) {
	out := make([]model.EnvelopeItem, 0)
	for _, it := range q.st.items {
		if it.EnvelopeID == envelopeID {
			out = append(out, it)
		}
	}
	slices.SortFunc(out, func(a, b model.EnvelopeItem) int {
		if a.Order != b.Order {
			return cmp.Compare(a.Order, b.Order)
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (q *queries) ListRecipients(_ context.Context, envelopeID string, _ repository.LockMode) ([]model.Recipient, error) {
	out := make([]model.Recipient, 0)
	for _, r := range q.st.recipients {
		if r.EnvelopeID == envelopeID {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b model.Recipient) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (q *queries) withSignature(f model.Field) model.Field {
	if sig, ok := q.st.signatures[f.ID]; ok {
		f.Signature = &sig
	} else {
		f.Signature = nil
	}
	return f
}

func (q *queries) ListFields(_ context.Context, envelopeID string) ([]model.Field, error) {
	out := make([]model.Field, 0)
	for _, f := range q.st.fields {
		if f.EnvelopeID == envelopeID {
			out = append(out, q.withSignature(f))
		}
	}
	slices.SortFunc(out, func(a, b model.Field) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (q *queries) GetField(_ context.Context, envelopeID string, fieldID int64, _ repository.LockMode) (*model.Field, error) {
	f, ok := q.st.fields[fieldID]
	if !ok || f.EnvelopeID != envelopeID {
		return nil, repository.ErrNotFound
	}
	f = q.withSignature(f)
	return &f, nil
}

func (q *queries) UpdateFieldValue(_ context.Context, fieldID int64, inserted bool, customText string) error {
	f, ok := q.st.fields[fieldID]
	if !ok {
		return repository.ErrNotFound
	}
	f.Inserted = inserted
	f.CustomText = customText
	q.st.fields[fieldID] = f
	return nil
}

func (q *queries) UpsertSignature(_ context.Context, sig *model.Signature) (*model.Signature, error) {
	out := *sig
	if prev, ok := q.st.signatures[sig.FieldID]; ok {
		out.ID = prev.ID
	} else {
		out.ID = q.id()
	}
	q.st.signatures[sig.FieldID] = out
	return &out, nil
}

func (q *queries) DeleteSignature(_ context.Context, fieldID int64) error {
	delete(q.st.signatures, fieldID)
	return nil
}

func (q *queries) MarkRecipientSigned(_ context.Context, recipientID int64, signedAt time.Time) (bool, error) {
	r, ok := q.st.recipients[recipientID]
	if !ok || r.IsSigned() {
		return false, nil
	}
	r.SigningStatus = model.SigningStatusSigned
	r.SignedAt = &signedAt
	q.st.recipients[recipientID] = r
	return true, nil
}

func (q *queries) UpdateRecipientIdentity(_ context.Context, recipientID int64, name, email string) error {
	r, ok := q.st.recipients[recipientID]
	if !ok || r.IsSigned() {
		return repository.ErrNotFound
	}
	r.Name = name
	r.Email = email
	q.st.recipients[recipientID] = r
	return nil
}

func (q *queries) CompleteEnvelope(_ context.Context, envelopeID string, completedAt time.Time) (bool, error) {
	e, ok := q.st.envelopes[envelopeID]
	if !ok || e.Status != model.EnvelopeStatusPending || e.IsDeleted() {
		return false, nil
	}
	e.Status = model.EnvelopeStatusCompleted
	e.CompletedAt = &completedAt
	q.st.envelopes[envelopeID] = e
	return true, nil
}

func (q *queries) ListCompletedSince(_ context.Context, since time.Time) ([]string, error) {
	var done []model.Envelope
	for _, e := range q.st.envelopes {
		if e.Status == model.EnvelopeStatusCompleted && e.CompletedAt != nil && !e.CompletedAt.Before(since) {
			done = append(done, e)
		}
	}
	slices.SortFunc(done, func(a, b model.Envelope) int {
		if c := a.CompletedAt.Compare(*b.CompletedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	out := make([]string, 0, len(done))
	for _, e := range done {
		out = append(out, e.ID)
	}
	return out, nil
}

func (q *queries) AppendAudit(_ context.Context, fact *model.AuditFact) error {
	q.st.audit = append(q.st.audit, *fact)
	return nil
}

func (q *queries) ListAudit(_ context.Context, envelopeID string) ([]model.AuditFact, error) {
	out := make([]model.AuditFact, 0)
	for _, f := range q.st.audit {
		if f.EnvelopeID == envelopeID {
			out = append(out, f)
		}
	}
	return out, nil
}

// CreateEnvelope stores the envelope row. Items, recipients and fields on env
// are ignored; create them separately.
func (q *queries) CreateEnvelope(_ context.Context, env *model.Envelope) error {
	e := *env
	e.Items, e.Recipients, e.Fields = nil, nil, nil
	q.st.envelopes[e.ID] = e
	return nil
}

func (q *queries) CreateEnvelopeItem(_ context.Context, item *model.EnvelopeItem) error {
	q.st.items[item.ID] = *item
	return nil
}

func (q *queries) CreateRecipient(_ context.Context, r *model.Recipient) error {
	for _, other := range q.st.recipients {
		if other.Token == r.Token {
			return repository.ErrConflict
		}
	}
	r.ID = q.id()
	q.st.recipients[r.ID] = *r
	return nil
}

func (q *queries) CreateField(_ context.Context, f *model.Field) error {
	f.ID = q.id()
	stored := *f
	stored.Signature = nil
	q.st.fields[f.ID] = stored
	return nil
}
