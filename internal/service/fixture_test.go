package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"signapi/internal/model"
	"signapi/internal/repository"
	"signapi/internal/repository/memory"
	"signapi/internal/signing"
)

var fixedNow = time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type mockFinalizer struct {
	mock.Mock
}

func (m *mockFinalizer) Finalize(ctx context.Context, envelopeID string) error {
	return m.Called(ctx, envelopeID).Error(0)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) NotifyRecipient(ctx context.Context, env *model.Envelope, r *model.Recipient) error {
	return m.Called(ctx, env.ID, r.ID).Error(0)
}

func (m *mockNotifier) SendTwoFactorCode(ctx context.Context, r *model.Recipient, code string, expiresAt time.Time) error {
	return m.Called(ctx, r.ID, code, expiresAt).Error(0)
}

// seedField attaches field to the recipient holding token owner.
type seedField struct {
	owner string
	field model.Field
}

type seeded struct {
	envID      string
	recipients map[string]int64
	fields     []int64
}

func pendingEnvelope(id string) model.Envelope {
	return model.Envelope{
		ID:           id,
		Type:         model.EnvelopeTypeDocument,
		Status:       model.EnvelopeStatusPending,
		Title:        "Lease agreement",
		DocumentMeta: model.DefaultDocumentMeta(),
		CreatedAt:    fixedNow.Add(-time.Hour),
	}
}

func signer(token, email string, order *int) model.Recipient {
	return model.Recipient{
		Token:         token,
		Email:         email,
		Name:          token,
		Role:          model.RoleSigner,
		SigningOrder:  order,
		SigningStatus: model.SigningStatusNotSigned,
	}
}

func seedEnvelope(t *testing.T, s *memory.Store, env model.Envelope, recipients []model.Recipient, fields []seedField) seeded {
	t.Helper()
	out := seeded{envID: env.ID, recipients: make(map[string]int64)}
	err := s.InTx(context.Background(), func(ctx context.Context, q repository.Queries) error {
		if err := q.CreateEnvelope(ctx, &env); err != nil {
			return err
		}
		item := model.EnvelopeItem{ID: env.ID + "-item", EnvelopeID: env.ID, Title: "page", Order: 1}
		if err := q.CreateEnvelopeItem(ctx, &item); err != nil {
			return err
		}
		for i := range recipients {
			r := recipients[i]
			r.EnvelopeID = env.ID
			if err := q.CreateRecipient(ctx, &r); err != nil {
				return err
			}
			out.recipients[r.Token] = r.ID
		}
		for _, sf := range fields {
			f := sf.field
			f.EnvelopeID = env.ID
			f.EnvelopeItemID = item.ID
			f.RecipientID = out.recipients[sf.owner]
			if f.Meta.Type == "" {
				f.Meta.Type = f.Type
			}
			if err := q.CreateField(ctx, &f); err != nil {
				return err
			}
			out.fields = append(out.fields, f.ID)
		}
		return nil
	})
	require.NoError(t, err)
	return out
}

func loadEnvelope(t *testing.T, s *memory.Store, id string) *model.Envelope {
	t.Helper()
	var env *model.Envelope
	err := s.InTx(context.Background(), func(ctx context.Context, q repository.Queries) error {
		var err error
		env, err = repository.LoadEnvelope(ctx, q, id, repository.LockNone, repository.LockNone)
		return err
	})
	require.NoError(t, err)
	return env
}

func getField(t *testing.T, s *memory.Store, envID string, id int64) *model.Field {
	t.Helper()
	var f *model.Field
	err := s.InTx(context.Background(), func(ctx context.Context, q repository.Queries) error {
		var err error
		f, err = q.GetField(ctx, envID, id, repository.LockNone)
		return err
	})
	require.NoError(t, err)
	return f
}

func auditKinds(t *testing.T, s *memory.Store, envID string) []model.AuditKind {
	t.Helper()
	var kinds []model.AuditKind
	err := s.InTx(context.Background(), func(ctx context.Context, q repository.Queries) error {
		facts, err := q.ListAudit(ctx, envID)
		for _, f := range facts {
			kinds = append(kinds, f.Kind)
		}
		return err
	})
	require.NoError(t, err)
	return kinds
}

func newTestService(s repository.Store, verifier signing.TwoFactorVerifier, finalizer Finalizer, notifier Notifier, opts ...Option) SigningService {
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewSigningService(s, signing.NewAuthPolicy(verifier), NewTemplateMaterializer(), finalizer, notifier, nil, opts...)
}
