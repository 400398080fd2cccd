package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signapi/internal/model"
	"signapi/internal/repository"
)

func seed(t *testing.T, s *Store) (envID string, recipientID, fieldID int64) {
	t.Helper()
	err := s.InTx(context.Background(), func(ctx context.Context, q repository.Queries) error {
		env := &model.Envelope{ID: "env-1", Type: model.EnvelopeTypeDocument, Status: model.EnvelopeStatusPending, DocumentMeta: model.DefaultDocumentMeta()}
		if err := q.CreateEnvelope(ctx, env); err != nil {
			return err
		}
		r := &model.Recipient{EnvelopeID: env.ID, Token: "tok", Email: "a@example.com", Role: model.RoleSigner, SigningStatus: model.SigningStatusNotSigned}
		if err := q.CreateRecipient(ctx, r); err != nil {
			return err
		}
		f := &model.Field{EnvelopeID: env.ID, RecipientID: r.ID, Type: model.FieldTypeSignature}
		if err := q.CreateField(ctx, f); err != nil {
			return err
		}
		envID, recipientID, fieldID = env.ID, r.ID, f.ID
		return nil
	})
	require.NoError(t, err)
	return
}

func TestStore_InTxRollsBackOnError(t *testing.T) {
	s := NewStore()
	envID, _, fieldID := seed(t, s)
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.InTx(ctx, func(ctx context.Context, q repository.Queries) error {
		if err := q.UpdateFieldValue(ctx, fieldID, true, ""); err != nil {
			return err
		}
		if _, err := q.UpsertSignature(ctx, &model.Signature{FieldID: fieldID, TypedSignature: "Ann"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_ = s.InTx(ctx, func(ctx context.Context, q repository.Queries) error {
		f, err := q.GetField(ctx, envID, fieldID, repository.LockNone)
		require.NoError(t, err)
		assert.False(t, f.Inserted)
		assert.Nil(t, f.Signature)
		return nil
	})
}

func TestStore_SignatureOneToOne(t *testing.T) {
	s := NewStore()
	envID, recipientID, fieldID := seed(t, s)
	ctx := context.Background()

	err := s.InTx(ctx, func(ctx context.Context, q repository.Queries) error {
		first, err := q.UpsertSignature(ctx, &model.Signature{FieldID: fieldID, RecipientID: recipientID, TypedSignature: "Ann"})
		require.NoError(t, err)
		second, err := q.UpsertSignature(ctx, &model.Signature{FieldID: fieldID, RecipientID: recipientID, SignatureImageAsBase64: "data:image/png;base64,AA"})
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)

		fields, err := q.ListFields(ctx, envID)
		require.NoError(t, err)
		require.Len(t, fields, 1)
		assert.Equal(t, "", fields[0].Signature.TypedSignature)

		require.NoError(t, q.DeleteSignature(ctx, fieldID))
		f, err := q.GetField(ctx, envID, fieldID, repository.LockUpdate)
		require.NoError(t, err)
		assert.Nil(t, f.Signature)
		return nil
	})
	require.NoError(t, err)
}

func TestStore_ConditionalUpdates(t *testing.T) {
	s := NewStore()
	envID, recipientID, _ := seed(t, s)
	ctx := context.Background()
	now := time.Now()

	err := s.InTx(ctx, func(ctx context.Context, q repository.Queries) error {
		ok, err := q.MarkRecipientSigned(ctx, recipientID, now)
		require.NoError(t, err)
		assert.True(t, ok)
		ok, _ = q.MarkRecipientSigned(ctx, recipientID, now)
		assert.False(t, ok)

		assert.ErrorIs(t, q.UpdateRecipientIdentity(ctx, recipientID, "B", "b@example.com"), repository.ErrNotFound)

		ok, err = q.CompleteEnvelope(ctx, envID, now)
		require.NoError(t, err)
		assert.True(t, ok)
		ok, _ = q.CompleteEnvelope(ctx, envID, now)
		assert.False(t, ok)
		return nil
	})
	require.NoError(t, err)
}

func TestStore_DuplicateTokenConflicts(t *testing.T) {
	s := NewStore()
	seed(t, s)
	err := s.InTx(context.Background(), func(ctx context.Context, q repository.Queries) error {
		return q.CreateRecipient(ctx, &model.Recipient{EnvelopeID: "env-1", Token: "tok"})
	})
	assert.ErrorIs(t, err, repository.ErrConflict)
}

func TestStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := NewStore().InTx(ctx, func(ctx context.Context, q repository.Queries) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestTwoFactorStore(t *testing.T) {
	s := NewTwoFactorStore()
	ctx := context.Background()

	_, err := s.Active(ctx, "env-1", 1)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	first, _ := s.Issue(ctx, &model.TwoFactorToken{EnvelopeID: "env-1", RecipientID: 1, CodeHash: "a"})
	second, _ := s.Issue(ctx, &model.TwoFactorToken{EnvelopeID: "env-1", RecipientID: 1, CodeHash: "b"})
	assert.NotEqual(t, first.ID, second.ID)

	active, err := s.Active(ctx, "env-1", 1)
	require.NoError(t, err)
	assert.Equal(t, "b", active.CodeHash)
}

func TestStore_ListCompletedSince(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time { ts := base.Add(d); return &ts }

	err := s.InTx(ctx, func(ctx context.Context, q repository.Queries) error {
		for _, e := range []model.Envelope{
			{ID: "env-old", Status: model.EnvelopeStatusCompleted, CompletedAt: at(-time.Hour)},
			{ID: "env-b", Status: model.EnvelopeStatusCompleted, CompletedAt: at(time.Minute)},
			{ID: "env-a", Status: model.EnvelopeStatusCompleted, CompletedAt: at(time.Minute)},
			{ID: "env-first", Status: model.EnvelopeStatusCompleted, CompletedAt: at(0)},
			{ID: "env-pending", Status: model.EnvelopeStatusPending},
		} {
			e.Type = model.EnvelopeTypeDocument
			if err := q.CreateEnvelope(ctx, &e); err != nil {
				return err
			}
		}
		ids, err := q.ListCompletedSince(ctx, base)
		require.NoError(t, err)
		assert.Equal(t, []string{"env-first", "env-a", "env-b"}, ids)
		return nil
	})
	require.NoError(t, err)
}
