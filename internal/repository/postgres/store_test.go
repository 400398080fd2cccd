package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signapi/internal/model"
	"signapi/internal/repository"
)

var envelopeCols = []string{"id", "type", "status", "title", "template_id", "direct_link_recipient_id",
	"auth_options", "document_meta", "completed_at", "deleted_at", "created_at"}

var recipientCols = []string{"id", "envelope_id", "token", "email", "name", "role", "signing_order",
	"signing_status", "signed_at", "auth_options", "expires_at"}

var fieldCols = []string{"id", "envelope_id", "envelope_item_id", "recipient_id", "type", "page",
	"position_x", "position_y", "width", "height", "field_meta", "custom_text", "inserted",
	"sig_id", "sig_recipient_id", "signature_image_as_base64", "typed_signature", "sig_created_at"}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestStore_InTx(t *testing.T) {
	ctx := context.Background()

	t.Run("commit", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE fields SET inserted").
			WithArgs(int64(9), true, "hello").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := NewStore(db).InTx(ctx, func(ctx context.Context, q repository.Queries) error {
			return q.UpdateFieldValue(ctx, 9, true, "hello")
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback on error", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE fields SET inserted").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := NewStore(db).InTx(ctx, func(ctx context.Context, q repository.Queries) error {
			return q.UpdateFieldValue(ctx, 9, true, "hello")
		})
		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestQueries_GetEnvelope(t *testing.T) {
	ctx := context.Background()
	db, mock := newMock(t)
	q := NewQueries(db)
	now := time.Now().UTC()

	t.Run("found with lock", func(t *testing.T) {
		rows := sqlmock.NewRows(envelopeCols).AddRow(
			"env-1", "DOCUMENT", "PENDING", "Contract", nil, nil,
			[]byte(`{"globalAccessAuth":[],"globalActionAuth":["ACCOUNT"]}`),
			[]byte(`{"signingOrder":"SEQUENTIAL","typedSignatureEnabled":false}`),
			nil, nil, now,
		)
		mock.ExpectQuery("SELECT (.+) FROM envelopes WHERE id = (.+) FOR UPDATE").
			WithArgs("env-1").
			WillReturnRows(rows)

		env, err := q.GetEnvelope(ctx, "env-1", repository.LockUpdate)
		require.NoError(t, err)
		assert.Equal(t, model.EnvelopeStatusPending, env.Status)
		assert.Equal(t, []model.ActionAuth{model.ActionAuthAccount}, env.AuthOptions.GlobalActionAuth)
		assert.True(t, env.DocumentMeta.IsSequential())
		assert.False(t, env.DocumentMeta.TypedSignatureEnabled)
		assert.True(t, env.DocumentMeta.DrawSignatureEnabled, "defaults fill missing keys")
		assert.Nil(t, env.DeletedAt)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM envelopes").
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		env, err := q.GetEnvelope(ctx, "missing", repository.LockNone)
		assert.Nil(t, env)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueries_RecipientByToken(t *testing.T) {
	ctx := context.Background()
	db, mock := newMock(t)
	q := NewQueries(db)
	expires := time.Now().Add(time.Hour).UTC()

	rows := sqlmock.NewRows(recipientCols).AddRow(
		int64(3), "env-1", "tok", "a@example.com", "Ann", "SIGNER", int64(2),
		"NOT_SIGNED", nil, []byte(`{"accessAuth":[],"actionAuth":["EXPLICIT_NONE"]}`), expires,
	)
	mock.ExpectQuery("SELECT (.+) FROM recipients WHERE token").
		WithArgs("tok").
		WillReturnRows(rows)

	r, err := q.RecipientByToken(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, int64(3), r.ID)
	require.NotNil(t, r.SigningOrder)
	assert.Equal(t, 2, *r.SigningOrder)
	assert.Equal(t, []model.ActionAuth{model.ActionAuthExplicitNone}, r.AuthOptions.ActionAuth)
	require.NotNil(t, r.ExpiresAt)

	mock.ExpectQuery("SELECT (.+) FROM recipients WHERE token").
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)
	_, err = q.RecipientByToken(ctx, "nope")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueries_ListFields(t *testing.T) {
	ctx := context.Background()
	db, mock := newMock(t)
	q := NewQueries(db)
	now := time.Now().UTC()

	rows := sqlmock.NewRows(fieldCols).
		AddRow(int64(1), "env-1", "item-1", int64(3), "SIGNATURE", 1, 10.0, 20.0, 15.0, 5.0,
			[]byte(`{}`), "", true, int64(50), int64(3), "data:image/png;base64,AA", nil, now).
		AddRow(int64(2), "env-1", "item-1", int64(3), "TEXT", 1, 10.0, 40.0, 15.0, 5.0,
			[]byte(`{"required":true,"characterLimit":20}`), "", false, nil, nil, nil, nil, nil)

	mock.ExpectQuery("SELECT (.+) FROM fields f LEFT JOIN signatures s").
		WithArgs("env-1").
		WillReturnRows(rows)

	fields, err := q.ListFields(ctx, "env-1")
	require.NoError(t, err)
	require.Len(t, fields, 2)
	require.NotNil(t, fields[0].Signature)
	assert.Equal(t, "data:image/png;base64,AA", fields[0].Signature.SignatureImageAsBase64)
	assert.Equal(t, int64(1), fields[0].Signature.FieldID)
	assert.Nil(t, fields[1].Signature)
	assert.True(t, fields[1].Meta.Required)
	assert.Equal(t, 20, fields[1].Meta.CharacterLimit)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueries_GetFieldLocksFieldRow(t *testing.T) {
	ctx := context.Background()
	db, mock := newMock(t)
	q := NewQueries(db)

	mock.ExpectQuery("WHERE f.envelope_id = (.+) AND f.id = (.+) FOR UPDATE OF f").
		WithArgs("env-1", int64(7)).
		WillReturnError(sql.ErrNoRows)

	_, err := q.GetField(ctx, "env-1", 7, repository.LockUpdate)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueries_ConditionalUpdates(t *testing.T) {
	ctx := context.Background()
	db, mock := newMock(t)
	q := NewQueries(db)
	now := time.Now().UTC()

	mock.ExpectExec("UPDATE recipients SET signing_status = 'SIGNED'").
		WithArgs(int64(3), now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE recipients SET signing_status = 'SIGNED'").
		WithArgs(int64(3), now).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE envelopes SET status = 'COMPLETED'").
		WithArgs("env-1", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE envelopes SET status = 'COMPLETED'").
		WithArgs("env-1", now).
		WillReturnError(errors.New("db down"))

	ok, err := q.MarkRecipientSigned(ctx, 3, now)
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = q.MarkRecipientSigned(ctx, 3, now)
	assert.NoError(t, err)
	assert.False(t, ok, "already signed")

	ok, err = q.CompleteEnvelope(ctx, "env-1", now)
	assert.NoError(t, err)
	assert.True(t, ok)

	_, err = q.CompleteEnvelope(ctx, "env-1", now)
	assert.EqualError(t, err, "db down")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueries_UpsertAndDeleteSignature(t *testing.T) {
	ctx := context.Background()
	db, mock := newMock(t)
	q := NewQueries(db)
	now := time.Now().UTC()

	mock.ExpectQuery("INSERT INTO signatures (.+) ON CONFLICT").
		WithArgs(int64(1), int64(3), sqlmock.AnyArg(), sqlmock.AnyArg(), now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(77)))
	mock.ExpectExec("DELETE FROM signatures WHERE field_id").
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	sig, err := q.UpsertSignature(ctx, &model.Signature{FieldID: 1, RecipientID: 3, TypedSignature: "Ann", CreatedAt: now})
	require.NoError(t, err)
	assert.Equal(t, int64(77), sig.ID)
	assert.Equal(t, "Ann", sig.TypedSignature)

	assert.NoError(t, q.DeleteSignature(ctx, 1))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueries_CreateRecipient(t *testing.T) {
	ctx := context.Background()
	db, mock := newMock(t)
	q := NewQueries(db)

	mock.ExpectQuery("INSERT INTO recipients").
		WithArgs("env-1", "tok", "a@example.com", "Ann", model.RoleSigner, sqlmock.AnyArg(),
			model.SigningStatusNotSigned, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(12)))

	r := &model.Recipient{EnvelopeID: "env-1", Token: "tok", Email: "a@example.com", Name: "Ann",
		Role: model.RoleSigner, SigningStatus: model.SigningStatusNotSigned}
	require.NoError(t, q.CreateRecipient(ctx, r))
	assert.Equal(t, int64(12), r.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueries_Audit(t *testing.T) {
	ctx := context.Background()
	db, mock := newMock(t)
	q := NewQueries(db)
	now := time.Now().UTC()

	fact := &model.AuditFact{ID: "01J0000000000000000000000", EnvelopeID: "env-1", Kind: model.AuditFieldInserted,
		Email: "a@example.com", Data: map[string]any{"fieldId": 1}, CreatedAt: now}

	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(fact.ID, "env-1", model.AuditFieldInserted, "", "a@example.com", "", "", "", []byte(`{"fieldId":1}`), now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT (.+) FROM audit_logs").
		WithArgs("env-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "envelope_id", "kind", "user_id", "email", "name", "ip_address", "user_agent", "data", "created_at"}).
			AddRow(fact.ID, "env-1", "FIELD_INSERTED", "", "a@example.com", "", "", "", []byte(`{"fieldId":1}`), now))

	require.NoError(t, q.AppendAudit(ctx, fact))
	facts, err := q.ListAudit(ctx, "env-1")
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, model.AuditFieldInserted, facts[0].Kind)
	assert.Equal(t, float64(1), facts[0].Data["fieldId"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueries_ListCompletedSince(t *testing.T) {
	ctx := context.Background()
	since := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("rows", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery("SELECT id FROM envelopes WHERE status = 'COMPLETED' AND completed_at >= (.+) ORDER BY completed_at, id").
			WithArgs(since).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("env-1").AddRow("env-2"))

		ids, err := NewQueries(db).ListCompletedSince(ctx, since)
		require.NoError(t, err)
		assert.Equal(t, []string{"env-1", "env-2"}, ids)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query error", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery("SELECT id FROM envelopes").
			WillReturnError(errors.New("db down"))

		ids, err := NewQueries(db).ListCompletedSince(ctx, since)
		assert.EqualError(t, err, "db down")
		assert.Nil(t, ids)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
