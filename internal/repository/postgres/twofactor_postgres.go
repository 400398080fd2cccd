package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"signapi/internal/model"
	"signapi/internal/repository"
)

// TwoFactorPostgres stores two-factor tokens in the two_factor_tokens table.
type TwoFactorPostgres struct {
	db *sql.DB
}

func NewTwoFactorPostgres(db *sql.DB) *TwoFactorPostgres {
	return &TwoFactorPostgres{db: db}
}

var _ repository.TwoFactorRepository = (*TwoFactorPostgres)(nil)

// Issue revokes the active token and inserts the new one in one transaction.
func (r *TwoFactorPostgres) Issue(ctx context.Context, token *model.TwoFactorToken) (*model.TwoFactorToken, error) {
	const qRevoke = `
		UPDATE two_factor_tokens SET revoked_at = $3
		WHERE envelope_id = $1 AND recipient_id = $2 AND revoked_at IS NULL
	`
	const qInsert = `
		INSERT INTO two_factor_tokens (envelope_id, recipient_id, code_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, qRevoke, token.EnvelopeID, token.RecipientID, token.CreatedAt); err != nil {
		return nil, fmt.Errorf("revoke active token: %w", err)
	}
	out := *token
	if err := tx.QueryRowContext(ctx, qInsert,
		token.EnvelopeID,
		token.RecipientID,
		token.CodeHash,
		token.ExpiresAt,
		token.CreatedAt,
	).Scan(&out.ID); err != nil {
		return nil, fmt.Errorf("insert token: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &out, nil
}

// Active returns the unrevoked token, expired or not.
func (r *TwoFactorPostgres) Active(ctx context.Context, envelopeID string, recipientID int64) (*model.TwoFactorToken, error) {
	const q = `
		SELECT id, envelope_id, recipient_id, code_hash, expires_at, created_at
		FROM two_factor_tokens
		WHERE envelope_id = $1 AND recipient_id = $2 AND revoked_at IS NULL
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	var t model.TwoFactorToken
	if err := r.db.QueryRowContext(ctx, q, envelopeID, recipientID).Scan(
		&t.ID,
		&t.EnvelopeID,
		&t.RecipientID,
		&t.CodeHash,
		&t.ExpiresAt,
		&t.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}
