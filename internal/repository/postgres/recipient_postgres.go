package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"signapi/internal/model"
	"signapi/internal/repository"
)

const recipientColumns = `id, envelope_id, token, email, name, role, signing_order,
		signing_status, signed_at, auth_options, expires_at`

func scanRecipient(row rowScanner) (*model.Recipient, error) {
	var (
		rc          model.Recipient
		order       sql.NullInt32
		signedAt    sql.NullTime
		expiresAt   sql.NullTime
		authOptions []byte
	)
	if err := row.Scan(
		&rc.ID,
		&rc.EnvelopeID,
		&rc.Token,
		&rc.Email,
		&rc.Name,
		&rc.Role,
		&order,
		&rc.SigningStatus,
		&signedAt,
		&authOptions,
		&expiresAt,
	); err != nil {
		return nil, err
	}
	if order.Valid {
		o := int(order.Int32)
		rc.SigningOrder = &o
	}
	if signedAt.Valid {
		rc.SignedAt = &signedAt.Time
	}
	if expiresAt.Valid {
		rc.ExpiresAt = &expiresAt.Time
	}
	if err := scanJSON(authOptions, &rc.AuthOptions); err != nil {
		return nil, err
	}
	return &rc, nil
}

// RecipientByToken fetches the recipient owning a signing token.
func (r *Queries) RecipientByToken(ctx context.Context, token string) (*model.Recipient, error) {
	q := `SELECT ` + recipientColumns + ` FROM recipients WHERE token = $1`
	rc, err := scanRecipient(r.db.QueryRowContext(ctx, q, token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return rc, nil
}

// ListRecipients returns every recipient of an envelope ordered by id, which is
// also the lock order.
func (r *Queries) ListRecipients(ctx context.Context, envelopeID string, lock repository.LockMode) ([]model.Recipient, error) {
	q := `SELECT ` + recipientColumns + ` FROM recipients WHERE envelope_id = $1 ORDER BY id` + lockClause(lock, "")
	rows, err := r.db.QueryContext(ctx, q, envelopeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Recipient, 0)
	for rows.Next() {
		rc, err := scanRecipient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkRecipientSigned is conditional on NOT_SIGNED so a concurrent completion loses.
func (r *Queries) MarkRecipientSigned(ctx context.Context, recipientID int64, signedAt time.Time) (bool, error) {
	const q = `
		UPDATE recipients SET signing_status = 'SIGNED', signed_at = $2
		WHERE id = $1 AND signing_status = 'NOT_SIGNED'
	`
	res, err := r.db.ExecContext(ctx, q, recipientID, signedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// UpdateRecipientIdentity replaces name and email in place.
func (r *Queries) UpdateRecipientIdentity(ctx context.Context, recipientID int64, name, email string) error {
	const q = `UPDATE recipients SET name = $2, email = $3 WHERE id = $1 AND signing_status = 'NOT_SIGNED'`
	res, err := r.db.ExecContext(ctx, q, recipientID, name, email)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// CreateRecipient inserts a recipient and sets its generated ID.
func (r *Queries) CreateRecipient(ctx context.Context, rc *model.Recipient) error {
	const q = `
		INSERT INTO recipients (envelope_id, token, email, name, role, signing_order,
			signing_status, signed_at, auth_options, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	authOptions, err := mustJSON(rc.AuthOptions)
	if err != nil {
		return err
	}
	return r.db.QueryRowContext(ctx, q,
		rc.EnvelopeID,
		rc.Token,
		rc.Email,
		rc.Name,
		rc.Role,
		rc.SigningOrder,
		rc.SigningStatus,
		rc.SignedAt,
		authOptions,
		rc.ExpiresAt,
	).Scan(&rc.ID)
}
