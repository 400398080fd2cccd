package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"signapi/internal/model"
	"signapi/internal/repository"
)

const envelopeColumns = `id, type, status, title, template_id, direct_link_recipient_id,
		auth_options, document_meta, completed_at, deleted_at, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEnvelope(row rowScanner) (*model.Envelope, error) {
	var (
		e                    model.Envelope
		templateID           sql.NullString
		directRecipient      sql.NullInt64
		authOptions, docMeta []byte
		completedAt, deleted sql.NullTime
	)
	if err := row.Scan(
		&e.ID,
		&e.Type,
		&e.Status,
		&e.Title,
		&templateID,
		&directRecipient,
		&authOptions,
		&docMeta,
		&completedAt,
		&deleted,
		&e.CreatedAt,
	); err != nil {
		return nil, err
	}
	if templateID.Valid {
		e.TemplateID = &templateID.String
	}
	if directRecipient.Valid {
		e.DirectLinkRecipientID = &directRecipient.Int64
	}
	if completedAt.Valid {
		e.CompletedAt = &completedAt.Time
	}
	if deleted.Valid {
		e.DeletedAt = &deleted.Time
	}
	if err := scanJSON(authOptions, &e.AuthOptions); err != nil {
		return nil, err
	}
	e.DocumentMeta = model.DefaultDocumentMeta()
	if err := scanJSON(docMeta, &e.DocumentMeta); err != nil {
		return nil, err
	}
	return &e, nil
}

// GetEnvelope fetches a single envelope row by its ID.
func (r *Queries) GetEnvelope(ctx context.Context, id string, lock repository.LockMode) (*model.Envelope, error) {
	q := `SELECT ` + envelopeColumns + ` FROM envelopes WHERE id = $1` + lockClause(lock, "")
	e, err := scanEnvelope(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

// CompleteEnvelope sets COMPLETED only while the envelope is still PENDING.
func (r *Queries) CompleteEnvelope(ctx context.Context, envelopeID string, completedAt time.Time) (bool, error) {
	const q = `
		UPDATE envelopes SET status = 'COMPLETED', completed_at = $2
		WHERE id = $1 AND status = 'PENDING' AND deleted_at IS NULL
	`
	res, err := r.db.ExecContext(ctx, q, envelopeID, completedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ListCompletedSince lists completed envelope ids for the finalize sweep.
func (r *Queries) ListCompletedSince(ctx context.Context, since time.Time) ([]string, error) {
	const q = `
		SELECT id FROM envelopes
		WHERE status = 'COMPLETED' AND completed_at >= $1
		ORDER BY completed_at, id
	`
	rows, err := r.db.QueryContext(ctx, q, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CreateEnvelope inserts a new envelope row.
func (r *Queries) CreateEnvelope(ctx context.Context, env *model.Envelope) error {
	const q = `
		INSERT INTO envelopes (id, type, status, title, template_id, direct_link_recipient_id,
			auth_options, document_meta, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	authOptions, err := mustJSON(env.AuthOptions)
	if err != nil {
		return err
	}
	docMeta, err := mustJSON(env.DocumentMeta)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, q,
		env.ID,
		env.Type,
		env.Status,
		env.Title,
		env.TemplateID,
		env.DirectLinkRecipientID,
		authOptions,
		docMeta,
		env.CreatedAt,
	)
	return err
}

// ListItems returns the documents of an envelope in display order.
func (r *Queries) ListItems(ctx context.Context, envelopeID string) ([]model.EnvelopeItem, error) {
	const q = `
		SELECT id, envelope_id, title, item_order
		FROM envelope_items
		WHERE envelope_id = $1
		ORDER BY item_order, id
	`
	rows, err := r.db.QueryContext(ctx, q, envelopeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.EnvelopeItem, 0)
	for rows.Next() {
		var it model.EnvelopeItem
		if err := rows.Scan(&it.ID, &it.EnvelopeID, &it.Title, &it.Order); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// CreateEnvelopeItem inserts a document row of an envelope.
func (r *Queries) CreateEnvelopeItem(ctx context.Context, item *model.EnvelopeItem) error {
	const q = `INSERT INTO envelope_items (id, envelope_id, title, item_order) VALUES ($1, $2, $3, $4)`
	_, err := r.db.ExecContext(ctx, q, item.ID, item.EnvelopeID, item.Title, item.Order)
	return err
}
