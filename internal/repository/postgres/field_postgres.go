package postgres

import (
	"context"
	"database/sql"
	"errors"

	"signapi/internal/model"
	"signapi/internal/repository"
)

const fieldSelect = `
		SELECT f.id, f.envelope_id, f.envelope_item_id, f.recipient_id, f.type, f.page,
			f.position_x, f.position_y, f.width, f.height, f.field_meta, f.custom_text, f.inserted,
			s.id, s.recipient_id, s.signature_image_as_base64, s.typed_signature, s.created_at
		FROM fields f
		LEFT JOIN signatures s ON s.field_id = f.id
`

func scanField(row rowScanner) (*model.Field, error) {
	var (
		f          model.Field
		meta       []byte
		sigID      sql.NullInt64
		sigRecip   sql.NullInt64
		sigImage   sql.NullString
		sigTyped   sql.NullString
		sigCreated sql.NullTime
	)
	if err := row.Scan(
		&f.ID,
		&f.EnvelopeID,
		&f.EnvelopeItemID,
		&f.RecipientID,
		&f.Type,
		&f.Page,
		&f.PositionX,
		&f.PositionY,
		&f.Width,
		&f.Height,
		&meta,
		&f.CustomText,
		&f.Inserted,
		&sigID,
		&sigRecip,
		&sigImage,
		&sigTyped,
		&sigCreated,
	); err != nil {
		return nil, err
	}
	if err := scanJSON(meta, &f.Meta); err != nil {
		return nil, err
	}
	if sigID.Valid {
		f.Signature = &model.Signature{
			ID:                     sigID.Int64,
			FieldID:                f.ID,
			RecipientID:            sigRecip.Int64,
			SignatureImageAsBase64: sigImage.String,
			TypedSignature:         sigTyped.String,
			CreatedAt:              sigCreated.Time,
		}
	}
	return &f, nil
}

// ListFields returns the fields of an envelope with their signatures.
func (r *Queries) ListFields(ctx context.Context, envelopeID string) ([]model.Field, error) {
	q := fieldSelect + ` WHERE f.envelope_id = $1 ORDER BY f.id`
	rows, err := r.db.QueryContext(ctx, q, envelopeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Field, 0)
	for rows.Next() {
		f, err := scanField(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetField fetches one field scoped to its envelope. The lock applies to the
// field row only; the signature side of the join is nullable.
func (r *Queries) GetField(ctx context.Context, envelopeID string, fieldID int64, lock repository.LockMode) (*model.Field, error) {
	q := fieldSelect + ` WHERE f.envelope_id = $1 AND f.id = $2` + lockClause(lock, "f")
	f, err := scanField(r.db.QueryRowContext(ctx, q, envelopeID, fieldID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

// UpdateFieldValue stores the inserted flag and text of a field.
func (r *Queries) UpdateFieldValue(ctx context.Context, fieldID int64, inserted bool, customText string) error {
	const q = `UPDATE fields SET inserted = $2, custom_text = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, fieldID, inserted, customText)
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

// CreateField inserts a field and sets its generated ID.
func (r *Queries) CreateField(ctx context.Context, f *model.Field) error {
	const q = `
		INSERT INTO fields (envelope_id, envelope_item_id, recipient_id, type, page,
			position_x, position_y, width, height, field_meta, custom_text, inserted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`
	meta, err := mustJSON(f.Meta)
	if err != nil {
		return err
	}
	return r.db.QueryRowContext(ctx, q,
		f.EnvelopeID,
		f.EnvelopeItemID,
		f.RecipientID,
		f.Type,
		f.Page,
		f.PositionX,
		f.PositionY,
		f.Width,
		f.Height,
		meta,
		f.CustomText,
		f.Inserted,
	).Scan(&f.ID)
}

// UpsertSignature keeps exactly one signature per field.
func (r *Queries) UpsertSignature(ctx context.Context, sig *model.Signature) (*model.Signature, error) {
	const q = `
		INSERT INTO signatures (field_id, recipient_id, signature_image_as_base64, typed_signature, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (field_id) DO UPDATE SET
			recipient_id = EXCLUDED.recipient_id,
			signature_image_as_base64 = EXCLUDED.signature_image_as_base64,
			typed_signature = EXCLUDED.typed_signature,
			created_at = EXCLUDED.created_at
		RETURNING id
	`
	out := *sig
	if err := r.db.QueryRowContext(ctx, q,
		sig.FieldID,
		sig.RecipientID,
		nullString(sig.SignatureImageAsBase64),
		nullString(sig.TypedSignature),
		sig.CreatedAt,
	).Scan(&out.ID); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteSignature removes the signature of a field if there is one.
func (r *Queries) DeleteSignature(ctx context.Context, fieldID int64) error {
	const q = `DELETE FROM signatures WHERE field_id = $1`
	_, err := r.db.ExecContext(ctx, q, fieldID)
	return err
}
