package postgres

import (
	"context"

	"signapi/internal/model"
)

// AppendAudit writes one audit fact.
func (r *Queries) AppendAudit(ctx context.Context, fact *model.AuditFact) error {
	const q = `
		INSERT INTO audit_logs (id, envelope_id, kind, user_id, email, name, ip_address, user_agent, data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	data, err := mustJSON(fact.Data)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, q,
		fact.ID,
		fact.EnvelopeID,
		fact.Kind,
		fact.UserID,
		fact.Email,
		fact.Name,
		fact.IPAddress,
		fact.UserAgent,
		data,
		fact.CreatedAt,
	)
	return err
}

// ListAudit returns the audit trail of an envelope oldest first.
func (r *Queries) ListAudit(ctx context.Context, envelopeID string) ([]model.AuditFact, error) {
	const q = `
		SELECT id, envelope_id, kind, user_id, email, name, ip_address, user_agent, data, created_at
		FROM audit_logs
		WHERE envelope_id = $1
		ORDER BY created_at, id
	`
	rows, err := r.db.QueryContext(ctx, q, envelopeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.AuditFact, 0)
	for rows.Next() {
		var (
			f    model.AuditFact
			data []byte
		)
		if err := rows.Scan(
			&f.ID,
			&f.EnvelopeID,
			&f.Kind,
			&f.UserID,
			&f.Email,
			&f.Name,
			&f.IPAddress,
			&f.UserAgent,
			&data,
			&f.CreatedAt,
		); err != nil {
			return nil, err
		}
		if err := scanJSON(data, &f.Data); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
