// Package repository contains data access abstractions for the signing core.
// Implementations live in subpackages (postgres, memory, redis).
package repository

import (
	"context"
	"errors"
	"time"

	"signapi/internal/model"
)

var (
	// ErrNotFound is returned by every lookup that matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a unique key is already taken.
	ErrConflict = errors.New("record already exists")
)

// LockMode selects the row lock taken by a read inside a transaction.
type LockMode int

const (
	LockNone LockMode = iota
	LockShare
	LockUpdate
)

// Queries is the data access surface of the signing core. Implementations perform
// persistence only; every precondition lives in the service layer.
type Queries interface {
	// RecipientByToken resolves the bearer token of a signing link.
	RecipientByToken(ctx context.Context, token string) (*model.Recipient, error)

	// GetEnvelope returns the envelope row without items, recipients or fields.
	GetEnvelope(ctx context.Context, id string, lock LockMode) (*model.Envelope, error)

	ListItems(ctx context.Context, envelopeID string) ([]model.EnvelopeItem, error)

	// ListRecipients returns recipients ordered by id.
	ListRecipients(ctx context.Context, envelopeID string, lock LockMode) ([]model.Recipient, error)

	// ListFields returns fields ordered by id, each with its signature attached.
	ListFields(ctx context.Context, envelopeID string) ([]model.Field, error)

	// GetField returns one field of the envelope with its signature attached.
	GetField(ctx context.Context, envelopeID string, fieldID int64, lock LockMode) (*model.Field, error)

	UpdateFieldValue(ctx context.Context, fieldID int64, inserted bool, customText string) error

	// UpsertSignature writes the single signature of sig.FieldID, replacing any previous one.
	UpsertSignature(ctx context.Context, sig *model.Signature) (*model.Signature, error)

	// DeleteSignature removes the signature of fieldID. A missing row is not an error.
	DeleteSignature(ctx context.Context, fieldID int64) error

	// MarkRecipientSigned flips NOT_SIGNED to SIGNED. It returns false when the
	// recipient was already signed.
	MarkRecipientSigned(ctx context.Context, recipientID int64, signedAt time.Time) (bool, error)

	UpdateRecipientIdentity(ctx context.Context, recipientID int64, name, email string) error

	// CompleteEnvelope flips PENDING to COMPLETED. It returns false when the
	// envelope was not pending.
	CompleteEnvelope(ctx context.Context, envelopeID string, completedAt time.Time) (bool, error)

	// ListCompletedSince returns ids of COMPLETED envelopes with completedAt at or
	// after since, oldest first.
	ListCompletedSince(ctx context.Context, since time.Time) ([]string, error)

	AppendAudit(ctx context.Context, fact *model.AuditFact) error
	ListAudit(ctx context.Context, envelopeID string) ([]model.AuditFact, error)

	CreateEnvelope(ctx context.Context, env *model.Envelope) error
	CreateEnvelopeItem(ctx context.Context, item *model.EnvelopeItem) error

	// CreateRecipient inserts r and sets r.ID.
	CreateRecipient(ctx context.Context, r *model.Recipient) error

	// CreateField inserts f and sets f.ID.
	CreateField(ctx context.Context, f *model.Field) error
}

// Store runs fn atomically: either every write made through q commits or none does.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, q Queries) error) error
}

// TwoFactorRepository keeps at most one active token per (envelope, recipient).
type TwoFactorRepository interface {
	// Issue stores token as the active one, revoking any previously active token.
	Issue(ctx context.Context, token *model.TwoFactorToken) (*model.TwoFactorToken, error)

	// Active returns the active token or ErrNotFound.
	Active(ctx context.Context, envelopeID string, recipientID int64) (*model.TwoFactorToken, error)
}

// LoadEnvelope reads the envelope with its items, recipients and fields.
// The envelope row is read with lock; recipients with recipientLock.
func LoadEnvelope(ctx context.Context, q Queries, id string, lock, recipientLock LockMode) (*model.Envelope, error) {
	env, err := q.GetEnvelope(ctx, id, lock)
	if err != nil {
		return nil, err
	}
	if env.Items, err = q.ListItems(ctx, id); err != nil {
		return nil, err
	}
	if env.Recipients, err = q.ListRecipients(ctx, id, recipientLock); err != nil {
		return nil, err
	}
	if env.Fields, err = q.ListFields(ctx, id); err != nil {
		return nil, err
	}
	return env, nil
}
