package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"signapi/internal/model"
	"signapi/internal/repository"
)

// MockStore runs InTx callbacks against Queries. Set Queries before use.
type MockStore struct {
	mock.Mock
	Queries *MockQueries
}

func (m *MockStore) InTx(ctx context.Context, fn func(ctx context.Context, q repository.Queries) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(ctx, m.Queries)
}

type MockQueries struct {
	mock.Mock
}

func (m *MockQueries) RecipientByToken(ctx context.Context, token string) (*model.Recipient, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Recipient), args.Error(1)
}

func (m *MockQueries) GetEnvelope(ctx context.Context, id string, lock repository.LockMode) (*model.Envelope, error) {
	args := m.Called(ctx, id, lock)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Envelope), args.Error(1)
}

func (m *MockQueries) ListItems(ctx context.Context, envelopeID string) ([]model.EnvelopeItem, error) {
	args := m.Called(ctx, envelopeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.EnvelopeItem), args.Error(1)
}

func (m *MockQueries) ListRecipients(ctx context.Context, envelopeID string, lock repository.LockMode) ([]model.Recipient, error) {
	args := m.Called(ctx, envelopeID, lock)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Recipient), args.Error(1)
}

func (m *MockQueries) ListFields(ctx context.Context, envelopeID string) ([]model.Field, error) {
	args := m.Called(ctx, envelopeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Field), args.Error(1)
}

func (m *MockQueries) GetField(ctx context.Context, envelopeID string, fieldID int64, lock repository.LockMode) (*model.Field, error) {
	args := m.Called(ctx, envelopeID, fieldID, lock)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Field), args.Error(1)
}

func (m *MockQueries) UpdateFieldValue(ctx context.Context, fieldID int64, inserted bool, customText string) error {
	args := m.Called(ctx, fieldID, inserted, customText)
	return args.Error(0)
}

func (m *MockQueries) UpsertSignature(ctx context.Context, sig *model.Signature) (*model.Signature, error) {
	args := m.Called(ctx, sig)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Signature), args.Error(1)
}

func (m *MockQueries) DeleteSignature(ctx context.Context, fieldID int64) error {
	args := m.Called(ctx, fieldID)
	return args.Error(0)
}

func (m *MockQueries) MarkRecipientSigned(ctx context.Context, recipientID int64, signedAt time.Time) (bool, error) {
	args := m.Called(ctx, recipientID, signedAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockQueries) UpdateRecipientIdentity(ctx context.Context, recipientID int64, name, email string) error {
	args := m.Called(ctx, recipientID, name, email)
	return args.Error(0)
}

func (m *MockQueries) CompleteEnvelope(ctx context.Context, envelopeID string, completedAt time.Time) (bool, error) {
	args := m.Called(ctx, envelopeID, completedAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockQueries) ListCompletedSince(ctx context.Context, since time.Time) ([]string, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockQueries) AppendAudit(ctx context.Context, fact *model.AuditFact) error {
	args := m.Called(ctx, fact)
	return args.Error(0)
}

func (m *MockQueries) ListAudit(ctx context.Context, envelopeID string) ([]model.AuditFact, error) {
	args := m.Called(ctx, envelopeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.AuditFact), args.Error(1)
}

func (m *MockQueries) CreateEnvelope(ctx context.Context, env *model.Envelope) error {
	args := m.Called(ctx, env)
	return args.Error(0)
}

func (m *MockQueries) CreateEnvelopeItem(ctx context.Context, item *model.EnvelopeItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockQueries) CreateRecipient(ctx context.Context, r *model.Recipient) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockQueries) CreateField(ctx context.Context, f *model.Field) error {
	args := m.Called(ctx, f)
	return args.Error(0)
}
