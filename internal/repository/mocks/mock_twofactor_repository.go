package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"signapi/internal/model"
)

type MockTwoFactorRepository struct {
	mock.Mock
}

func (m *MockTwoFactorRepository) Issue(ctx context.Context, token *model.TwoFactorToken) (*model.TwoFactorToken, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TwoFactorToken), args.Error(1)
}

func (m *MockTwoFactorRepository) Active(ctx context.Context, envelopeID string, recipientID int64) (*model.TwoFactorToken, error) {
	args := m.Called(ctx, envelopeID, recipientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TwoFactorToken), args.Error(1)
}
