package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"signapi/internal/model"
	"signapi/internal/service"
)

type MockSigningService struct {
	mock.Mock
}

func (m *MockSigningService) SignField(ctx context.Context, in service.SignFieldInput) (*model.Field, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Field), args.Error(1)
}

func (m *MockSigningService) CompleteDocument(ctx context.Context, in service.CompleteInput) (*service.CompleteResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.CompleteResult), args.Error(1)
}

func (m *MockSigningService) GetSigningView(ctx context.Context, token string, identity model.Identity) (*service.SigningView, error) {
	args := m.Called(ctx, token, identity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SigningView), args.Error(1)
}

type MockTwoFactorService struct {
	mock.Mock
}

func (m *MockTwoFactorService) Issue(ctx context.Context, token string, actor service.Actor) (*service.IssuedTwoFactor, error) {
	args := m.Called(ctx, token, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.IssuedTwoFactor), args.Error(1)
}

func (m *MockTwoFactorService) Verify(ctx context.Context, envelopeID string, recipientID int64, code string) error {
	return m.Called(ctx, envelopeID, recipientID, code).Error(0)
}
