package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"signapi/internal/storage"
)

// MockStorage stands in for the archive bucket. Put accepts either a fixed
// ObjectInfo or a func that inspects the uploaded body.
type MockStorage struct {
	mock.Mock
}

type putFunc = func(context.Context, string, io.Reader, storage.PutObjectOptions) storage.ObjectInfo

func (m *MockStorage) Put(ctx context.Context, key string, r io.Reader, opt storage.PutObjectOptions) (storage.ObjectInfo, error) {
	args := m.Called(ctx, key, r, opt)
	if fn, ok := args.Get(0).(putFunc); ok {
		return fn(ctx, key, r, opt), args.Error(1)
	}
	return args.Get(0).(storage.ObjectInfo), args.Error(1)
}

func (m *MockStorage) Stat(ctx context.Context, key string) (storage.ObjectInfo, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(storage.ObjectInfo), args.Error(1)
}
