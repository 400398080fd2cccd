package storage

import (
	"context"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"

	"signapi/internal/config"
)

func TestNewMinIO_Validation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		cfg     config.MinIOConfig
		wantErr string
	}{
		{name: "missing endpoint", cfg: config.MinIOConfig{AccessKey: "a", SecretKey: "s", Bucket: "b"}, wantErr: "minio endpoint is required"},
		{name: "missing credentials", cfg: config.MinIOConfig{Endpoint: "minio:9000", Bucket: "b"}, wantErr: "minio credentials are required"},
		{name: "missing bucket", cfg: config.MinIOConfig{Endpoint: "minio:9000", AccessKey: "a", SecretKey: "s"}, wantErr: "minio bucket is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewMinIO(ctx, tt.cfg)
			assert.EqualError(t, err, tt.wantErr)
			assert.Nil(t, s)
		})
	}
}

func TestIsMissing(t *testing.T) {
	assert.False(t, isMissing(nil))
	assert.True(t, isMissing(minio.ErrorResponse{Code: "NoSuchKey"}))
	assert.False(t, isMissing(minio.ErrorResponse{Code: "AccessDenied"}))
}

func TestFromMinIO(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	got := fromMinIO("envelopes/env-1/archive.json", minio.ObjectInfo{
		Size:         42,
		ETag:         "abc",
		ContentType:  "application/json",
		LastModified: at,
		UserMetadata: map[string]string{"envelope-id": "env-1"},
	})

	assert.Equal(t, ObjectInfo{
		Key:          "envelopes/env-1/archive.json",
		Size:         42,
		ETag:         "abc",
		ContentType:  "application/json",
		LastModified: at,
		Metadata:     map[string]string{"envelope-id": "env-1"},
	}, got)
}
