// Package redis stores two-factor tokens in Redis, one key per (envelope, recipient).
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"signapi/internal/model"
	"signapi/internal/repository"
)

// expiredRetention keeps an expired token readable so validation can report
// "expired" rather than "not issued".
const expiredRetention = 24 * time.Hour

// TwoFactorRedis implements repository.TwoFactorRepository. Overwriting the key
// on issue revokes the previous token.
type TwoFactorRedis struct {
	rdb goredis.Cmdable
	now func() time.Time
}

func NewTwoFactorRedis(rdb goredis.Cmdable) *TwoFactorRedis {
	return &TwoFactorRedis{rdb: rdb, now: time.Now}
}

var _ repository.TwoFactorRepository = (*TwoFactorRedis)(nil)

// Key returns the redis key of the active token.
func Key(envelopeID string, recipientID int64) string {
	return fmt.Sprintf("2fa:%s:%d", envelopeID, recipientID)
}

func (r *TwoFactorRedis) Issue(ctx context.Context, token *model.TwoFactorToken) (*model.TwoFactorToken, error) {
	out := *token
	out.ID = token.CreatedAt.UnixNano()
	b, err := json.Marshal(storedToken{
		ID:        out.ID,
		CodeHash:  out.CodeHash,
		ExpiresAt: out.ExpiresAt,
		CreatedAt: out.CreatedAt,
	})
	if err != nil {
		return nil, err
	}
	ttl := out.ExpiresAt.Sub(r.now()) + expiredRetention
	if err := r.rdb.Set(ctx, Key(out.EnvelopeID, out.RecipientID), string(b), ttl).Err(); err != nil {
		return nil, fmt.Errorf("store two-factor token: %w", err)
	}
	return &out, nil
}

func (r *TwoFactorRedis) Active(ctx context.Context, envelopeID string, recipientID int64) (*model.TwoFactorToken, error) {
	raw, err := r.rdb.Get(ctx, Key(envelopeID, recipientID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("load two-factor token: %w", err)
	}
	var st storedToken
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("decode two-factor token: %w", err)
	}
	return &model.TwoFactorToken{
		ID:          st.ID,
		EnvelopeID:  envelopeID,
		RecipientID: recipientID,
		CodeHash:    st.CodeHash,
		ExpiresAt:   st.ExpiresAt,
		CreatedAt:   st.CreatedAt,
	}, nil
}

type storedToken struct {
	ID        int64     `json:"id"`
	CodeHash  string    `json:"code_hash"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}
