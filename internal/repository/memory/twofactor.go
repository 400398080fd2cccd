package memory

import (
	"context"
	"sync"

	"signapi/internal/model"
	"signapi/internal/repository"
)

type twoFactorKey struct {
	envelopeID  string
	recipientID int64
}

// TwoFactorStore keeps the active token per (envelope, recipient) in memory.
type TwoFactorStore struct {
	mu     sync.Mutex
	seq    int64
	active map[twoFactorKey]model.TwoFactorToken
}

func NewTwoFactorStore() *TwoFactorStore {
	return &TwoFactorStore{active: make(map[twoFactorKey]model.TwoFactorToken)}
}

var _ repository.TwoFactorRepository = (*TwoFactorStore)(nil)

// Issue replaces the active token, which revokes the previous one.
func (s *TwoFactorStore) Issue(_ context.Context, token *model.TwoFactorToken) (*model.TwoFactorToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	out := *token
	out.ID = s.seq
	s.active[twoFactorKey{token.EnvelopeID, token.RecipientID}] = out
	return &out, nil
}

func (s *TwoFactorStore) Active(_ context.Context, envelopeID string, recipientID int64) (*model.TwoFactorToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.active[twoFactorKey{envelopeID, recipientID}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}
