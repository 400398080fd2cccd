package service

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"signapi/internal/model"
)

// Actor is the caller of a signing operation: the optional authenticated
// identity plus request metadata recorded on audit facts.
type Actor struct {
	Identity  model.Identity
	IPAddress string
	UserAgent string
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

func newAuditID(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// newAuditFact builds a fact attributed to the acting recipient.
func newAuditFact(kind model.AuditKind, envelopeID string, actor Actor, r *model.Recipient, now time.Time, data map[string]any) *model.AuditFact {
	f := &model.AuditFact{
		ID:         newAuditID(now),
		EnvelopeID: envelopeID,
		Kind:       kind,
		UserID:     actor.Identity.UserID,
		IPAddress:  actor.IPAddress,
		UserAgent:  actor.UserAgent,
		Data:       data,
		CreatedAt:  now,
	}
	if r != nil {
		f.Email = r.Email
		f.Name = r.Name
	}
	if f.Data == nil {
		f.Data = map[string]any{}
	}
	return f
}
