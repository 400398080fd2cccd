package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"signapi/internal/apperr"
	"signapi/internal/model"
	"signapi/internal/repository"
	"signapi/internal/signing"
)

const twoFactorCodeDigits = 6

// IssuedTwoFactor is the result of issuing a code. Code is only handed to the
// notifier and to tests; it is never serialized.
type IssuedTwoFactor struct {
	Code      string    `json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// TwoFactorService issues and validates one-time codes scoped to a recipient of an envelope.
type TwoFactorService interface {
	signing.TwoFactorVerifier

	// Issue creates a new code for the recipient behind token, revoking any previous one.
	Issue(ctx context.Context, token string, actor Actor) (*IssuedTwoFactor, error)
}

type twoFactorService struct {
	store    repository.Store
	tokens   repository.TwoFactorRepository
	notifier Notifier
	ttl      time.Duration
	log      *zap.Logger
	now      func() time.Time
}

// NewTwoFactorService constructs a new TwoFactorService.
func NewTwoFactorService(store repository.Store, tokens repository.TwoFactorRepository, notifier Notifier, ttl time.Duration, log *zap.Logger, opts ...Option) TwoFactorService {
	o := buildOptions(opts)
	if log == nil {
		log = zap.NewNop()
	}
	return &twoFactorService{store: store, tokens: tokens, notifier: notifier, ttl: ttl, log: log, now: o.now}
}

func (s *twoFactorService) Issue(ctx context.Context, token string, actor Actor) (*IssuedTwoFactor, error) {
	ctx, span := tracer.Start(ctx, "TwoFactorService.Issue")
	defer span.End()

	var recipient *model.Recipient
	err := s.store.InTx(ctx, func(ctx context.Context, q repository.Queries) error {
		r, err := q.RecipientByToken(ctx, token)
		if err != nil {
			return notFound(err, "recipient")
		}
		env, err := q.GetEnvelope(ctx, r.EnvelopeID, repository.LockNone)
		if err != nil {
			return notFound(err, "document")
		}
		if env.IsDeleted() || env.Status != model.EnvelopeStatusPending && env.Type != model.EnvelopeTypeTemplate {
			return apperr.InvalidRequest("document must be pending for signing")
		}
		if r.IsSigned() {
			return apperr.InvalidRequest("recipient has already signed")
		}
		if r.IsExpired(s.now()) {
			return apperr.Expired("signing link has expired")
		}
		recipient = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	code, err := generateCode(twoFactorCodeDigits)
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash code: %w", err)
	}
	now := s.now().UTC()
	issued, err := s.tokens.Issue(ctx, &model.TwoFactorToken{
		EnvelopeID:  recipient.EnvelopeID,
		RecipientID: recipient.ID,
		CodeHash:    string(hash),
		ExpiresAt:   now.Add(s.ttl),
		CreatedAt:   now,
	})
	if err != nil {
		return nil, fmt.Errorf("issue two-factor token: %w", err)
	}

	err = s.store.InTx(ctx, func(ctx context.Context, q repository.Queries) error {
		return q.AppendAudit(ctx, newAuditFact(model.AuditTwoFactorTokenIssued, recipient.EnvelopeID, actor, recipient, now, map[string]any{
			"recipientId": recipient.ID,
			"expiresAt":   issued.ExpiresAt,
		}))
	})
	if err != nil {
		s.log.Error("audit two-factor issue failed", zap.String("envelope_id", recipient.EnvelopeID), zap.Error(err))
	}

	if s.notifier != nil {
		if err := s.notifier.SendTwoFactorCode(ctx, recipient, code, issued.ExpiresAt); err != nil {
			return nil, fmt.Errorf("send two-factor code: %w", err)
		}
	}
	return &IssuedTwoFactor{Code: code, ExpiresAt: issued.ExpiresAt}, nil
}

// Verify checks code against the active token. Tokens stay valid until they
// expire or a new one is issued.
func (s *twoFactorService) Verify(ctx context.Context, envelopeID string, recipientID int64, code string) error {
	tok, err := s.tokens.Active(ctx, envelopeID, recipientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.TwoFactor(apperr.CodeTwoFactorNotIssued, "no two-factor code has been issued")
		}
		return fmt.Errorf("load two-factor token: %w", err)
	}
	if !s.now().Before(tok.ExpiresAt) {
		return apperr.TwoFactor(apperr.CodeTwoFactorExpired, "two-factor code has expired")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(tok.CodeHash), []byte(code)); err != nil {
		return apperr.TwoFactor(apperr.CodeTwoFactorInvalidCode, "two-factor code is invalid")
	}
	return nil
}

func generateCode(digits int) (string, error) {
	limit := big.NewInt(1)
	for i := 0; i < digits; i++ {
		limit.Mul(limit, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", digits, n.Int64()), nil
}
