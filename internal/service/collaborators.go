package service

import (
	"context"
	"time"

	"signapi/internal/model"
)

// Finalizer is invoked once per envelope, after the envelope commits as COMPLETED.
type Finalizer interface {
	Finalize(ctx context.Context, envelopeID string) error
}

// Notifier delivers messages to recipients.
type Notifier interface {
	NotifyRecipient(ctx context.Context, env *model.Envelope, r *model.Recipient) error
	SendTwoFactorCode(ctx context.Context, r *model.Recipient, code string, expiresAt time.Time) error
}

// Option configures the services in this package.
type Option func(*options)

type options struct {
	now     func() time.Time
	metrics *Metrics
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithMetrics enables domain counters.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}
