package finalize

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"signapi/internal/repository"
	"signapi/internal/storage"
)

// TypeReconcile is the periodic sweep that re-enqueues finalization for
// completed envelopes whose archive never landed.
const TypeReconcile = "envelope:reconcile"

type finalizeEnqueuer interface {
	Finalize(ctx context.Context, envelopeID string) error
}

// Reconciler catches envelopes that completed while the queue was unreachable.
type Reconciler struct {
	store    repository.Store
	objects  storage.Storage
	enqueuer finalizeEnqueuer
	lookback time.Duration
	log      *zap.Logger
	now      func() time.Time
}

// NewReconciler constructs a Reconciler that inspects envelopes completed
// within lookback.
func NewReconciler(store repository.Store, objects storage.Storage, enqueuer finalizeEnqueuer, lookback time.Duration, log *zap.Logger) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{store: store, objects: objects, enqueuer: enqueuer, lookback: lookback, log: log, now: time.Now}
}

// HandleReconcile is the asynq handler for TypeReconcile.
func (r *Reconciler) HandleReconcile(ctx context.Context, _ *asynq.Task) error {
	n, err := r.Reconcile(ctx)
	if n > 0 {
		r.log.Info("re-enqueued unarchived envelopes", zap.Int("count", n))
	}
	return err
}

// Reconcile enqueues a finalize task for every recently completed envelope
// without an archive and returns how many it enqueued. One failing envelope
// does not stop the sweep.
func (r *Reconciler) Reconcile(ctx context.Context) (int, error) {
	since := r.now().UTC().Add(-r.lookback)

	var ids []string
	err := r.store.InTx(ctx, func(ctx context.Context, q repository.Queries) error {
		var err error
		ids, err = q.ListCompletedSince(ctx, since)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("list completed envelopes: %w", err)
	}

	var (
		enqueued int
		errs     []error
	)
	for _, id := range ids {
		_, err := r.objects.Stat(ctx, ArchiveKey(id))
		if err == nil {
			continue
		}
		if !errors.Is(err, storage.ErrObjectNotFound) {
			errs = append(errs, fmt.Errorf("stat %s: %w", id, err))
			continue
		}
		if err := r.enqueuer.Finalize(ctx, id); err != nil {
			errs = append(errs, err)
			continue
		}
		enqueued++
	}
	return enqueued, errors.Join(errs...)
}

// NewScheduler registers the reconcile sweep every interval.
func NewScheduler(redisOpt asynq.RedisConnOpt, interval time.Duration, log *zap.Logger) (*asynq.Scheduler, error) {
	sched := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
		Location: time.UTC,
		Logger:   &asynqLogger{log: log.Sugar()},
	})
	cronspec := fmt.Sprintf("@every %s", interval)
	if _, err := sched.Register(cronspec, asynq.NewTask(TypeReconcile, nil),
		asynq.Queue(QueueFinalize),
		asynq.MaxRetry(0),
		asynq.Unique(interval),
	); err != nil {
		return nil, fmt.Errorf("register reconcile sweep: %w", err)
	}
	return sched, nil
}
