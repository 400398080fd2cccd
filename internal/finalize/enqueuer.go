package finalize

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// TaskEnqueuer is the part of *asynq.Client the Enqueuer needs.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Enqueuer publishes finalize tasks. The envelope id is the asynq task id, so an
// envelope is finalized at most once however often completion is reported.
type Enqueuer struct {
	client TaskEnqueuer
	log    *zap.Logger
}

// NewEnqueuer constructs an Enqueuer on client.
func NewEnqueuer(client TaskEnqueuer, log *zap.Logger) *Enqueuer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Enqueuer{client: client, log: log}
}

// Finalize enqueues the finalize task for envelopeID. A task already queued for
// the same envelope counts as success.
func (e *Enqueuer) Finalize(ctx context.Context, envelopeID string) error {
	task, err := NewFinalizeTask(envelopeID)
	if err != nil {
		return err
	}
	info, err := e.client.EnqueueContext(ctx, task,
		asynq.TaskID(envelopeID),
		asynq.Queue(QueueFinalize),
		asynq.MaxRetry(maxRetry),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		e.log.Info("finalize task already queued", zap.String("envelope_id", envelopeID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("enqueue finalize task: %w", err)
	}
	e.log.Info("finalize task queued",
		zap.String("envelope_id", envelopeID),
		zap.String("task_id", info.ID),
		zap.String("queue", info.Queue),
	)
	return nil
}
