package finalize

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// NewServer builds the asynq worker serving finalize tasks with a. A nil rec
// leaves the reconcile sweep unhandled.
func NewServer(redisOpt asynq.RedisConnOpt, concurrency int, a *Archiver, rec *Reconciler, log *zap.Logger) (*asynq.Server, *asynq.ServeMux) {
	if concurrency <= 0 {
		concurrency = 10
	}
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency:     concurrency,
		Queues:          map[string]int{QueueFinalize: 1},
		Logger:          &asynqLogger{log: log.Sugar()},
		ShutdownTimeout: shutdownTimeout,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			log.Error("finalize task failed", zap.String("type", task.Type()), zap.Error(err))
		}),
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeFinalizeEnvelope, a.HandleFinalize)
	if rec != nil {
		mux.HandleFunc(TypeReconcile, rec.HandleReconcile)
	}
	return srv, mux
}

// asynqLogger routes asynq's own logs through zap.
type asynqLogger struct {
	log *zap.SugaredLogger
}

func (l *asynqLogger) Debug(args ...any) { l.log.Debug(args...) }
func (l *asynqLogger) Info(args ...any)  { l.log.Info(args...) }
func (l *asynqLogger) Warn(args ...any)  { l.log.Warn(args...) }
func (l *asynqLogger) Error(args ...any) { l.log.Error(args...) }
func (l *asynqLogger) Fatal(args ...any) { l.log.Fatal(fmt.Sprint(args...)) }
