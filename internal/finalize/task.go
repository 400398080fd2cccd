// Package finalize runs the post-completion work of an envelope on an asynq queue.
// Completion enqueues one task per envelope; the worker archives the signed
// envelope to object storage.
package finalize

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

const (
	// TypeFinalizeEnvelope is the asynq task type handled by the worker.
	TypeFinalizeEnvelope = "envelope:finalize"

	// QueueFinalize is the queue finalize tasks are published on.
	QueueFinalize = "finalize"

	maxRetry = 10
)

// Payload is the body of a finalize task.
type Payload struct {
	EnvelopeID string `json:"envelope_id"`
}

// NewFinalizeTask builds the task for envelopeID.
func NewFinalizeTask(envelopeID string) (*asynq.Task, error) {
	b, err := json.Marshal(Payload{EnvelopeID: envelopeID})
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return asynq.NewTask(TypeFinalizeEnvelope, b), nil
}

// redisConnOpt lets asynq share an existing go-redis client.
type redisConnOpt struct {
	client redis.UniversalClient
}

func (r *redisConnOpt) MakeRedisClient() interface{} {
	return r.client
}

// RedisConnOpt wraps rdb for asynq clients and servers.
func RedisConnOpt(rdb redis.UniversalClient) asynq.RedisConnOpt {
	return &redisConnOpt{client: rdb}
}
