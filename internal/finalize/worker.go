package finalize

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"signapi/internal/model"
	"signapi/internal/repository"
	"signapi/internal/storage"
)

// Archive is the snapshot stored for a completed envelope. Recipient tokens are
// never serialized.
type Archive struct {
	Envelope   *model.Envelope   `json:"envelope"`
	Recipients []model.Recipient `json:"recipients"`
	Fields     []model.Field     `json:"fields"`
	Audit      []model.AuditFact `json:"audit"`
	ArchivedAt time.Time         `json:"archived_at"`
}

// ArchiveKey is the object key of envelopeID's archive.
func ArchiveKey(envelopeID string) string {
	return "envelopes/" + envelopeID + "/archive.json"
}

// Archiver writes completed envelopes to object storage.
type Archiver struct {
	store   repository.Store
	objects storage.Storage
	log     *zap.Logger
	now     func() time.Time
}

// NewArchiver constructs an Archiver.
func NewArchiver(store repository.Store, objects storage.Storage, log *zap.Logger) *Archiver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Archiver{store: store, objects: objects, log: log, now: time.Now}
}

// HandleFinalize is the asynq handler for TypeFinalizeEnvelope.
func (a *Archiver) HandleFinalize(ctx context.Context, t *asynq.Task) error {
	var p Payload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	if p.EnvelopeID == "" {
		return fmt.Errorf("payload has no envelope id: %w", asynq.SkipRetry)
	}
	return a.Archive(ctx, p.EnvelopeID)
}

// Archive stores the snapshot of a COMPLETED envelope. It is idempotent: an
// existing archive is left untouched.
func (a *Archiver) Archive(ctx context.Context, envelopeID string) error {
	key := ArchiveKey(envelopeID)
	log := a.log.With(zap.String("envelope_id", envelopeID), zap.String("key", key))

	_, err := a.objects.Stat(ctx, key)
	if err == nil {
		log.Info("envelope already archived")
		return nil
	}
	if !errors.Is(err, storage.ErrObjectNotFound) {
		return err
	}

	var snap Archive
	err = a.store.InTx(ctx, func(ctx context.Context, q repository.Queries) error {
		env, err := repository.LoadEnvelope(ctx, q, envelopeID, repository.LockNone, repository.LockNone)
		if err != nil {
			return err
		}
		audit, err := q.ListAudit(ctx, envelopeID)
		if err != nil {
			return err
		}
		snap = Archive{Recipients: env.Recipients, Fields: env.Fields, Audit: audit}
		env.Recipients, env.Fields = nil, nil
		snap.Envelope = env
		return nil
	})
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("envelope %s not found: %w", envelopeID, asynq.SkipRetry)
	}
	if err != nil {
		return fmt.Errorf("load envelope: %w", err)
	}
	if snap.Envelope.Status != model.EnvelopeStatusCompleted {
		return fmt.Errorf("envelope %s is %s, not COMPLETED: %w", envelopeID, snap.Envelope.Status, asynq.SkipRetry)
	}
	snap.ArchivedAt = a.now().UTC()

	body, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal archive: %w", err)
	}
	info, err := a.objects.Put(ctx, key, bytes.NewReader(body), storage.PutObjectOptions{
		Size:        int64(len(body)),
		ContentType: "application/json",
		Metadata:    map[string]string{"envelope-id": envelopeID},
	})
	if err != nil {
		return fmt.Errorf("upload archive: %w", err)
	}
	log.Info("envelope archived", zap.Int64("size", info.Size), zap.String("etag", info.ETag))
	return nil
}
