package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type migrationStep struct {
	Name string
	SQL  string
}

// sentinelTable is created by the first step; its presence means the schema is in place.
const sentinelTable = "public.envelopes"

var steps = []migrationStep{
	{
		Name: "create_extension_uuid_ossp",
		SQL:  `CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	},
	{
		Name: "create_table_envelopes",
		SQL: `CREATE TABLE IF NOT EXISTS envelopes (
  id                       UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  type                     TEXT        NOT NULL CHECK (type IN ('DOCUMENT', 'TEMPLATE')),
  status                   TEXT        NOT NULL CHECK (status IN ('DRAFT', 'PENDING', 'COMPLETED')),
  title                    TEXT        NOT NULL DEFAULT '',
  template_id              UUID        REFERENCES envelopes (id),
  direct_link_recipient_id BIGINT,
  auth_options             JSONB       NOT NULL DEFAULT '{}',
  document_meta            JSONB       NOT NULL DEFAULT '{}',
  completed_at             TIMESTAMPTZ,
  deleted_at               TIMESTAMPTZ,
  created_at               TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_envelope_items",
		SQL: `CREATE TABLE IF NOT EXISTS envelope_items (
  id          UUID    PRIMARY KEY DEFAULT uuid_generate_v4(),
  envelope_id UUID    NOT NULL REFERENCES envelopes (id) ON DELETE CASCADE,
  title       TEXT    NOT NULL DEFAULT '',
  item_order  INTEGER NOT NULL DEFAULT 0
);`,
	},
	{
		Name: "create_table_recipients",
		SQL: `CREATE TABLE IF NOT EXISTS recipients (
  id             BIGSERIAL   PRIMARY KEY,
  envelope_id    UUID        NOT NULL REFERENCES envelopes (id) ON DELETE CASCADE,
  token          TEXT        NOT NULL UNIQUE,
  email          TEXT        NOT NULL DEFAULT '',
  name           TEXT        NOT NULL DEFAULT '',
  role           TEXT        NOT NULL,
  signing_order  INTEGER,
  signing_status TEXT        NOT NULL DEFAULT 'NOT_SIGNED' CHECK (signing_status IN ('NOT_SIGNED', 'SIGNED')),
  signed_at      TIMESTAMPTZ,
  auth_options   JSONB       NOT NULL DEFAULT '{}',
  expires_at     TIMESTAMPTZ
);`,
	},
	{
		Name: "create_table_fields",
		SQL: `CREATE TABLE IF NOT EXISTS fields (
  id               BIGSERIAL        PRIMARY KEY,
  envelope_id      UUID             NOT NULL REFERENCES envelopes (id) ON DELETE CASCADE,
  envelope_item_id UUID             REFERENCES envelope_items (id) ON DELETE CASCADE,
  recipient_id     BIGINT           NOT NULL REFERENCES recipients (id) ON DELETE CASCADE,
  type             TEXT             NOT NULL,
  page             INTEGER          NOT NULL DEFAULT 1,
  position_x       DOUBLE PRECISION NOT NULL DEFAULT 0,
  position_y       DOUBLE PRECISION NOT NULL DEFAULT 0,
  width            DOUBLE PRECISION NOT NULL DEFAULT 0,
  height           DOUBLE PRECISION NOT NULL DEFAULT 0,
  field_meta       JSONB            NOT NULL DEFAULT '{}',
  custom_text      TEXT             NOT NULL DEFAULT '',
  inserted         BOOLEAN          NOT NULL DEFAULT false
);`,
	},
	{
		Name: "create_table_signatures",
		SQL: `CREATE TABLE IF NOT EXISTS signatures (
  id                        BIGSERIAL   PRIMARY KEY,
  field_id                  BIGINT      NOT NULL UNIQUE REFERENCES fields (id) ON DELETE CASCADE,
  recipient_id              BIGINT      NOT NULL REFERENCES recipients (id) ON DELETE CASCADE,
  signature_image_as_base64 TEXT        NOT NULL DEFAULT '',
  typed_signature           TEXT        NOT NULL DEFAULT '',
  created_at                TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_audit_logs",
		SQL: `CREATE TABLE IF NOT EXISTS audit_logs (
  id          TEXT        PRIMARY KEY,
  envelope_id UUID        NOT NULL REFERENCES envelopes (id) ON DELETE CASCADE,
  kind        TEXT        NOT NULL,
  user_id     TEXT        NOT NULL DEFAULT '',
  email       TEXT        NOT NULL DEFAULT '',
  name        TEXT        NOT NULL DEFAULT '',
  ip_address  TEXT        NOT NULL DEFAULT '',
  user_agent  TEXT        NOT NULL DEFAULT '',
  data        JSONB       NOT NULL DEFAULT '{}',
  created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_two_factor_tokens",
		SQL: `CREATE TABLE IF NOT EXISTS two_factor_tokens (
  id           BIGSERIAL   PRIMARY KEY,
  envelope_id  UUID        NOT NULL REFERENCES envelopes (id) ON DELETE CASCADE,
  recipient_id BIGINT      NOT NULL REFERENCES recipients (id) ON DELETE CASCADE,
  code_hash    TEXT        NOT NULL,
  expires_at   TIMESTAMPTZ NOT NULL,
  revoked_at   TIMESTAMPTZ,
  created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_recipients_envelope_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_recipients_envelope_id ON recipients (envelope_id);`,
	},
	{
		Name: "create_index_fields_envelope_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_fields_envelope_id ON fields (envelope_id);`,
	},
	{
		Name: "create_index_audit_logs_envelope_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_audit_logs_envelope_id ON audit_logs (envelope_id, created_at);`,
	},
	{
		Name: "create_index_two_factor_tokens_active",
		SQL: `CREATE UNIQUE INDEX IF NOT EXISTS idx_two_factor_tokens_active
  ON two_factor_tokens (envelope_id, recipient_id) WHERE revoked_at IS NULL;`,
	},
}

// EnsureMigrated checks if the envelopes table exists and runs migrations if it doesn't.
func EnsureMigrated(ctx context.Context, db *sql.DB, log *zap.Logger, dbHost string) error {
	start := time.Now()
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("component", "database"), zap.String("db_host", dbHost))

	log.Info("db_migration_check", zap.String("status", "starting"))

	var exists bool
	query := "SELECT to_regclass('" + sentinelTable + "') IS NOT NULL"
	if err := db.QueryRowContext(ctx, query).Scan(&exists); err != nil {
		log.Error("db_migration_failed",
			zap.String("status", "error"),
			zap.Error(err),
			zap.Duration("duration", time.Since(start)),
		)
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.Info("db_migration_skip",
			zap.String("status", "success"),
			zap.String("msg", "schema already exists, skipping migration"),
			zap.Duration("duration", time.Since(start)),
		)
		return nil
	}

	log.Info("db_migration_start", zap.String("status", "in_progress"), zap.Int("steps", len(steps)))

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error("db_migration_failed",
				zap.String("status", "error"),
				zap.String("migration_step", step.Name),
				zap.Error(err),
				zap.Duration("duration", time.Since(start)),
				zap.Duration("step_duration", time.Since(stepStart)),
			)
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		log.Info("db_migration_step",
			zap.String("status", "success"),
			zap.String("migration_step", step.Name),
			zap.Duration("step_duration", time.Since(stepStart)),
		)
	}

	log.Info("db_migration_success",
		zap.String("status", "success"),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}
