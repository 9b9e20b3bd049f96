package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlTranscripts = `
CREATE TABLE IF NOT EXISTS transcripts (
    id          BIGSERIAL    PRIMARY KEY,
    source      TEXT         NOT NULL,
    text        TEXT         NOT NULL,
    created_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_transcripts_created_at
    ON transcripts (created_at);

CREATE INDEX IF NOT EXISTS idx_transcripts_fts
    ON transcripts USING GIN (to_tsvector('spanish', text));

CREATE TABLE IF NOT EXISTS transcript_segments (
    transcript_id  BIGINT  NOT NULL REFERENCES transcripts (id) ON DELETE CASCADE,
    idx            INT     NOT NULL,
    text           TEXT    NOT NULL,
    PRIMARY KEY (transcript_id, idx)
);
`

// Migrate creates the transcript tables if they do not exist. It is
// idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, ddlTranscripts); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}
