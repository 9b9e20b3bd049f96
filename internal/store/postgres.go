package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/voxpi/pkg/transcript"
)

// PostgresSink stores transcripts in PostgreSQL. All methods are safe for
// concurrent use.
type PostgresSink struct {
	pool *pgxpool.Pool
}

var _ Sink = (*PostgresSink)(nil)

// NewPostgresSink connects to dsn, verifies the connection and runs
// [Migrate].
func NewPostgresSink(ctx context.Context, dsn string) (*PostgresSink, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("store: parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("store: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresSink{pool: pool}, nil
}

// Close releases the connection pool.
func (s *PostgresSink) Close() { s.pool.Close() }

// Ping checks database connectivity.
func (s *PostgresSink) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// Save implements [Sink]. The transcript row and its segments are written in
// one transaction.
func (s *PostgresSink) Save(ctx context.Context, rec Record) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var id int64
		err := tx.QueryRow(ctx,
			`INSERT INTO transcripts (source, text, created_at) VALUES ($1, $2, $3) RETURNING id`,
			rec.Source, rec.Transcript.Text, rec.createdAt(),
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("store: insert transcript: %w", err)
		}

		rows := make([][]any, len(rec.Transcript.Segments))
		for i, seg := range rec.Transcript.Segments {
			rows[i] = []any{id, seg.Index, seg.Text}
		}
		if _, err := tx.CopyFrom(ctx,
			pgx.Identifier{"transcript_segments"},
			[]string{"transcript_id", "idx", "text"},
			pgx.CopyFromRows(rows),
		); err != nil {
			return fmt.Errorf("store: insert segments: %w", err)
		}
		return nil
	})
}

// Recent returns the newest limit records, newest first.
func (s *PostgresSink) Recent(ctx context.Context, limit int) ([]Record, error) {
	const q = `
		SELECT id, source, text, created_at
		FROM   transcripts
		ORDER  BY created_at DESC, id DESC
		LIMIT  $1`
	return s.query(ctx, "recent", q, limit)
}

// Search performs a Spanish full-text search over transcript text, newest
// first.
func (s *PostgresSink) Search(ctx context.Context, query string, limit int) ([]Record, error) {
	const q = `
		SELECT id, source, text, created_at
		FROM   transcripts
		WHERE  to_tsvector('spanish', text) @@ plainto_tsquery('spanish', $1)
		ORDER  BY created_at DESC, id DESC
		LIMIT  $2`
	return s.query(ctx, "search", q, query, limit)
}

func (s *PostgresSink) query(ctx context.Context, op, q string, args ...any) ([]Record, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: %s: %w", op, err)
	}
	type row struct {
		id  int64
		rec Record
	}
	found, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (row, error) {
		var out row
		err := r.Scan(&out.id, &out.rec.Source, &out.rec.Transcript.Text, &out.rec.CreatedAt)
		return out, err
	})
	if err != nil {
		return nil, fmt.Errorf("store: %s: scan: %w", op, err)
	}

	ids := make([]int64, len(found))
	for i, f := range found {
		ids[i] = f.id
	}
	segs, err := s.segments(ctx, ids)
	if err != nil {
		return nil, err
	}

	recs := make([]Record, len(found))
	for i, f := range found {
		f.rec.Transcript.Segments = segs[f.id]
		recs[i] = f.rec
	}
	return recs, nil
}

// segmentRow is one transcript_segments row.
type segmentRow struct {
	transcriptID int64
	seg          transcript.Segment
}

// segments loads the segments of all ids in one round trip, grouped by
// transcript in index order.
func (s *PostgresSink) segments(ctx context.Context, ids []int64) (map[int64][]transcript.Segment, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT transcript_id, idx, text
		FROM   transcript_segments
		WHERE  transcript_id = ANY($1)
		ORDER  BY transcript_id, idx`, ids)
	if err != nil {
		return nil, fmt.Errorf("store: load segments: %w", err)
	}
	found, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (segmentRow, error) {
		var out segmentRow
		err := r.Scan(&out.transcriptID, &out.seg.Index, &out.seg.Text)
		return out, err
	})
	if err != nil {
		return nil, fmt.Errorf("store: load segments: %w", err)
	}
	return groupSegments(found), nil
}

func groupSegments(rows []segmentRow) map[int64][]transcript.Segment {
	out := make(map[int64][]transcript.Segment)
	for _, r := range rows {
		out[r.transcriptID] = append(out[r.transcriptID], r.seg)
	}
	return out
}
