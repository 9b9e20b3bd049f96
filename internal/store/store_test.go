package store_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/voxpi/internal/store"
	"github.com/MrWong99/voxpi/pkg/transcript"
)

func sampleRecord(source string) store.Record {
	return store.Record{
		Source: source,
		Transcript: transcript.Transcript{
			Text: "hola mundo adiós",
			Segments: []transcript.Segment{
				{Index: 0, Text: "hola mundo"},
				{Index: 1, Text: "adiós"},
			},
		},
		CreatedAt: time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC),
	}
}

func TestFileSink_PathFor(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		dir    string
		source string
		want   string
	}{
		{name: "next to source", source: "/data/grabacion.wav", want: "/data/grabacion_transcripcion.txt"},
		{name: "explicit dir", dir: "/out", source: "/data/grabacion.wav", want: "/out/grabacion_transcripcion.txt"},
		{name: "mic", dir: "/out", source: "mic", want: "/out/mic_transcripcion.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := &store.FileSink{Dir: tt.dir}
			if got := s.PathFor(tt.source); got != tt.want {
				t.Errorf("want %q, got %q", tt.want, got)
			}
		})
	}
}

func TestFileSink_Save(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	s := &store.FileSink{Dir: filepath.Join(dir, "nested")}

	if err := s.Save(context.Background(), sampleRecord("audio/prueba.wav")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dir, "nested", "prueba_transcripcion.txt"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if want := "hola mundo\nadiós\n"; string(got) != want {
		t.Errorf("want %q, got %q", want, got)
	}
}

func TestFileSink_SaveEmptyTranscript(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	s := &store.FileSink{Dir: dir}
	if err := s.Save(context.Background(), store.Record{Source: "silencio.wav"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	info, err := os.Stat(filepath.Join(dir, "silencio_transcripcion.txt"))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size() != 0 {
		t.Errorf("expected empty file, got %d bytes", info.Size())
	}
}

func TestFileSink_Cancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := &store.FileSink{Dir: t.TempDir()}
	if err := s.Save(ctx, sampleRecord("a.wav")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

type recordingSink struct {
	saved []store.Record
	err   error
}

func (s *recordingSink) Save(_ context.Context, rec store.Record) error {
	s.saved = append(s.saved, rec)
	return s.err
}

func TestMulti_SavesToAllAndJoinsErrors(t *testing.T) {
	t.Parallel()
	errA := errors.New("disk full")
	a := &recordingSink{err: errA}
	b := &recordingSink{}

	err := store.Multi{a, b}.Save(context.Background(), sampleRecord("x.wav"))
	if !errors.Is(err, errA) {
		t.Fatalf("expected joined error to contain errA, got %v", err)
	}
	if len(a.saved) != 1 || len(b.saved) != 1 {
		t.Errorf("expected both sinks called once, got %d and %d", len(a.saved), len(b.saved))
	}
}

// ── PostgreSQL integration ───────────────────────────────────────────────────

// testDSN skips unless VOXPI_TEST_POSTGRES_DSN is set.
func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("VOXPI_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("VOXPI_TEST_POSTGRES_DSN not set, skipping PostgreSQL integration tests")
	}
	return dsn
}

func newTestSink(t *testing.T) *store.PostgresSink {
	t.Helper()
	dsn := testDSN(t)
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	defer pool.Close()
	for _, stmt := range []string{
		"DROP TABLE IF EXISTS transcript_segments CASCADE",
		"DROP TABLE IF EXISTS transcripts CASCADE",
	} {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			t.Fatalf("drop schema: %v", err)
		}
	}

	sink, err := store.NewPostgresSink(ctx, dsn)
	if err != nil {
		t.Fatalf("NewPostgresSink: %v", err)
	}
	t.Cleanup(sink.Close)
	return sink
}

func TestPostgresSink_SaveAndRecent(t *testing.T) {
	sink := newTestSink(t)
	ctx := context.Background()

	first := sampleRecord("uno.wav")
	second := sampleRecord("dos.wav")
	second.CreatedAt = first.CreatedAt.Add(time.Minute)
	second.Transcript = transcript.Transcript{
		Text:     "enciende la luz",
		Segments: []transcript.Segment{{Index: 0, Text: "enciende la luz"}},
	}

	for _, rec := range []store.Record{first, second} {
		if err := sink.Save(ctx, rec); err != nil {
			t.Fatalf("Save(%s): %v", rec.Source, err)
		}
	}

	recs, err := sink.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].Source != "dos.wav" {
		t.Errorf("expected newest first, got %q", recs[0].Source)
	}
	if got := recs[0].Transcript.Segments; len(got) != 1 || got[0].Text != "enciende la luz" {
		t.Errorf("segments of another transcript leaked into %q: %+v", recs[0].Source, got)
	}
	if got := recs[1].Transcript.Segments; len(got) != 2 || got[1].Text != "adiós" {
		t.Errorf("unexpected segments %+v", got)
	}
}

func TestPostgresSink_Search(t *testing.T) {
	sink := newTestSink(t)
	ctx := context.Background()

	if err := sink.Save(ctx, sampleRecord("uno.wav")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	recs, err := sink.Search(ctx, "mundo", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(recs) != 1 || recs[0].Source != "uno.wav" {
		t.Errorf("unexpected search result %+v", recs)
	}

	none, err := sink.Search(ctx, "bicicleta", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no results, got %d", len(none))
	}
}

func TestPostgresSink_MigrateIdempotent(t *testing.T) {
	dsn := testDSN(t)
	ctx := context.Background()
	for range 2 {
		sink, err := store.NewPostgresSink(ctx, dsn)
		if err != nil {
			t.Fatalf("NewPostgresSink: %v", err)
		}
		sink.Close()
	}
}
