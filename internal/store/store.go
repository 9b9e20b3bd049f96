// Package store persists finished transcripts.
//
// A [Sink] receives one [Record] per recognized recording or listening
// session. [FileSink] writes the plain-text layout next to the audio file;
// [PostgresSink] keeps a searchable history in PostgreSQL.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/MrWong99/voxpi/pkg/transcript"
)

// Record is one finished transcript and where it came from.
type Record struct {
	// Source names the input: a WAV path, or "mic" for live capture.
	Source string

	// Transcript holds the joined text and its ordered segments.
	Transcript transcript.Transcript

	// CreatedAt is when recognition finished. Zero means now.
	CreatedAt time.Time
}

// Sink persists records. Implementations must be safe for concurrent use.
type Sink interface {
	Save(ctx context.Context, rec Record) error
}

// Multi fans a record out to every sink and joins their errors.
type Multi []Sink

var _ Sink = Multi(nil)

// Save calls Save on every sink, even after one fails.
func (m Multi) Save(ctx context.Context, rec Record) error {
	var errs []error
	for _, s := range m {
		if err := s.Save(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r Record) createdAt() time.Time {
	if r.CreatedAt.IsZero() {
		return time.Now()
	}
	return r.CreatedAt
}
