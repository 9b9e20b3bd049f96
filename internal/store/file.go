package store

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// TranscriptSuffix is appended to the source stem to name the output file.
const TranscriptSuffix = "_transcripcion.txt"

// FileSink writes each record to <dir>/<stem>_transcripcion.txt, one segment
// per line. An empty Dir writes next to the source file.
type FileSink struct {
	Dir string
}

var _ Sink = (*FileSink)(nil)

// PathFor returns the output path for source.
func (s *FileSink) PathFor(source string) string {
	base := filepath.Base(source)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	dir := s.Dir
	if dir == "" {
		dir = filepath.Dir(source)
	}
	return filepath.Join(dir, stem+TranscriptSuffix)
}

// Save implements [Sink]. An existing file is overwritten.
func (s *FileSink) Save(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := s.PathFor(rec.Source)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("store: create dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("store: create %s: %w", path, err)
	}

	w := bufio.NewWriter(f)
	for _, seg := range rec.Transcript.Segments {
		w.WriteString(seg.Text)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("store: write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("store: close %s: %w", path, err)
	}
	return nil
}
