// Package audio provides PCM frame sources and sinks for the recognition
// pipeline.
//
// The central abstraction is [FrameSource]: a pull-based producer of
// fixed-size frames of raw 16-bit mono PCM. Sources exist for WAV files
// ([OpenWAV]), arbitrary readers ([NewReaderSource]) and the live microphone
// ([StartCapture]). [Player] is the playback counterpart used for synthesised
// speech.
//
// Sources are owned by a single caller and are not safe for concurrent use.
package audio

import (
	"errors"
	"fmt"
	"io"
)

const (
	// FileFrameBytes is the default frame size when reading recordings.
	FileFrameBytes = 4000

	// CaptureFrameBytes is the default frame size for live microphone input.
	CaptureFrameBytes = 8000
)

// FrameSource produces audio frames one at a time.
type FrameSource interface {
	// ReadFrame returns the next frame. It returns io.EOF once the source is
	// exhausted. The returned slice is owned by the caller.
	ReadFrame() ([]byte, error)

	// Close releases the underlying file, pipe, or process.
	Close() error
}

// ReaderSource cuts an io.Reader of raw PCM into frames.
type ReaderSource struct {
	r          io.Reader
	closer     io.Closer
	frameBytes int
}

// NewReaderSource returns a FrameSource reading frameBytes-sized frames from
// r. frameBytes is rounded down to a whole number of 16-bit samples; values
// below 2 select [FileFrameBytes]. If r implements io.Closer, Close closes it.
func NewReaderSource(r io.Reader, frameBytes int) *ReaderSource {
	frameBytes -= frameBytes % 2
	if frameBytes < 2 {
		frameBytes = FileFrameBytes
	}
	s := &ReaderSource{r: r, frameBytes: frameBytes}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// FrameBytes returns the configured frame size.
func (s *ReaderSource) FrameBytes() int { return s.frameBytes }

// ReadFrame reads up to one frame. The final frame of a stream may be short.
func (s *ReaderSource) ReadFrame() ([]byte, error) {
	buf := make([]byte, s.frameBytes)
	n, err := io.ReadFull(s.r, buf)
	switch {
	case err == nil:
		return buf, nil
	case errors.Is(err, io.ErrUnexpectedEOF):
		return buf[:n], nil
	case errors.Is(err, io.EOF):
		return nil, io.EOF
	default:
		return nil, fmt.Errorf("audio: read frame: %w", err)
	}
}

// Close closes the underlying reader if it is closable.
func (s *ReaderSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

var _ FrameSource = (*ReaderSource)(nil)
