package audio

import (
	"fmt"
	"io"
	"os"

	"github.com/go-audio/wav"

	"github.com/MrWong99/voxpi/pkg/provider/stt"
)

// wavFormatPCM is the WAVE_FORMAT_PCM tag for uncompressed audio.
const wavFormatPCM = 1

// WAVSource is a FrameSource over the data chunk of a WAV file.
type WAVSource struct {
	*ReaderSource
	format stt.Format
	closer io.Closer
}

// OpenWAV opens the WAV file at path and validates that it holds mono,
// 16-bit, uncompressed PCM before any frame is produced. Format violations
// wrap [stt.ErrUnsupportedFormat]; a missing file wraps [os.ErrNotExist].
func OpenWAV(path string, frameBytes int) (*WAVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audio: open %q: %w", path, err)
	}
	src, err := NewWAVSource(f, frameBytes)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("audio: %q: %w", path, err)
	}
	src.closer = f
	return src, nil
}

// NewWAVSource decodes the RIFF header from r and positions it at the PCM
// data. The caller keeps ownership of r.
func NewWAVSource(r io.ReadSeeker, frameBytes int) (*WAVSource, error) {
	dec := wav.NewDecoder(r)
	dec.ReadInfo()
	if err := dec.Err(); err != nil || dec.NumChans == 0 {
		return nil, fmt.Errorf("%w: not a RIFF/WAVE file", stt.ErrUnsupportedFormat)
	}
	if dec.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("%w: compression tag %d (must be uncompressed PCM)", stt.ErrUnsupportedFormat, dec.WavAudioFormat)
	}

	format := stt.Format{
		SampleRate:    int(dec.SampleRate),
		Channels:      int(dec.NumChans),
		BitsPerSample: int(dec.BitDepth),
	}
	if err := format.Validate(); err != nil {
		return nil, err
	}

	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("audio: seek to PCM data: %w", err)
	}
	if dec.PCMChunk == nil {
		return nil, fmt.Errorf("%w: missing data chunk", stt.ErrUnsupportedFormat)
	}

	pcm := io.LimitReader(dec.PCMChunk.R, int64(dec.PCMChunk.Size))
	return &WAVSource{
		ReaderSource: NewReaderSource(pcm, frameBytes),
		format:       format,
	}, nil
}

// Format returns the validated stream format.
func (s *WAVSource) Format() stt.Format { return s.format }

// Close closes the file opened by OpenWAV.
func (s *WAVSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

var _ FrameSource = (*WAVSource)(nil)
