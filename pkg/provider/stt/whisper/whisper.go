// Package whisper implements stt.Recognizer on top of whisper.cpp.
//
// whisper.cpp is a batch engine: it transcribes a complete clip and has no
// notion of partial hypotheses. The [Recognizer] therefore buffers incoming
// frames in a [Segmenter], which commits an utterance after a short stretch
// of trailing silence. Each committed utterance is transcribed by an
// [Engine] and Accept reports it as completed. PartialResult is always "".
//
// Two engines are provided: [NativeEngine] links whisper.cpp through its CGO
// bindings, and [ServerEngine] posts WAV clips to a running whisper-server.
//
// Usage:
//
//	eng, err := whisper.LoadNative("ggml-base.bin", whisper.WithLanguage("es"))
//	rec := whisper.New(ctx, eng)
//	defer rec.Close()
//	tr, err := transcript.Run(ctx, src, rec)
package whisper

import (
	"context"
	"log/slog"
	"time"

	"github.com/MrWong99/voxpi/pkg/audio"
	"github.com/MrWong99/voxpi/pkg/provider/stt"
)

const (
	engineName      = "whisper"
	defaultLanguage = "es"
)

// Engine transcribes one complete clip of 16-bit mono PCM.
type Engine interface {
	Transcribe(ctx context.Context, pcm []byte, sampleRate int) (string, error)
	Close() error
}

// Option is a functional option for configuring a Recognizer.
type Option func(*Recognizer)

// WithSampleRate sets the sample rate of the fed PCM. Defaults to 16000.
func WithSampleRate(hz int) Option {
	return func(r *Recognizer) { r.seg.SampleRate = hz }
}

// WithRMSThreshold sets the energy level below which a frame counts as
// silence.
func WithRMSThreshold(rms float64) Option {
	return func(r *Recognizer) { r.seg.Threshold = rms }
}

// WithSilenceWindow sets the trailing silence that commits an utterance.
func WithSilenceWindow(d time.Duration) Option {
	return func(r *Recognizer) { r.seg.SilenceWindow = d }
}

// WithMaxUtterance caps the buffered speech per utterance. Zero disables
// the cap.
func WithMaxUtterance(d time.Duration) Option {
	return func(r *Recognizer) { r.seg.MaxUtterance = d }
}

// Recognizer is a whisper.cpp-backed stt.Recognizer.
type Recognizer struct {
	ctx    context.Context
	engine Engine
	seg    *Segmenter

	last   string
	closed bool
}

// New returns a Recognizer transcribing through engine. ctx bounds every
// inference call. The Recognizer takes ownership of engine and closes it on
// Close.
func New(ctx context.Context, engine Engine, opts ...Option) *Recognizer {
	r := &Recognizer{
		ctx:    ctx,
		engine: engine,
		seg:    NewSegmenter(stt.DefaultFormat.SampleRate),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Accept buffers frame and, when it commits an utterance, transcribes it.
func (r *Recognizer) Accept(frame []byte) (bool, error) {
	if r.closed {
		return false, stt.ErrClosed
	}
	pcm, ok := r.seg.Push(frame)
	if !ok {
		return false, nil
	}
	text, err := r.transcribe("accept", pcm)
	if err != nil {
		return false, err
	}
	r.last = text
	return true, nil
}

// Result returns the transcription of the last committed utterance.
func (r *Recognizer) Result() (string, error) {
	if r.closed {
		return "", stt.ErrClosed
	}
	return r.last, nil
}

// PartialResult always returns "": whisper.cpp has no partial hypotheses.
func (r *Recognizer) PartialResult() (string, error) {
	if r.closed {
		return "", stt.ErrClosed
	}
	return "", nil
}

// FinalResult transcribes any speech still buffered.
func (r *Recognizer) FinalResult() (string, error) {
	if r.closed {
		return "", stt.ErrClosed
	}
	pcm := r.seg.Flush()
	if len(pcm) == 0 {
		return "", nil
	}
	return r.transcribe("final result", pcm)
}

// Close releases the engine.
func (r *Recognizer) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.engine.Close()
}

func (r *Recognizer) transcribe(op string, pcm []byte) (string, error) {
	start := time.Now()
	text, err := r.engine.Transcribe(r.ctx, pcm, r.seg.SampleRate)
	if err != nil {
		return "", &stt.RecognizerError{Engine: engineName, Op: op, Err: err}
	}
	slog.Debug("whisper: utterance transcribed",
		"audio", audio.ChunkDuration(pcm, r.seg.SampleRate, 1),
		"took", time.Since(start),
		"chars", len(text),
	)
	return text, nil
}

var _ stt.Recognizer = (*Recognizer)(nil)
