// Package vosk implements stt.Recognizer on top of the Vosk/Kaldi offline
// speech recognition engine.
//
// Vosk reports results as small JSON documents: {"text": "..."} for a
// completed utterance and {"partial": "..."} for the hypothesis in progress.
// This package decodes those payloads so callers only ever see plain text.
//
// The Vosk shared library (libvosk.so) must be available at link and run
// time. Models are directories downloaded from https://alphacephei.com/vosk/models,
// e.g. "vosk-model-small-es-0.42" for Spanish.
package vosk

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	vosklib "github.com/alphacep/vosk-api/go"

	"github.com/MrWong99/voxpi/pkg/provider/stt"
)

const engineName = "vosk"

// Binding is the subset of the Vosk recognizer API used by [Recognizer].
// It exists so the JSON handling can be exercised without libvosk.
type Binding interface {
	// AcceptWaveform returns 1 when an utterance completed, 0 when it did
	// not, and -1 on a decoding error.
	AcceptWaveform(frame []byte) int
	Result() string
	PartialResult() string
	FinalResult() string
	Free()
}

// Option is a functional option for configuring a Recognizer.
type Option func(*config)

type config struct {
	sampleRate float64
	words      bool
	logLevel   int
	setLog     bool
}

// WithSampleRate sets the sample rate of the PCM that will be fed to the
// recognizer. Defaults to 16000 Hz.
func WithSampleRate(hz int) Option {
	return func(c *config) { c.sampleRate = float64(hz) }
}

// WithWords enables per-word timing in Vosk results. The extra fields are
// ignored by this package but cost decoding time, so it is off by default.
func WithWords(enabled bool) Option {
	return func(c *config) { c.words = enabled }
}

// WithLogLevel sets the global Kaldi log level. -1 silences it.
func WithLogLevel(level int) Option {
	return func(c *config) {
		c.logLevel = level
		c.setLog = true
	}
}

// Model is a loaded Vosk model directory. A model may back several
// recognizers and must outlive all of them.
type Model struct {
	m    *vosklib.VoskModel
	once sync.Once
}

// LoadModel loads the Vosk model in dir. A missing directory is reported as
// [stt.ErrModelNotFound] before libvosk is touched.
func LoadModel(dir string) (*Model, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("vosk: %w: %q", stt.ErrModelNotFound, dir)
	}
	m, err := vosklib.NewModel(dir)
	if err != nil {
		return nil, fmt.Errorf("vosk: load model %q: %w", dir, err)
	}
	return &Model{m: m}, nil
}

// Close frees the model.
func (m *Model) Close() error {
	m.once.Do(func() { m.m.Free() })
	return nil
}

// New creates a recognizer backed by model.
func New(model *Model, opts ...Option) (*Recognizer, error) {
	cfg := config{sampleRate: float64(stt.DefaultFormat.SampleRate)}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.setLog {
		vosklib.SetLogLevel(cfg.logLevel)
	}
	rec, err := vosklib.NewRecognizer(model.m, cfg.sampleRate)
	if err != nil {
		return nil, fmt.Errorf("vosk: create recognizer: %w", err)
	}
	if cfg.words {
		rec.SetWords(1)
	}
	return NewWithBinding(&libBinding{rec: rec}), nil
}

// NewWithBinding wraps an existing binding. Mostly useful for tests.
func NewWithBinding(b Binding) *Recognizer {
	return &Recognizer{b: b}
}

// Recognizer is a Vosk-backed stt.Recognizer.
type Recognizer struct {
	b      Binding
	closed bool
}

// Accept feeds frame to Vosk.
func (r *Recognizer) Accept(frame []byte) (bool, error) {
	if r.closed {
		return false, stt.ErrClosed
	}
	switch code := r.b.AcceptWaveform(frame); {
	case code < 0:
		return false, &stt.RecognizerError{Engine: engineName, Op: "accept", Err: fmt.Errorf("AcceptWaveform returned %d", code)}
	default:
		return code > 0, nil
	}
}

// Result returns the text of the completed utterance.
func (r *Recognizer) Result() (string, error) {
	if r.closed {
		return "", stt.ErrClosed
	}
	return decodeText("result", r.b.Result())
}

// PartialResult returns the current hypothesis.
func (r *Recognizer) PartialResult() (string, error) {
	if r.closed {
		return "", stt.ErrClosed
	}
	var p struct {
		Partial string `json:"partial"`
	}
	if err := decode("partial result", r.b.PartialResult(), &p); err != nil {
		return "", err
	}
	return p.Partial, nil
}

// FinalResult flushes Vosk and returns the trailing text.
func (r *Recognizer) FinalResult() (string, error) {
	if r.closed {
		return "", stt.ErrClosed
	}
	return decodeText("final result", r.b.FinalResult())
}

// Close frees the underlying recognizer. The model is not freed.
func (r *Recognizer) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.b.Free()
	return nil
}

func decodeText(op, payload string) (string, error) {
	var res struct {
		Text string `json:"text"`
	}
	if err := decode(op, payload, &res); err != nil {
		return "", err
	}
	return res.Text, nil
}

func decode(op, payload string, v any) error {
	if payload == "" {
		return &stt.RecognizerError{Engine: engineName, Op: op, Err: errors.New("empty payload")}
	}
	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return &stt.RecognizerError{Engine: engineName, Op: op, Err: err}
	}
	return nil
}

// libBinding adapts *vosklib.VoskRecognizer to Binding.
type libBinding struct {
	rec *vosklib.VoskRecognizer
}

func (b *libBinding) AcceptWaveform(frame []byte) int { return b.rec.AcceptWaveform(frame) }
func (b *libBinding) Result() string                  { return string(b.rec.Result()) }
func (b *libBinding) PartialResult() string           { return string(b.rec.PartialResult()) }
func (b *libBinding) FinalResult() string             { return string(b.rec.FinalResult()) }
func (b *libBinding) Free()                           { b.rec.Free() }

var _ stt.Recognizer = (*Recognizer)(nil)
