// This file contains the NativeEngine backed by the whisper.cpp CGO
// bindings. The whisper.cpp static library (libwhisper.a) and headers
// (whisper.h) must be available at link time via LIBRARY_PATH and
// C_INCLUDE_PATH.

package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/MrWong99/voxpi/pkg/audio"
	"github.com/MrWong99/voxpi/pkg/provider/stt"
)

// nativeSampleRate is the only rate whisper.cpp accepts.
const nativeSampleRate = 16000

// EngineOption configures an engine.
type EngineOption func(*engineConfig)

type engineConfig struct {
	language string
	model    string
}

// WithLanguage sets the spoken language as an ISO-639-1 code. Defaults to
// "es".
func WithLanguage(lang string) EngineOption {
	return func(c *engineConfig) { c.language = lang }
}

// WithModel names the model a whisper-server should use. Ignored by the
// native engine, which always uses the file it loaded.
func WithModel(model string) EngineOption {
	return func(c *engineConfig) { c.model = model }
}

func newEngineConfig(opts []EngineOption) engineConfig {
	c := engineConfig{language: defaultLanguage}
	for _, o := range opts {
		o(&c)
	}
	return c
}

// NativeEngine runs inference in-process through whisper.cpp.
type NativeEngine struct {
	model    whisperlib.Model
	language string
}

// LoadNative loads the ggml model file at modelPath.
func LoadNative(modelPath string, opts ...EngineOption) (*NativeEngine, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: model path must not be empty")
	}
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("whisper: %w: %q", stt.ErrModelNotFound, modelPath)
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}
	cfg := newEngineConfig(opts)
	return &NativeEngine{model: model, language: cfg.language}, nil
}

// Transcribe runs whisper.cpp over pcm with a fresh context. PCM at other
// rates is resampled to the 16 kHz whisper.cpp expects.
func (e *NativeEngine) Transcribe(ctx context.Context, pcm []byte, sampleRate int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	// Contexts are not thread-safe; the model is.
	wctx, err := e.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("create context: %w", err)
	}
	if err := wctx.SetLanguage(e.language); err != nil {
		slog.Warn("whisper: failed to set language, using default", "language", e.language, "error", err)
	}
	pcm = audio.Resample(pcm, sampleRate, nativeSampleRate)
	if err := wctx.Process(audio.PCMToFloat32(pcm), nil, nil, nil); err != nil {
		return "", fmt.Errorf("process audio: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read segment: %w", err)
		}
		if text := strings.TrimSpace(segment.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}

// Close releases the model.
func (e *NativeEngine) Close() error {
	if e.model == nil {
		return nil
	}
	err := e.model.Close()
	e.model = nil
	return err
}

var _ Engine = (*NativeEngine)(nil)
