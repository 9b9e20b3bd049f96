package config

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/MrWong99/voxpi/pkg/provider/stt"
)

// ErrEngineNotRegistered is returned by [Registry.CreateRecognizer] when no
// factory has been registered for the requested engine.
var ErrEngineNotRegistered = errors.New("config: recognizer engine not registered")

// RecognizerFactory builds a Recognizer for PCM at sampleRate Hz.
type RecognizerFactory func(ctx context.Context, cfg RecognizerConfig, sampleRate int) (stt.Recognizer, error)

// Registry maps recognizer engines to their constructors. It is safe for
// concurrent use.
type Registry struct {
	mu          sync.RWMutex
	recognizers map[RecognizerEngine]RecognizerFactory
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{recognizers: make(map[RecognizerEngine]RecognizerFactory)}
}

// RegisterRecognizer registers factory under engine.
// Subsequent calls with the same engine overwrite the previous registration.
func (r *Registry) RegisterRecognizer(engine RecognizerEngine, factory RecognizerFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recognizers[engine] = factory
}

// CreateRecognizer instantiates the recognizer registered under cfg.Engine.
// Returns [ErrEngineNotRegistered] if no factory has been registered.
func (r *Registry) CreateRecognizer(ctx context.Context, cfg RecognizerConfig, sampleRate int) (stt.Recognizer, error) {
	r.mu.RLock()
	factory, ok := r.recognizers[cfg.Engine]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrEngineNotRegistered, cfg.Engine)
	}
	rec, err := factory(ctx, cfg, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("config: create %s recognizer: %w", cfg.Engine, err)
	}
	return rec, nil
}
