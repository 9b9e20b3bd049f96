// Package tts defines the Provider interface for text-to-speech backends.
//
// A TTS provider wraps a speech synthesis service (e.g. ElevenLabs) behind a
// streaming interface: SynthesizeStream accepts a channel of text fragments
// and returns a channel of raw 16-bit mono PCM as it is produced. [Speak]
// is the one-shot helper that synthesizes a complete text and plays it.
//
// Implementations must be safe for concurrent use.
package tts

import (
	"context"
	"errors"
)

// Provider is the abstraction over any TTS backend.
type Provider interface {
	// SynthesizeStream consumes text fragments from the text channel and
	// returns a channel that emits raw PCM audio as it is synthesized.
	//
	// The returned audio channel is closed when all text has been
	// synthesized or when ctx is cancelled. The caller must drain it.
	//
	// Returns a non-nil error only if the stream cannot be started. Errors
	// during synthesis close the audio channel early.
	SynthesizeStream(ctx context.Context, text <-chan string, voice VoiceProfile) (<-chan []byte, error)

	// ListVoices returns all voices available to the configured account.
	ListVoices(ctx context.Context) ([]VoiceProfile, error)
}

// ErrStreamAborted marks an audio stream that closed before the provider
// signalled the end of synthesis.
var ErrStreamAborted = errors.New("tts: audio stream aborted")

// StreamReporter is implemented by providers that know why an audio stream
// closed. StreamErr is called once, after the channel returned by
// SynthesizeStream has been drained, and returns nil for a complete stream.
type StreamReporter interface {
	StreamErr(audio <-chan []byte) error
}
