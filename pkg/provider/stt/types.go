package stt

import (
	"errors"
	"fmt"
)

// ErrUnsupportedFormat is returned when input audio is not mono, 16-bit,
// uncompressed PCM. It is detected once, before any frame reaches a
// Recognizer.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// ErrModelNotFound is returned when a local model path does not exist.
var ErrModelNotFound = errors.New("model not found")

// ErrClosed is returned by Recognizer methods called after Close.
var ErrClosed = errors.New("recognizer is closed")

// Format describes a PCM stream.
type Format struct {
	// SampleRate in Hz. Vosk and whisper models expect 16000.
	SampleRate int

	// Channels must be 1.
	Channels int

	// BitsPerSample must be 16.
	BitsPerSample int
}

// DefaultFormat is 16 kHz mono 16-bit PCM.
var DefaultFormat = Format{SampleRate: 16000, Channels: 1, BitsPerSample: 16}

// Validate reports an error wrapping [ErrUnsupportedFormat] unless f is mono
// 16-bit PCM with a positive sample rate.
func (f Format) Validate() error {
	var errs []error
	if f.Channels != 1 {
		errs = append(errs, fmt.Errorf("channels %d (must be mono)", f.Channels))
	}
	if f.BitsPerSample != 16 {
		errs = append(errs, fmt.Errorf("sample width %d bits (must be 16)", f.BitsPerSample))
	}
	if f.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("sample rate %d", f.SampleRate))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrUnsupportedFormat, errors.Join(errs...))
}

// BytesPerSecond returns the PCM byte rate of f.
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.Channels * f.BitsPerSample / 8
}

// RecognizerError reports a failure inside the recognition engine. It is
// never recovered locally; callers see it unchanged via [errors.As].
type RecognizerError struct {
	// Engine names the backend ("vosk", "whisper", "openai").
	Engine string

	// Op is the recognizer operation that failed ("accept", "result", ...).
	Op string

	Err error
}

func (e *RecognizerError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Engine, e.Op, e.Err)
}

func (e *RecognizerError) Unwrap() error { return e.Err }
