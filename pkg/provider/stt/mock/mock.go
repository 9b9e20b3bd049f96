// Package mock provides a scripted test double for stt.Recognizer.
//
// Each call to Accept consumes the next Step. A step is either a final
// (Accept returns true and Result yields Text) or a partial (Accept returns
// false and PartialResult yields Text). FinalResult returns Flush.
//
// Example:
//
//	rec := &mock.Recognizer{
//	    Steps: []mock.Step{mock.Partial("ho"), mock.Final("hola mundo")},
//	    Flush: "",
//	}
package mock

import (
	"errors"
	"sync"

	"github.com/MrWong99/voxpi/pkg/provider/stt"
)

// Step scripts the outcome of a single Accept call.
type Step struct {
	// Final selects whether Accept returns true.
	Final bool

	// Text is returned by Result (final) or PartialResult (partial).
	Text string

	// Err, if non-nil, is returned by Accept instead.
	Err error
}

// Final returns a Step that completes an utterance with text.
func Final(text string) Step { return Step{Final: true, Text: text} }

// Partial returns a Step that extends the utterance in progress.
func Partial(text string) Step { return Step{Text: text} }

// Recognizer is a mock implementation of stt.Recognizer.
type Recognizer struct {
	mu sync.Mutex

	// Steps are consumed in order by Accept. Once exhausted, Accept reports a
	// partial with empty text.
	Steps []Step

	// Flush is returned by FinalResult.
	Flush string

	// FlushErr, if non-nil, is returned by FinalResult.
	FlushErr error

	// CloseErr, if non-nil, is returned by Close.
	CloseErr error

	// --- Call records ---

	// Frames holds a copy of every frame passed to Accept.
	Frames [][]byte

	// FinalResultCalls counts FinalResult invocations.
	FinalResultCalls int

	// CloseCalls counts Close invocations.
	CloseCalls int

	current Step
}

// Accept records the frame and advances to the next scripted step.
func (r *Recognizer) Accept(frame []byte) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make([]byte, len(frame))
	copy(cp, frame)
	r.Frames = append(r.Frames, cp)

	if len(r.Steps) == 0 {
		r.current = Step{}
		return false, nil
	}
	r.current, r.Steps = r.Steps[0], r.Steps[1:]
	if r.current.Err != nil {
		return false, r.current.Err
	}
	return r.current.Final, nil
}

// Result returns the text of the current final step.
func (r *Recognizer) Result() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.current.Final {
		return "", errors.New("mock: Result called without a completed utterance")
	}
	return r.current.Text, nil
}

// PartialResult returns the text of the current partial step.
func (r *Recognizer) PartialResult() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current.Final {
		return "", nil
	}
	return r.current.Text, nil
}

// FinalResult records the call and returns Flush, FlushErr.
func (r *Recognizer) FinalResult() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.FinalResultCalls++
	return r.Flush, r.FlushErr
}

// Close records the call and returns CloseErr.
func (r *Recognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.CloseCalls++
	return r.CloseErr
}

// FrameCount returns the number of frames passed to Accept. Thread-safe.
func (r *Recognizer) FrameCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Frames)
}

// Ensure Recognizer implements stt.Recognizer at compile time.
var _ stt.Recognizer = (*Recognizer)(nil)
