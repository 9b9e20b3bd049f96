// Package stt defines the Recognizer interface for incremental speech-to-text
// engines.
//
// A Recognizer wraps a streaming decoder (Vosk/Kaldi, whisper.cpp, or a cloud
// transcription API) behind the small accept/result contract those engines
// share: raw PCM frames are pushed one at a time with Accept, which reports
// whether the frame completed an utterance. The caller then reads either the
// committed text (Result) or the current unstable hypothesis (PartialResult).
// At end of input FinalResult flushes whatever the engine still buffers.
//
// Recognizers are synchronous and NOT safe for concurrent use. A single
// caller owns a Recognizer for the lifetime of one audio stream and must call
// Close when done.
package stt

// Recognizer is the abstraction over any incremental speech recognition
// engine. Every method blocks until the engine returns.
type Recognizer interface {
	// Accept feeds one frame of 16-bit signed little-endian mono PCM to the
	// engine. It returns true when the frame completed an utterance, in which
	// case Result yields the finalized text. It returns false when the frame
	// only extended the utterance in progress; PartialResult then yields the
	// current best guess.
	Accept(frame []byte) (bool, error)

	// Result returns the text of the utterance completed by the previous
	// Accept call. The text is stable and will not change.
	Result() (string, error)

	// PartialResult returns the unstable hypothesis for the utterance in
	// progress. Engines without partial hypotheses return "".
	PartialResult() (string, error)

	// FinalResult flushes the engine at end of stream and returns any
	// trailing text that was never committed by Accept. It may be "".
	FinalResult() (string, error)

	// Close releases native resources held by the engine. Calling Close more
	// than once is safe and returns nil.
	Close() error
}
