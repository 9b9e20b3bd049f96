// Package transcript turns the per-frame output of an incremental speech
// recognizer into an ordered transcript.
//
// An [Accumulator] feeds audio frames to an [stt.Recognizer], interprets each
// result as a [Partial] or [Final] [Event] and appends the text of every
// non-blank final as a [Segment]. [Accumulator.Finalize] flushes the
// recognizer once at end of input and joins all segments with single spaces.
//
// Partial hypotheses are never recorded; they can be surfaced for live
// display through [WithPartialHandler]. Segments are append-only and keep
// the order in which the recognizer finalized them.
//
// An Accumulator is owned by a single caller and is not safe for concurrent
// use.
package transcript

import (
	"fmt"
	"strings"

	"github.com/MrWong99/voxpi/pkg/provider/stt"
)

// EventKind distinguishes unstable hypotheses from committed utterances.
type EventKind int

const (
	// Partial is an in-progress hypothesis superseded by later events.
	Partial EventKind = iota

	// Final marks a completed utterance whose text will not change.
	Final
)

// String returns the human-readable name of the kind.
func (k EventKind) String() string {
	switch k {
	case Partial:
		return "partial"
	case Final:
		return "final"
	default:
		return "unknown"
	}
}

// Event is the interpreted result of feeding one frame to a recognizer.
type Event struct {
	Kind EventKind
	Text string
}

// Segment is one finalized, non-blank unit of recognized speech.
type Segment struct {
	// Index is the 0-based position in finalization order.
	Index int

	// Text is the trimmed utterance text. Never empty.
	Text string
}

// Transcript is the joined output produced once at end of input.
type Transcript struct {
	// Text is every segment joined by a single space. Empty when nothing was
	// recognized.
	Text string

	// Segments lists the finalized segments in order.
	Segments []Segment
}

// Option is a functional option for configuring an [Accumulator] and [Run].
type Option func(*options)

type options struct {
	onPartial    func(string)
	onSegment    func(Segment)
	zeroLenIsEnd bool
}

func defaultOptions() options {
	return options{zeroLenIsEnd: true}
}

// WithPartialHandler registers fn to receive non-blank partial hypotheses,
// e.g. for a live "listening…" display. fn never affects the transcript.
func WithPartialHandler(fn func(text string)) Option {
	return func(o *options) { o.onPartial = fn }
}

// WithSegmentHandler registers fn to be called once for every appended
// segment, including the trailing segment produced by Finalize.
func WithSegmentHandler(fn func(Segment)) Option {
	return func(o *options) { o.onSegment = fn }
}

// WithZeroLengthAsEnd controls whether [Run] treats a zero-length frame as
// end of input. Enabled by default. Live sources that may produce transient
// empty reads should disable it so such reads are skipped.
func WithZeroLengthAsEnd(enabled bool) Option {
	return func(o *options) { o.zeroLenIsEnd = enabled }
}

// Accumulator collects finalized segments from a recognizer.
type Accumulator struct {
	rec  stt.Recognizer
	opts options

	segments  []Segment
	finalized bool
	final     Transcript
}

// New returns an Accumulator reading results from rec. The caller keeps
// ownership of rec.
func New(rec stt.Recognizer, opts ...Option) *Accumulator {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Accumulator{rec: rec, opts: o}
}

// Feed delivers one frame to the recognizer and interprets its result.
// Recognizer errors are returned wrapped and unmodified otherwise.
func (a *Accumulator) Feed(frame []byte) (Event, error) {
	done, err := a.rec.Accept(frame)
	if err != nil {
		return Event{}, fmt.Errorf("transcript: accept frame: %w", err)
	}
	if done {
		text, err := a.rec.Result()
		if err != nil {
			return Event{}, fmt.Errorf("transcript: read result: %w", err)
		}
		return Event{Kind: Final, Text: text}, nil
	}
	text, err := a.rec.PartialResult()
	if err != nil {
		return Event{}, fmt.Errorf("transcript: read partial result: %w", err)
	}
	return Event{Kind: Partial, Text: text}, nil
}

// OnEvent applies ev to the segment sequence. A Final with non-blank text is
// appended and returned with ok set. Blank finals and all partials leave the
// sequence untouched.
func (a *Accumulator) OnEvent(ev Event) (seg Segment, ok bool) {
	text := strings.TrimSpace(ev.Text)
	switch ev.Kind {
	case Final:
		if text == "" {
			return Segment{}, false
		}
		return a.appendSegment(text), true
	case Partial:
		if text != "" && a.opts.onPartial != nil {
			a.opts.onPartial(text)
		}
	}
	return Segment{}, false
}

// Finalize flushes the recognizer, appends the trailing text as a segment if
// it is non-blank and returns the joined transcript. Only the first call
// flushes; later calls return the same transcript without touching the
// recognizer.
func (a *Accumulator) Finalize() (Transcript, error) {
	if a.finalized {
		return a.final, nil
	}
	text, err := a.rec.FinalResult()
	if err != nil {
		return Transcript{}, fmt.Errorf("transcript: flush recognizer: %w", err)
	}
	a.finalized = true
	if trimmed := strings.TrimSpace(text); trimmed != "" {
		a.appendSegment(trimmed)
	}

	parts := make([]string, len(a.segments))
	for i, s := range a.segments {
		parts[i] = s.Text
	}
	a.final = Transcript{
		Text:     strings.Join(parts, " "),
		Segments: a.Segments(),
	}
	return a.final, nil
}

// Segments returns a copy of the segments appended so far.
func (a *Accumulator) Segments() []Segment {
	out := make([]Segment, len(a.segments))
	copy(out, a.segments)
	return out
}

func (a *Accumulator) appendSegment(text string) Segment {
	seg := Segment{Index: len(a.segments), Text: text}
	a.segments = append(a.segments, seg)
	if a.opts.onSegment != nil {
		a.opts.onSegment(seg)
	}
	return seg
}
