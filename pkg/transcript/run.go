package transcript

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/MrWong99/voxpi/pkg/audio"
	"github.com/MrWong99/voxpi/pkg/provider/stt"
)

// Frame is one chunk of mono 16-bit signed little-endian PCM. Frames are
// handed to the recognizer and never retained.
type Frame = []byte

// Run reads frames from src until end of input, feeds each through rec and
// returns the finalized transcript.
//
// End of input is [io.EOF] from src or, unless disabled with
// [WithZeroLengthAsEnd], a zero-length frame. Cancellation of ctx is observed
// between frames: it stops reading and the transcript is still finalized and
// returned with a nil error. Recognizer and source errors abort the loop
// without flushing.
//
// Run does not close src or rec.
func Run(ctx context.Context, src audio.FrameSource, rec stt.Recognizer, opts ...Option) (Transcript, error) {
	acc := New(rec, opts...)

	for ctx.Err() == nil {
		frame, err := src.ReadFrame()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Transcript{}, fmt.Errorf("transcript: read frame: %w", err)
		}
		if len(frame) == 0 {
			if acc.opts.zeroLenIsEnd {
				break
			}
			continue
		}

		ev, err := acc.Feed(frame)
		if err != nil {
			return Transcript{}, err
		}
		acc.OnEvent(ev)
	}

	return acc.Finalize()
}
