package whisper

import (
	"time"

	"github.com/MrWong99/voxpi/pkg/audio"
)

const (
	// DefaultRMSThreshold is the root-mean-square energy level (in 16-bit PCM
	// units) below which a frame counts as silence. 300 of a possible 32 767
	// is near-silence on a USB microphone.
	DefaultRMSThreshold = 300.0

	// DefaultSilenceWindow is the trailing silence that commits an utterance.
	DefaultSilenceWindow = 500 * time.Millisecond

	// DefaultMaxUtterance caps how much speech is buffered before an
	// utterance is committed regardless of silence.
	DefaultMaxUtterance = 10 * time.Second
)

// Segmenter cuts a stream of PCM frames into utterances using an energy
// based silence detector. Leading silence is discarded; an utterance is
// committed after speech followed by SilenceWindow of silence, or when it
// reaches MaxUtterance.
//
// A Segmenter is not safe for concurrent use.
type Segmenter struct {
	SampleRate    int
	Threshold     float64
	SilenceWindow time.Duration
	MaxUtterance  time.Duration

	buffer    []byte
	hadSpeech bool
	silence   time.Duration
}

// NewSegmenter returns a Segmenter with the default thresholds.
func NewSegmenter(sampleRate int) *Segmenter {
	return &Segmenter{
		SampleRate:    sampleRate,
		Threshold:     DefaultRMSThreshold,
		SilenceWindow: DefaultSilenceWindow,
		MaxUtterance:  DefaultMaxUtterance,
	}
}

// Push appends frame to the current utterance. When frame completes an
// utterance its PCM is returned with ok set and the segmenter is reset.
func (s *Segmenter) Push(frame []byte) (utterance []byte, ok bool) {
	if audio.ComputeRMS(frame) < s.Threshold {
		if !s.hadSpeech {
			return nil, false
		}
		s.silence += audio.ChunkDuration(frame, s.SampleRate, 1)
		s.buffer = append(s.buffer, frame...)
		if s.silence >= s.SilenceWindow {
			return s.take(), true
		}
		return nil, false
	}

	s.hadSpeech = true
	s.silence = 0
	s.buffer = append(s.buffer, frame...)
	if s.MaxUtterance > 0 && audio.ChunkDuration(s.buffer, s.SampleRate, 1) >= s.MaxUtterance {
		return s.take(), true
	}
	return nil, false
}

// Flush returns whatever speech is still buffered and resets the segmenter.
// It returns nil if no speech was heard since the last commit.
func (s *Segmenter) Flush() []byte {
	if !s.hadSpeech {
		s.reset()
		return nil
	}
	return s.take()
}

// Buffered reports the duration of audio held for the current utterance.
func (s *Segmenter) Buffered() time.Duration {
	return audio.ChunkDuration(s.buffer, s.SampleRate, 1)
}

func (s *Segmenter) take() []byte {
	pcm := s.buffer
	s.reset()
	return pcm
}

func (s *Segmenter) reset() {
	s.buffer = nil
	s.hadSpeech = false
	s.silence = 0
}
