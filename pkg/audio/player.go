package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
)

// Player plays 16-bit mono PCM through the default output device. The
// speaker is initialised lazily on the first Play call and shared by all
// subsequent calls. Play calls are serialised.
type Player struct {
	sampleRate beep.SampleRate

	initOnce sync.Once
	initErr  error
	mu       sync.Mutex
}

// NewPlayer returns a Player for PCM at sampleRate Hz.
func NewPlayer(sampleRate int) *Player {
	return &Player{sampleRate: beep.SampleRate(sampleRate)}
}

// Play blocks until pcm has been played or ctx is cancelled.
func (p *Player) Play(ctx context.Context, pcm []byte) error {
	p.initOnce.Do(func() {
		p.initErr = speaker.Init(p.sampleRate, p.sampleRate.N(100*time.Millisecond))
	})
	if p.initErr != nil {
		return fmt.Errorf("audio: init speaker: %w", p.initErr)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	done := make(chan struct{})
	speaker.Play(beep.Seq(newPCMStreamer(pcm), beep.Callback(func() { close(done) })))

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Clear()
		return ctx.Err()
	}
}

// pcmStreamer adapts a 16-bit mono PCM buffer to beep.Streamer. Each sample
// is duplicated onto both output channels.
type pcmStreamer struct {
	pcm []byte
	pos int
}

func newPCMStreamer(pcm []byte) *pcmStreamer {
	return &pcmStreamer{pcm: pcm[:len(pcm)-len(pcm)%2]}
}

// Stream fills samples and reports how many were written.
func (s *pcmStreamer) Stream(samples [][2]float64) (n int, ok bool) {
	if s.pos >= len(s.pcm) {
		return 0, false
	}
	for n < len(samples) && s.pos < len(s.pcm) {
		v := float64(int16(binary.LittleEndian.Uint16(s.pcm[s.pos:]))) / 32768.0
		samples[n][0] = v
		samples[n][1] = v
		s.pos += 2
		n++
	}
	return n, true
}

// Err always returns nil; an in-memory buffer cannot fail.
func (s *pcmStreamer) Err() error { return nil }
