package tts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Playback plays a complete buffer of PCM and blocks until it has finished
// or ctx is cancelled. *audio.Player satisfies it.
type Playback interface {
	Play(ctx context.Context, pcm []byte) error
}

// Synthesize renders text with voice and returns the complete PCM buffer.
// Blank text is rejected with [ErrEmptyText]. A stream the provider reports
// as cut short fails instead of returning the partial audio.
func Synthesize(ctx context.Context, p Provider, text string, voice VoiceProfile) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}

	textCh := make(chan string, 1)
	textCh <- text
	close(textCh)

	audioCh, err := p.SynthesizeStream(ctx, textCh, voice)
	if err != nil {
		return nil, fmt.Errorf("tts: synthesize: %w", err)
	}

	var pcm []byte
	for chunk := range audioCh {
		pcm = append(pcm, chunk...)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r, ok := p.(StreamReporter); ok {
		if err := r.StreamErr(audioCh); err != nil {
			return nil, fmt.Errorf("tts: synthesize: %w", err)
		}
	}
	if len(pcm) == 0 {
		return nil, errors.New("tts: synthesize: provider returned no audio")
	}
	return pcm, nil
}

// Speak synthesizes text and plays it through out.
func Speak(ctx context.Context, p Provider, out Playback, text string, voice VoiceProfile) error {
	pcm, err := Synthesize(ctx, p, text, voice)
	if err != nil {
		return err
	}
	slog.Debug("tts: playing synthesized speech", "voice", voice.Name, "bytes", len(pcm))
	if err := out.Play(ctx, pcm); err != nil {
		return fmt.Errorf("tts: play: %w", err)
	}
	return nil
}
