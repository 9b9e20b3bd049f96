package tts_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/MrWong99/voxpi/pkg/provider/tts"
	"github.com/MrWong99/voxpi/pkg/provider/tts/mock"
)

func TestSpeak_PlaysConcatenatedAudio(t *testing.T) {
	t.Parallel()
	p := &mock.Provider{SynthesizeChunks: [][]byte{{1, 2}, {3, 4}}}
	out := &mock.Player{}
	voice := tts.VoiceProfile{ID: "v1", Name: "Rachel"}

	if err := tts.Speak(context.Background(), p, out, "  hola mundo ", voice); err != nil {
		t.Fatalf("Speak: %v", err)
	}
	if len(out.Played) != 1 || string(out.Played[0]) != string([]byte{1, 2, 3, 4}) {
		t.Errorf("unexpected playback %v", out.Played)
	}
	calls := p.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 synthesis call, got %d", len(calls))
	}
	if calls[0].Voice.ID != "v1" {
		t.Errorf("unexpected voice %+v", calls[0].Voice)
	}
	if len(calls[0].Text) != 1 || calls[0].Text[0] != "hola mundo" {
		t.Errorf("expected trimmed text, got %q", calls[0].Text)
	}
}

func TestSpeak_EmptyText(t *testing.T) {
	t.Parallel()
	p := &mock.Provider{}
	out := &mock.Player{}

	for _, text := range []string{"", "   ", "\n\t"} {
		if err := tts.Speak(context.Background(), p, out, text, tts.VoiceProfile{ID: "v"}); !errors.Is(err, tts.ErrEmptyText) {
			t.Errorf("text %q: expected ErrEmptyText, got %v", text, err)
		}
	}
	if len(p.Calls()) != 0 {
		t.Error("provider must not be called for blank text")
	}
	if len(out.Played) != 0 {
		t.Error("nothing must be played for blank text")
	}
}

func TestSpeak_Errors(t *testing.T) {
	t.Parallel()
	synthErr := errors.New("quota exceeded")
	playErr := errors.New("device busy")

	tests := []struct {
		name    string
		p       *mock.Provider
		out     *mock.Player
		wantErr error
	}{
		{name: "synthesis fails", p: &mock.Provider{SynthesizeErr: synthErr}, out: &mock.Player{}, wantErr: synthErr},
		{name: "playback fails", p: &mock.Provider{SynthesizeChunks: [][]byte{{1}}}, out: &mock.Player{PlayErr: playErr}, wantErr: playErr},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tts.Speak(context.Background(), tt.p, tt.out, "hola", tts.VoiceProfile{ID: "v"})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSpeak_AbortedStreamPlaysNothing(t *testing.T) {
	t.Parallel()
	aborted := fmt.Errorf("%w: connection reset", tts.ErrStreamAborted)
	p := &mock.Provider{SynthesizeChunks: [][]byte{{1, 2}}, StreamErrResult: aborted}
	out := &mock.Player{}

	err := tts.Speak(context.Background(), p, out, "hola", tts.VoiceProfile{ID: "v"})
	if !errors.Is(err, tts.ErrStreamAborted) {
		t.Fatalf("expected ErrStreamAborted, got %v", err)
	}
	if len(out.Played) != 0 {
		t.Errorf("truncated audio must not be played, got %v", out.Played)
	}
}

func TestSynthesize_NoAudio(t *testing.T) {
	t.Parallel()
	if _, err := tts.Synthesize(context.Background(), &mock.Provider{}, "hola", tts.VoiceProfile{ID: "v"}); err == nil {
		t.Fatal("expected error when the provider returns no audio")
	}
}

func TestResolveVoice(t *testing.T) {
	t.Parallel()
	p := &mock.Provider{ListVoicesResult: []tts.VoiceProfile{
		{ID: "21m00Tcm4TlvDq8ikWAM", Name: "Rachel"},
		{ID: "pNInz6obpgDQGcFmaJgB", Name: "Adam"},
	}}

	tests := []struct {
		name    string
		in      tts.VoiceProfile
		wantID  string
		wantErr error
	}{
		{name: "by name", in: tts.VoiceProfile{Name: "Rachel"}, wantID: "21m00Tcm4TlvDq8ikWAM"},
		{name: "case insensitive", in: tts.VoiceProfile{Name: "adam"}, wantID: "pNInz6obpgDQGcFmaJgB"},
		{name: "id given as name", in: tts.VoiceProfile{Name: "pNInz6obpgDQGcFmaJgB"}, wantID: "pNInz6obpgDQGcFmaJgB"},
		{name: "explicit id", in: tts.VoiceProfile{ID: "custom"}, wantID: "custom"},
		{name: "unknown", in: tts.VoiceProfile{Name: "Bella"}, wantErr: tts.ErrVoiceNotFound},
		{name: "empty", in: tts.VoiceProfile{}, wantErr: tts.ErrVoiceNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v, err := tts.ResolveVoice(context.Background(), p, tt.in)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveVoice: %v", err)
			}
			if v.ID != tt.wantID {
				t.Errorf("expected %q, got %q", tt.wantID, v.ID)
			}
		})
	}
}
