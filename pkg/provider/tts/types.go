package tts

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyText is returned by [Speak] when the text is blank.
var ErrEmptyText = errors.New("tts: text is empty")

// ErrVoiceNotFound is returned by [ResolveVoice] when no voice matches.
var ErrVoiceNotFound = errors.New("tts: voice not found")

// VoiceProfile describes a synthesis voice.
type VoiceProfile struct {
	// ID is the provider-specific voice identifier.
	ID string

	// Name is the human-readable voice name, e.g. "Rachel".
	Name string

	// Provider identifies which TTS provider this voice belongs to.
	Provider string

	// Metadata holds provider-specific voice attributes (gender, accent, ...).
	Metadata map[string]string
}

// ResolveVoice looks up voice by ID or by case-insensitive name among the
// voices p offers. Profiles that already carry an ID are returned unchanged
// without a lookup.
func ResolveVoice(ctx context.Context, p Provider, voice VoiceProfile) (VoiceProfile, error) {
	if voice.ID != "" {
		return voice, nil
	}
	if voice.Name == "" {
		return VoiceProfile{}, fmt.Errorf("%w: no ID or name given", ErrVoiceNotFound)
	}
	voices, err := p.ListVoices(ctx)
	if err != nil {
		return VoiceProfile{}, fmt.Errorf("tts: resolve voice %q: %w", voice.Name, err)
	}
	for _, v := range voices {
		if v.ID == voice.Name || strings.EqualFold(v.Name, voice.Name) {
			return v, nil
		}
	}
	return VoiceProfile{}, fmt.Errorf("%w: %q", ErrVoiceNotFound, voice.Name)
}
