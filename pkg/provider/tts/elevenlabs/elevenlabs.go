// Package elevenlabs provides an ElevenLabs-backed TTS provider using the
// ElevenLabs stream-input WebSocket API. It implements the tts.Provider
// interface and produces raw 16-bit mono PCM suitable for audio.Player.
package elevenlabs

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/coder/websocket"

	"github.com/MrWong99/voxpi/pkg/provider/tts"
)

const (
	defaultWSBase    = "wss://api.elevenlabs.io"
	defaultAPIBase   = "https://api.elevenlabs.io"
	defaultModel     = "eleven_multilingual_v2"
	defaultOutputFmt = "pcm_16000"
	providerName     = "elevenlabs"
)

// Option is a functional option for configuring the ElevenLabs Provider.
type Option func(*Provider)

// WithModel sets the ElevenLabs model ID. Defaults to
// "eleven_multilingual_v2".
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

// WithOutputFormat sets the audio output format (e.g. "pcm_16000",
// "pcm_22050"). Only pcm_* formats can be played without decoding.
func WithOutputFormat(format string) Option {
	return func(p *Provider) { p.outputFormat = format }
}

// WithEndpoints overrides the WebSocket and REST base URLs.
func WithEndpoints(wsBase, apiBase string) Option {
	return func(p *Provider) {
		p.wsBase = strings.TrimRight(wsBase, "/")
		p.apiBase = strings.TrimRight(apiBase, "/")
	}
}

// WithHTTPClient sets the client used for REST calls.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.httpClient = c }
}

// Provider implements tts.Provider backed by the ElevenLabs streaming API.
type Provider struct {
	apiKey       string
	model        string
	outputFormat string
	wsBase       string
	apiBase      string
	httpClient   *http.Client

	// streamErrs holds the error of each stream that ended early, keyed by
	// its audio channel, until StreamErr collects it.
	streamErrs sync.Map
}

// New creates a new ElevenLabs Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("elevenlabs: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:       apiKey,
		model:        defaultModel,
		outputFormat: defaultOutputFmt,
		wsBase:       defaultWSBase,
		apiBase:      defaultAPIBase,
		httpClient:   &http.Client{},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// SampleRate returns the sample rate of the configured pcm_* output format,
// or 0 for compressed formats.
func (p *Provider) SampleRate() int {
	var hz int
	if _, err := fmt.Sscanf(p.outputFormat, "pcm_%d", &hz); err != nil {
		return 0
	}
	return hz
}

// ---- WebSocket message types ----

// textMessage is the JSON payload sent for each text fragment. An empty
// Text closes the input.
type textMessage struct {
	Text                 string         `json:"text"`
	TryTriggerGeneration bool           `json:"try_trigger_generation,omitempty"`
	VoiceSettings        *voiceSettings `json:"voice_settings,omitempty"`
}

// voiceSettings mirrors the ElevenLabs voice_settings object.
type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// boiMessage is the initial "beginning of input" handshake.
type boiMessage struct {
	Text          string         `json:"text"`
	VoiceSettings *voiceSettings `json:"voice_settings,omitempty"`
	XiAPIKey      string         `json:"xi_api_key"`
}

// audioResponse is a message received over the WebSocket.
type audioResponse struct {
	Audio   string `json:"audio"` // base64-encoded PCM
	IsFinal bool   `json:"isFinal"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// streamURL builds the stream-input URL for voiceID.
func (p *Provider) streamURL(voiceID string) string {
	q := url.Values{}
	q.Set("model_id", p.model)
	q.Set("output_format", p.outputFormat)
	return fmt.Sprintf("%s/v1/text-to-speech/%s/stream-input?%s", p.wsBase, url.PathEscape(voiceID), q.Encode())
}

// SynthesizeStream opens a WebSocket to ElevenLabs, pipes text fragments
// from the text channel and returns a channel emitting raw PCM chunks.
func (p *Provider) SynthesizeStream(ctx context.Context, text <-chan string, voice tts.VoiceProfile) (<-chan []byte, error) {
	if voice.ID == "" {
		return nil, errors.New("elevenlabs: voice.ID must not be empty")
	}

	conn, _, err := websocket.Dial(ctx, p.streamURL(voice.ID), nil)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: dial: %w", err)
	}
	conn.SetReadLimit(1 << 22)

	vs := &voiceSettings{Stability: 0.5, SimilarityBoost: 0.75}
	if err := writeJSON(ctx, conn, boiMessage{Text: " ", VoiceSettings: vs, XiAPIKey: p.apiKey}); err != nil {
		conn.Close(websocket.StatusInternalError, "failed to send BOI")
		return nil, fmt.Errorf("elevenlabs: send BOI: %w", err)
	}

	audioCh := make(chan []byte, 256)
	go func() {
		err := p.pump(ctx, conn, text, audioCh)
		if err != nil {
			p.streamErrs.Store((<-chan []byte)(audioCh), err)
		}
		close(audioCh)
	}()
	return audioCh, nil
}

// StreamErr implements tts.StreamReporter. It reports why the stream behind
// audio ended early, or nil when the server sent its final message.
func (p *Provider) StreamErr(audio <-chan []byte) error {
	if err, ok := p.streamErrs.LoadAndDelete(audio); ok {
		return err.(error)
	}
	return nil
}

// pump sends text fragments while the reader forwards audio into out. It
// returns only after the reader has stopped, so out may be closed afterwards.
func (p *Provider) pump(ctx context.Context, conn *websocket.Conn, text <-chan string, out chan<- []byte) error {
	readDone := make(chan error, 1)
	go func() { readDone <- p.readAudio(ctx, conn, out) }()

	abort := func(err error) error {
		conn.Close(websocket.StatusNormalClosure, "aborted")
		<-readDone
		return err
	}

	for text != nil {
		select {
		case fragment, ok := <-text:
			if !ok {
				// An empty text closes the input server-side.
				if err := writeJSON(ctx, conn, textMessage{Text: ""}); err != nil {
					return abort(fmt.Errorf("elevenlabs: send end of input: %w", err))
				}
				text = nil
				continue
			}
			if strings.TrimSpace(fragment) == "" {
				continue
			}
			// ElevenLabs buffers until a word boundary; a trailing space lets
			// it start generating.
			if !strings.HasSuffix(fragment, " ") {
				fragment += " "
			}
			if err := writeJSON(ctx, conn, textMessage{Text: fragment, TryTriggerGeneration: true}); err != nil {
				return abort(fmt.Errorf("elevenlabs: send text: %w", err))
			}
		case err := <-readDone:
			// The server ended the stream before the input did.
			conn.Close(websocket.StatusNormalClosure, "done")
			return err
		case <-ctx.Done():
			return abort(ctx.Err())
		}
	}

	err := <-readDone
	conn.Close(websocket.StatusNormalClosure, "done")
	return err
}

// readAudio forwards decoded audio until the server reports the final chunk.
// Any other ending is returned as an error wrapping tts.ErrStreamAborted.
func (p *Provider) readAudio(ctx context.Context, conn *websocket.Conn, out chan<- []byte) error {
	for {
		_, msg, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: %w", tts.ErrStreamAborted, err)
		}
		var resp audioResponse
		if err := json.Unmarshal(msg, &resp); err != nil {
			slog.Debug("elevenlabs: skipping malformed message", "error", err)
			continue
		}
		if resp.Error != "" {
			return fmt.Errorf("%w: elevenlabs: %s %s", tts.ErrStreamAborted, resp.Error, resp.Message)
		}
		if resp.Audio != "" {
			pcm, err := base64.StdEncoding.DecodeString(resp.Audio)
			if err != nil {
				return fmt.Errorf("%w: elevenlabs: decode audio: %w", tts.ErrStreamAborted, err)
			}
			select {
			case out <- pcm:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if resp.IsFinal {
			return nil
		}
	}
}

func writeJSON(ctx context.Context, conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, b)
}

// ---- ListVoices ----

// voicesResponse is the top-level response from GET /v1/voices.
type voicesResponse struct {
	Voices []elevenLabsVoice `json:"voices"`
}

// elevenLabsVoice is a single voice entry from the ElevenLabs API.
type elevenLabsVoice struct {
	VoiceID  string            `json:"voice_id"`
	Name     string            `json:"name"`
	Category string            `json:"category"`
	Labels   map[string]string `json:"labels"`
}

// ListVoices returns all voices available for the configured API key.
func (p *Provider) ListVoices(ctx context.Context) ([]tts.VoiceProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiBase+"/v1/voices", nil)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: list voices: %w", err)
	}
	req.Header.Set("xi-api-key", p.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: list voices HTTP: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("elevenlabs: list voices: unexpected status %d", resp.StatusCode)
	}

	var vr voicesResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return nil, fmt.Errorf("elevenlabs: list voices decode: %w", err)
	}
	return vr.profiles(), nil
}

func (vr voicesResponse) profiles() []tts.VoiceProfile {
	out := make([]tts.VoiceProfile, 0, len(vr.Voices))
	for _, v := range vr.Voices {
		meta := make(map[string]string, len(v.Labels)+1)
		for k, val := range v.Labels {
			meta[k] = val
		}
		if v.Category != "" {
			meta["category"] = v.Category
		}
		out = append(out, tts.VoiceProfile{
			ID:       v.VoiceID,
			Name:     v.Name,
			Provider: providerName,
			Metadata: meta,
		})
	}
	return out
}

var (
	_ tts.Provider       = (*Provider)(nil)
	_ tts.StreamReporter = (*Provider)(nil)
)
