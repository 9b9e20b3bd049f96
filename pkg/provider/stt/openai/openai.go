// Package openai implements stt.Recognizer with the OpenAI audio
// transcription API.
//
// The API transcribes whole files, so the Recognizer buffers every frame
// and never completes an utterance during Accept. All text arrives from
// FinalResult, which uploads the buffered audio as a single WAV file.
package openai

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	"github.com/MrWong99/voxpi/pkg/audio"
	"github.com/MrWong99/voxpi/pkg/provider/stt"
)

const engineName = "openai"

// DefaultModel is the default transcription model.
const DefaultModel = oai.AudioModelWhisper1

type config struct {
	baseURL    string
	model      oai.AudioModel
	language   string
	sampleRate int
	timeout    time.Duration
	maxRetries int
}

// Option is a functional option for Recognizer.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) { c.baseURL = url }
}

// WithModel selects the transcription model (e.g. "gpt-4o-transcribe").
func WithModel(model string) Option {
	return func(c *config) { c.model = oai.AudioModel(model) }
}

// WithLanguage sets the ISO-639-1 language hint. Defaults to "es".
func WithLanguage(lang string) Option {
	return func(c *config) { c.language = lang }
}

// WithSampleRate sets the sample rate of the fed PCM. Defaults to 16000.
func WithSampleRate(hz int) Option {
	return func(c *config) { c.sampleRate = hz }
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// WithMaxRetries sets how often a failed upload is retried.
func WithMaxRetries(n int) Option {
	return func(c *config) { c.maxRetries = n }
}

// Recognizer buffers audio and transcribes it in one request at end of
// stream.
type Recognizer struct {
	ctx        context.Context
	client     oai.Client
	model      oai.AudioModel
	language   string
	sampleRate int

	buf    bytes.Buffer
	closed bool
}

// New constructs a Recognizer. ctx bounds the upload made by FinalResult.
func New(ctx context.Context, apiKey string, opts ...Option) (*Recognizer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai stt: apiKey must not be empty")
	}
	cfg := &config{
		model:      DefaultModel,
		language:   "es",
		sampleRate: stt.DefaultFormat.SampleRate,
		maxRetries: 2,
	}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(cfg.maxRetries),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	return &Recognizer{
		ctx:        ctx,
		client:     oai.NewClient(reqOpts...),
		model:      cfg.model,
		language:   cfg.language,
		sampleRate: cfg.sampleRate,
	}, nil
}

// Accept buffers frame. It never completes an utterance.
func (r *Recognizer) Accept(frame []byte) (bool, error) {
	if r.closed {
		return false, stt.ErrClosed
	}
	r.buf.Write(frame)
	return false, nil
}

// Result is never meaningful for this engine and returns "".
func (r *Recognizer) Result() (string, error) {
	if r.closed {
		return "", stt.ErrClosed
	}
	return "", nil
}

// PartialResult returns "": the API has no partial hypotheses.
func (r *Recognizer) PartialResult() (string, error) {
	if r.closed {
		return "", stt.ErrClosed
	}
	return "", nil
}

// FinalResult uploads the buffered audio and returns its transcription. An
// empty buffer returns "" without a request.
func (r *Recognizer) FinalResult() (string, error) {
	if r.closed {
		return "", stt.ErrClosed
	}
	if r.buf.Len() == 0 {
		return "", nil
	}
	wav := audio.EncodeWAV(r.buf.Bytes(), r.sampleRate, 1)
	r.buf.Reset()

	params := oai.AudioTranscriptionNewParams{
		File:  &wavFile{Reader: bytes.NewReader(wav)},
		Model: r.model,
	}
	if r.language != "" {
		params.Language = param.NewOpt(r.language)
	}
	resp, err := r.client.Audio.Transcriptions.New(r.ctx, params)
	if err != nil {
		return "", &stt.RecognizerError{Engine: engineName, Op: "transcribe", Err: err}
	}
	return strings.TrimSpace(resp.Text), nil
}

// Close drops the buffered audio.
func (r *Recognizer) Close() error {
	r.closed = true
	r.buf.Reset()
	return nil
}

// wavFile names the multipart upload so the API can detect the container.
type wavFile struct {
	*bytes.Reader
}

func (wavFile) Filename() string    { return "audio.wav" }
func (wavFile) ContentType() string { return "audio/wav" }

var _ stt.Recognizer = (*Recognizer)(nil)
