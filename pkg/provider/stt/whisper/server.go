package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/MrWong99/voxpi/pkg/audio"
)

// ServerEngine posts utterances to a whisper-server (the HTTP front end that
// ships with whisper.cpp) at POST /inference.
type ServerEngine struct {
	serverURL  string
	language   string
	model      string
	httpClient *http.Client
}

// NewServer returns a ServerEngine for the server at serverURL, e.g.
// "http://localhost:8080".
func NewServer(serverURL string, opts ...EngineOption) (*ServerEngine, error) {
	if serverURL == "" {
		return nil, errors.New("whisper: server URL must not be empty")
	}
	cfg := newEngineConfig(opts)
	return &ServerEngine{
		serverURL:  strings.TrimRight(serverURL, "/"),
		language:   cfg.language,
		model:      cfg.model,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Transcribe uploads pcm as a WAV file and returns the recognized text.
func (e *ServerEngine) Transcribe(ctx context.Context, pcm []byte, sampleRate int) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := fw.Write(audio.EncodeWAV(pcm, sampleRate, 1)); err != nil {
		return "", fmt.Errorf("write wav data: %w", err)
	}
	if e.language != "" {
		if err := mw.WriteField("language", e.language); err != nil {
			return "", fmt.Errorf("write language field: %w", err)
		}
	}
	if e.model != "" {
		if err := mw.WriteField("model", e.model); err != nil {
			return "", fmt.Errorf("write model field: %w", err)
		}
	}
	if err := mw.WriteField("response_format", "json"); err != nil {
		return "", fmt.Errorf("write response_format field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.serverURL+"/inference", &body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("server returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("parse JSON response: %w", err)
	}
	return strings.TrimSpace(result.Text), nil
}

// Close is a no-op; the server is not owned by the engine.
func (e *ServerEngine) Close() error {
	e.httpClient.CloseIdleConnections()
	return nil
}

var _ Engine = (*ServerEngine)(nil)
