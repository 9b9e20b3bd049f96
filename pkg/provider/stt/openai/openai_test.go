package openai_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/MrWong99/voxpi/pkg/provider/stt"
	"github.com/MrWong99/voxpi/pkg/provider/stt/openai"
)

func newTranscriptionServer(t *testing.T, status int, body string, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		calls.Add(1)
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		head := make([]byte, 4)
		if _, err := io.ReadFull(f, head); err != nil || string(head) != "RIFF" || hdr.Filename != "audio.wav" {
			http.Error(w, "expected audio.wav upload", http.StatusBadRequest)
			return
		}
		if r.FormValue("model") != "whisper-1" || r.FormValue("language") != "es" {
			http.Error(w, "bad form fields", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNew_MissingAPIKey(t *testing.T) {
	t.Parallel()
	if _, err := openai.New(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty apiKey")
	}
}

func TestRecognizer_BuffersUntilFinalResult(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := newTranscriptionServer(t, http.StatusOK, `{"text":" hola mundo "}`, &calls)

	rec, err := openai.New(context.Background(), "sk-test", openai.WithBaseURL(srv.URL+"/"), openai.WithMaxRetries(0))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer rec.Close()

	for range 3 {
		done, err := rec.Accept(make([]byte, 4000))
		if err != nil || done {
			t.Fatalf("Accept: done=%v err=%v", done, err)
		}
	}
	if calls.Load() != 0 {
		t.Fatal("Accept must not call the API")
	}

	text, err := rec.FinalResult()
	if err != nil {
		t.Fatalf("FinalResult: %v", err)
	}
	if text != "hola mundo" {
		t.Errorf("expected %q, got %q", "hola mundo", text)
	}
	if calls.Load() != 1 {
		t.Errorf("expected one upload, got %d", calls.Load())
	}
}

func TestRecognizer_EmptyBufferSkipsUpload(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := newTranscriptionServer(t, http.StatusOK, `{"text":"x"}`, &calls)

	rec, _ := openai.New(context.Background(), "sk-test", openai.WithBaseURL(srv.URL+"/"))
	text, err := rec.FinalResult()
	if err != nil || text != "" {
		t.Fatalf("FinalResult: %q, %v", text, err)
	}
	if calls.Load() != 0 {
		t.Errorf("expected no upload, got %d", calls.Load())
	}
}

func TestRecognizer_APIError(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := newTranscriptionServer(t, http.StatusUnauthorized, `{"error":{"message":"bad key"}}`, &calls)

	rec, _ := openai.New(context.Background(), "sk-test", openai.WithBaseURL(srv.URL+"/"), openai.WithMaxRetries(0))
	rec.Accept(make([]byte, 100))

	_, err := rec.FinalResult()
	var recErr *stt.RecognizerError
	if !errors.As(err, &recErr) {
		t.Fatalf("expected *stt.RecognizerError, got %v", err)
	}
	if recErr.Engine != "openai" {
		t.Errorf("unexpected engine %q", recErr.Engine)
	}
}

func TestRecognizer_Closed(t *testing.T) {
	t.Parallel()
	rec, _ := openai.New(context.Background(), "sk-test")
	rec.Close()
	if _, err := rec.Accept([]byte{0, 0}); !errors.Is(err, stt.ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if err := rec.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
