package config_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/MrWong99/voxpi/internal/config"
	"github.com/MrWong99/voxpi/pkg/provider/stt"
)

const validYAML = `
log_level: debug
audio:
  sample_rate: 16000
  frame_bytes: 4000
  device: plughw:1,0
recognizer:
  engine: whisper
  server_url: http://localhost:8080
  language: es
tts:
  voice: Rachel
  output_format: pcm_22050
gpio:
  backend: periph
  button_pin: 17
  led_pin: 27
  debounce: 25ms
ups:
  bus: "1"
  address: 0x36
store:
  dir: /var/lib/voxpi
metrics:
  listen_addr: ":9090"
`

func TestLoadFromReader_Valid(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.LogLevel != config.LogDebug {
		t.Errorf("log_level: got %q, want %q", cfg.LogLevel, config.LogDebug)
	}
	if cfg.Audio.FrameBytes != 4000 || cfg.Audio.Device != "plughw:1,0" {
		t.Errorf("audio: got %+v", cfg.Audio)
	}
	if cfg.Recognizer.Engine != config.EngineWhisper || cfg.Recognizer.ServerURL != "http://localhost:8080" {
		t.Errorf("recognizer: got %+v", cfg.Recognizer)
	}
	if cfg.GPIO.Backend != config.GPIOPeriph || cfg.GPIO.ButtonPin != 17 || cfg.GPIO.LEDPin != 27 {
		t.Errorf("gpio: got %+v", cfg.GPIO)
	}
	if cfg.GPIO.Debounce != 25*time.Millisecond {
		t.Errorf("gpio.debounce: got %s, want 25ms", cfg.GPIO.Debounce)
	}
	if cfg.UPS.Address != 0x36 {
		t.Errorf("ups.address: got %#x, want 0x36", cfg.UPS.Address)
	}
	if cfg.Metrics.ListenAddr != ":9090" {
		t.Errorf("metrics.listen_addr: got %q", cfg.Metrics.ListenAddr)
	}
	// Unset fields keep their defaults.
	if cfg.TTS.Model != "eleven_multilingual_v2" {
		t.Errorf("tts.model default lost: got %q", cfg.TTS.Model)
	}
	if cfg.GPIO.Chip != "gpiochip0" {
		t.Errorf("gpio.chip default lost: got %q", cfg.GPIO.Chip)
	}
}

func TestLoadFromReader_EmptyIsDefault(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("unexpected error for empty config: %v", err)
	}
	def := config.Default()
	if *cfg != *def {
		t.Errorf("empty config should equal Default()\n got %+v\nwant %+v", *cfg, *def)
	}
}

func TestDefault(t *testing.T) {
	t.Parallel()
	cfg := config.Default()
	if err := config.Validate(cfg); err != nil {
		t.Fatalf("Default() must validate: %v", err)
	}
	if cfg.Audio.SampleRate != 16000 {
		t.Errorf("sample_rate: got %d", cfg.Audio.SampleRate)
	}
	if cfg.GPIO.ButtonPin != 23 || cfg.GPIO.LEDPin != 25 {
		t.Errorf("pins: got button=%d led=%d", cfg.GPIO.ButtonPin, cfg.GPIO.LEDPin)
	}
	if cfg.TTS.Voice != "Rachel" {
		t.Errorf("voice: got %q", cfg.TTS.Voice)
	}
}

func TestLoadFromReader_UnknownField(t *testing.T) {
	t.Parallel()
	_, err := config.LoadFromReader(strings.NewReader("recogniser:\n  engine: vosk\n"))
	if err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
	if !strings.Contains(err.Error(), "recogniser") {
		t.Errorf("error should name the unknown field, got: %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()
	if _, err := config.Load("/nonexistent/voxpi.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

// ── Registry ─────────────────────────────────────────────────────────────────

type stubRecognizer struct{ stt.Recognizer }

func TestRegistry_Unknown(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()
	_, err := reg.CreateRecognizer(context.Background(), config.RecognizerConfig{Engine: config.EngineVosk}, 16000)
	if !errors.Is(err, config.ErrEngineNotRegistered) {
		t.Fatalf("expected ErrEngineNotRegistered, got %v", err)
	}
}

func TestRegistry_Registered(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()
	var gotRate int
	var gotCfg config.RecognizerConfig
	reg.RegisterRecognizer(config.EngineVosk, func(_ context.Context, cfg config.RecognizerConfig, sampleRate int) (stt.Recognizer, error) {
		gotCfg, gotRate = cfg, sampleRate
		return stubRecognizer{}, nil
	})

	want := config.RecognizerConfig{Engine: config.EngineVosk, ModelPath: "/m"}
	rec, err := reg.CreateRecognizer(context.Background(), want, 8000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec == nil {
		t.Fatal("expected recognizer")
	}
	if gotCfg != want || gotRate != 8000 {
		t.Errorf("factory got cfg=%+v rate=%d", gotCfg, gotRate)
	}
}

func TestRegistry_FactoryError(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()
	reg.RegisterRecognizer(config.EngineVosk, func(context.Context, config.RecognizerConfig, int) (stt.Recognizer, error) {
		return nil, stt.ErrModelNotFound
	})
	_, err := reg.CreateRecognizer(context.Background(), config.RecognizerConfig{Engine: config.EngineVosk}, 16000)
	if !errors.Is(err, stt.ErrModelNotFound) {
		t.Fatalf("expected wrapped ErrModelNotFound, got %v", err)
	}
}

// ── ApplyEnv ─────────────────────────────────────────────────────────────────

func TestApplyEnv(t *testing.T) {
	t.Setenv(config.EnvElevenLabsKey, "xi-key")
	t.Setenv(config.EnvOpenAIKey, "sk-key")
	t.Setenv(config.EnvPostgresDSN, "postgres://localhost/voxpi")

	cfg := config.Default()
	cfg.Recognizer.Engine = config.EngineOpenAI
	if err := config.ApplyEnv(cfg, "/nonexistent/.env"); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.TTS.APIKey != "xi-key" {
		t.Errorf("tts.api_key: got %q", cfg.TTS.APIKey)
	}
	if cfg.Recognizer.APIKey != "sk-key" {
		t.Errorf("recognizer.api_key: got %q", cfg.Recognizer.APIKey)
	}
	if cfg.Store.PostgresDSN != "postgres://localhost/voxpi" {
		t.Errorf("store.postgres_dsn: got %q", cfg.Store.PostgresDSN)
	}
}

func TestApplyEnv_ConfigWins(t *testing.T) {
	t.Setenv(config.EnvElevenLabsKey, "from-env")

	cfg := config.Default()
	cfg.TTS.APIKey = "from-config"
	if err := config.ApplyEnv(cfg, "/nonexistent/.env"); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.TTS.APIKey != "from-config" {
		t.Errorf("config value should win, got %q", cfg.TTS.APIKey)
	}
}

func TestApplyEnv_DotenvFile(t *testing.T) {
	// godotenv does not override variables that are already set, even to
	// the empty string.
	t.Setenv(config.EnvElevenLabsKey, "")
	os.Unsetenv(config.EnvElevenLabsKey)

	path := t.TempDir() + "/.env"
	writeConfig(t, path, config.EnvElevenLabsKey+"=dotenv-key\n")

	cfg := config.Default()
	if err := config.ApplyEnv(cfg, path); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.TTS.APIKey != "dotenv-key" {
		t.Errorf("tts.api_key: got %q, want dotenv-key", cfg.TTS.APIKey)
	}
}
