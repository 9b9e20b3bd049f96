package config_test

import (
	"strings"
	"testing"

	"github.com/MrWong99/voxpi/internal/config"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{name: "invalid log level", yaml: "log_level: verbose\n", wantErr: "log_level"},
		{name: "zero sample rate", yaml: "audio:\n  sample_rate: 0\n", wantErr: "audio.sample_rate"},
		{name: "odd frame size", yaml: "audio:\n  frame_bytes: 4001\n", wantErr: "audio.frame_bytes"},
		{name: "unknown engine", yaml: "recognizer:\n  engine: kaldi\n", wantErr: "recognizer.engine"},
		{name: "vosk without model", yaml: "recognizer:\n  engine: vosk\n  model_path: \"\"\n", wantErr: "model_path"},
		{name: "whisper without model or server", yaml: "recognizer:\n  engine: whisper\n  model_path: \"\"\n", wantErr: "server_url"},
		{name: "empty voice", yaml: "tts:\n  voice: \"\"\n", wantErr: "tts.voice"},
		{name: "unknown gpio backend", yaml: "gpio:\n  backend: sysfs\n", wantErr: "gpio.backend"},
		{name: "negative pin", yaml: "gpio:\n  led_pin: -1\n", wantErr: "gpio.led_pin"},
		{name: "shared pin", yaml: "gpio:\n  button_pin: 25\n", wantErr: "both 25"},
		{name: "negative debounce", yaml: "gpio:\n  debounce: -5ms\n", wantErr: "gpio.debounce"},
		{name: "reserved i2c address", yaml: "ups:\n  address: 0x78\n", wantErr: "ups.address"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := config.LoadFromReader(strings.NewReader(tt.yaml))
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error should mention %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidate_OpenAIWithoutKeyIsValid(t *testing.T) {
	t.Parallel()
	// The key may still come from OPENAI_API_KEY.
	if _, err := config.LoadFromReader(strings.NewReader("recognizer:\n  engine: openai\n")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	t.Parallel()
	yaml := `
log_level: loud
recognizer:
  engine: kaldi
gpio:
  backend: sysfs
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected errors, got nil")
	}
	for _, want := range []string{"log_level", "recognizer.engine", "gpio.backend"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("joined error should mention %q, got: %v", want, err)
		}
	}
}
