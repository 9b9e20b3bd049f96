package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r over [Default] and validates
// the result. Fields absent from the document keep their defaults; an empty
// document yields the defaults.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
// Missing credentials are only warned about because [ApplyEnv] may still
// supply them.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.LogLevel != "" && !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}

	// Audio
	if cfg.Audio.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate %d must be positive", cfg.Audio.SampleRate))
	}
	if cfg.Audio.FrameBytes <= 0 || cfg.Audio.FrameBytes%2 != 0 {
		errs = append(errs, fmt.Errorf("audio.frame_bytes %d must be a positive even number", cfg.Audio.FrameBytes))
	}

	// Recognizer
	rc := cfg.Recognizer
	switch {
	case !rc.Engine.IsValid():
		errs = append(errs, fmt.Errorf("recognizer.engine %q is invalid; valid values: vosk, whisper, openai", rc.Engine))
	case rc.Engine == EngineVosk && rc.ModelPath == "":
		errs = append(errs, errors.New("recognizer.model_path is required when engine is vosk"))
	case rc.Engine == EngineWhisper && rc.ModelPath == "" && rc.ServerURL == "":
		errs = append(errs, errors.New("recognizer: engine whisper requires model_path or server_url"))
	case rc.Engine == EngineOpenAI && rc.APIKey == "":
		slog.Warn("recognizer.api_key is empty; set OPENAI_API_KEY before using the openai engine")
	}

	// TTS
	if cfg.TTS.Voice == "" {
		errs = append(errs, errors.New("tts.voice is required"))
	}
	if cfg.TTS.APIKey == "" {
		slog.Debug("tts.api_key is empty; ELEVENLABS_API_KEY will be consulted")
	}

	// GPIO
	if !cfg.GPIO.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("gpio.backend %q is invalid; valid values: cdev, periph", cfg.GPIO.Backend))
	}
	if cfg.GPIO.ButtonPin < 0 {
		errs = append(errs, fmt.Errorf("gpio.button_pin %d must not be negative", cfg.GPIO.ButtonPin))
	}
	if cfg.GPIO.LEDPin < 0 {
		errs = append(errs, fmt.Errorf("gpio.led_pin %d must not be negative", cfg.GPIO.LEDPin))
	}
	if cfg.GPIO.ButtonPin == cfg.GPIO.LEDPin {
		errs = append(errs, fmt.Errorf("gpio.button_pin and gpio.led_pin are both %d", cfg.GPIO.LEDPin))
	}
	if cfg.GPIO.Debounce < 0 {
		errs = append(errs, fmt.Errorf("gpio.debounce %s must not be negative", cfg.GPIO.Debounce))
	}

	// UPS: 7-bit addresses outside the reserved ranges.
	if cfg.UPS.Address < 0x03 || cfg.UPS.Address > 0x77 {
		errs = append(errs, fmt.Errorf("ups.address %#x is outside the 7-bit I2C range 0x03-0x77", cfg.UPS.Address))
	}

	return errors.Join(errs...)
}
