package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Environment variables consulted by [ApplyEnv].
const (
	EnvElevenLabsKey = "ELEVENLABS_API_KEY"
	EnvOpenAIKey     = "OPENAI_API_KEY"
	EnvPostgresDSN   = "VOXPI_POSTGRES_DSN"
)

// ApplyEnv loads the given dotenv files (".env" when none are given) into
// the process environment and fills empty credential fields of cfg from it.
// Missing dotenv files are ignored. Variables already set in the
// environment win over dotenv values, and non-empty config fields win over
// both.
func ApplyEnv(cfg *Config, files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config: load %q: %w", f, err)
		}
	}

	setIfEmpty(&cfg.TTS.APIKey, EnvElevenLabsKey)
	if cfg.Recognizer.Engine == EngineOpenAI {
		setIfEmpty(&cfg.Recognizer.APIKey, EnvOpenAIKey)
	}
	setIfEmpty(&cfg.Store.PostgresDSN, EnvPostgresDSN)
	return nil
}

func setIfEmpty(dst *string, key string) {
	if *dst != "" {
		return
	}
	*dst = os.Getenv(key)
}
