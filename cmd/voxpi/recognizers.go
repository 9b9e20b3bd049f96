package main

import (
	"context"
	"errors"

	"github.com/MrWong99/voxpi/internal/config"
	"github.com/MrWong99/voxpi/pkg/provider/stt"
	"github.com/MrWong99/voxpi/pkg/provider/stt/openai"
	"github.com/MrWong99/voxpi/pkg/provider/stt/vosk"
	"github.com/MrWong99/voxpi/pkg/provider/stt/whisper"
)

// registerRecognizers wires every built-in engine into reg.
func registerRecognizers(reg *config.Registry) {
	reg.RegisterRecognizer(config.EngineVosk, func(_ context.Context, rc config.RecognizerConfig, sampleRate int) (stt.Recognizer, error) {
		model, err := vosk.LoadModel(rc.ModelPath)
		if err != nil {
			return nil, err
		}
		rec, err := vosk.New(model,
			vosk.WithSampleRate(sampleRate),
			vosk.WithWords(rc.Words),
			vosk.WithLogLevel(-1),
		)
		if err != nil {
			model.Close()
			return nil, err
		}
		return &modelRecognizer{Recognizer: rec, model: model}, nil
	})

	reg.RegisterRecognizer(config.EngineWhisper, func(ctx context.Context, rc config.RecognizerConfig, sampleRate int) (stt.Recognizer, error) {
		var opts []whisper.EngineOption
		if rc.Language != "" {
			opts = append(opts, whisper.WithLanguage(rc.Language))
		}
		if rc.Model != "" {
			opts = append(opts, whisper.WithModel(rc.Model))
		}

		var (
			engine whisper.Engine
			err    error
		)
		if rc.ServerURL != "" {
			engine, err = whisper.NewServer(rc.ServerURL, opts...)
		} else {
			engine, err = whisper.LoadNative(rc.ModelPath, opts...)
		}
		if err != nil {
			return nil, err
		}
		return whisper.New(ctx, engine, whisper.WithSampleRate(sampleRate)), nil
	})

	reg.RegisterRecognizer(config.EngineOpenAI, func(ctx context.Context, rc config.RecognizerConfig, sampleRate int) (stt.Recognizer, error) {
		opts := []openai.Option{openai.WithSampleRate(sampleRate)}
		if rc.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(rc.BaseURL))
		}
		if rc.Model != "" {
			opts = append(opts, openai.WithModel(rc.Model))
		}
		if rc.Language != "" {
			opts = append(opts, openai.WithLanguage(rc.Language))
		}
		return openai.New(ctx, rc.APIKey, opts...)
	})
}

// modelRecognizer frees the Vosk model together with its only recognizer.
type modelRecognizer struct {
	stt.Recognizer
	model *vosk.Model
}

func (r *modelRecognizer) Close() error {
	return errors.Join(r.Recognizer.Close(), r.model.Close())
}
