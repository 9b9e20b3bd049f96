package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/MrWong99/voxpi/internal/resilience"
	"github.com/MrWong99/voxpi/pkg/audio"
	"github.com/MrWong99/voxpi/pkg/provider/tts"
	"github.com/MrWong99/voxpi/pkg/provider/tts/elevenlabs"
)

const exitWord = "salir"

func cmdSpeak(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("speak", flag.ContinueOnError)
	voiceName := fs.String("voice", e.cfg.TTS.Voice, "voice name or ID")
	text := fs.String("text", "", "text to speak; reads lines from stdin when empty")
	if err := fs.Parse(args); err != nil {
		return err
	}

	p, err := e.newTTS()
	if err != nil {
		return err
	}
	rate := p.SampleRate()
	if rate == 0 {
		return fmt.Errorf("output format %q is not raw PCM", e.cfg.TTS.OutputFormat)
	}
	voice, err := tts.ResolveVoice(ctx, p, tts.VoiceProfile{Name: *voiceName})
	if err != nil {
		return err
	}
	player := audio.NewPlayer(rate)

	if *text != "" {
		return e.speak(ctx, p, player, *text, voice)
	}

	breaker := resilience.NewBreaker("elevenlabs")
	fmt.Fprintf(os.Stderr, "Escribe el texto a decir (%q para terminar).\n", exitWord)
	lines := readLines(ctx)
	for {
		fmt.Fprint(os.Stderr, "> ")
		var line string
		var ok bool
		select {
		case <-ctx.Done():
			return nil
		case line, ok = <-lines:
		}
		if !ok {
			return nil
		}
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case strings.EqualFold(line, exitWord):
			return nil
		}
		err := breaker.Do(ctx, func(ctx context.Context) error {
			return e.speak(ctx, p, player, line, voice)
		})
		switch {
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, resilience.ErrOpen):
			fmt.Fprintln(os.Stderr, "ElevenLabs no responde; inténtalo más tarde.")
		case err != nil:
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
}

func cmdVoices(ctx context.Context, e *env, args []string) error {
	p, err := e.newTTS()
	if err != nil {
		return err
	}
	voices, err := p.ListVoices(ctx)
	if err != nil {
		return err
	}
	for _, v := range voices {
		fmt.Printf("%s\t%s\n", v.Name, v.ID)
	}
	return nil
}

func (e *env) newTTS() (*elevenlabs.Provider, error) {
	c := e.cfg.TTS
	if c.APIKey == "" {
		return nil, errors.New("no ElevenLabs API key; set tts.api_key or ELEVENLABS_API_KEY")
	}
	var opts []elevenlabs.Option
	if c.Model != "" {
		opts = append(opts, elevenlabs.WithModel(c.Model))
	}
	if c.OutputFormat != "" {
		opts = append(opts, elevenlabs.WithOutputFormat(c.OutputFormat))
	}
	return elevenlabs.New(c.APIKey, opts...)
}

func (e *env) speak(ctx context.Context, p tts.Provider, out tts.Playback, text string, voice tts.VoiceProfile) error {
	start := time.Now()
	err := tts.Speak(ctx, p, out, text, voice)
	e.metrics.TTSDuration.Record(ctx, time.Since(start).Seconds())
	return err
}

// readLines delivers stdin lines until EOF. The goroutine outlives ctx when
// blocked on a read, which is harmless for a process about to exit.
func readLines(ctx context.Context) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			select {
			case ch <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}
