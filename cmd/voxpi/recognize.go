package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/MrWong99/voxpi/internal/config"
	"github.com/MrWong99/voxpi/internal/observe"
	"github.com/MrWong99/voxpi/internal/store"
	"github.com/MrWong99/voxpi/internal/voicecmd"
	"github.com/MrWong99/voxpi/pkg/audio"
	"github.com/MrWong99/voxpi/pkg/device/gpio"
	"github.com/MrWong99/voxpi/pkg/provider/stt"
	"github.com/MrWong99/voxpi/pkg/transcript"
)

func cmdTranscribe(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("transcribe", flag.ContinueOnError)
	frameBytes := fs.Int("frame-bytes", audio.FileFrameBytes, "PCM bytes fed to the recognizer per call")
	save := fs.Bool("save", true, "write <stem>"+store.TranscriptSuffix)
	partial := fs.Bool("partial", false, "print partial hypotheses to stderr")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: voxpi transcribe [flags] <file.wav>")
	}
	path := fs.Arg(0)

	src, err := audio.OpenWAV(path, *frameBytes)
	if err != nil {
		return err
	}
	defer src.Close()
	format := src.Format()
	slog.Info("transcribing", "path", path, "sample_rate", format.SampleRate, "engine", e.cfg.Recognizer.Engine)

	opts := []transcript.Option{
		transcript.WithSegmentHandler(func(seg transcript.Segment) { fmt.Println(seg.Text) }),
	}
	if *partial {
		opts = append(opts, transcript.WithPartialHandler(printPartial))
	}
	tr, err := e.recognize(ctx, src, format.SampleRate, "file", opts...)
	if err != nil {
		return err
	}
	if len(tr.Segments) == 0 {
		fmt.Fprintln(os.Stderr, "(no speech recognized)")
	}

	if !*save {
		return nil
	}
	return e.save(ctx, store.Record{Source: path, Transcript: tr}, true)
}

func cmdListen(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("listen", flag.ContinueOnError)
	commands := fs.Bool("commands", false, "execute spoken commands (encender, apagar, salir)")
	partial := fs.Bool("partial", true, "print partial hypotheses to stderr")
	save := fs.Bool("save", false, "store the session transcript")
	if err := fs.Parse(args); err != nil {
		return err
	}

	listenCtx, stopListening := context.WithCancel(ctx)
	defer stopListening()

	if w := e.watchConfig(); w != nil {
		go w.Run(listenCtx)
	}

	opts := []transcript.Option{transcript.WithZeroLengthAsEnd(false)}
	if *partial {
		opts = append(opts, transcript.WithPartialHandler(printPartial))
	}

	var dispatcher *voicecmd.Dispatcher
	if *commands {
		dopts := []voicecmd.DispatcherOption{
			voicecmd.WithStop(stopListening),
			voicecmd.WithNotify(func(c voicecmd.Command) { fmt.Fprintf(os.Stderr, "» %s\n", c) }),
		}
		led, err := openLED(e.cfg.GPIO)
		if err != nil {
			slog.Warn("LED unavailable; voice commands will only be logged", "error", err)
		} else {
			defer led.Close()
			dopts = append(dopts, voicecmd.WithLED(led))
		}
		dispatcher = voicecmd.NewDispatcher(voicecmd.NewMatcher(), dopts...)
	}
	opts = append(opts, transcript.WithSegmentHandler(func(seg transcript.Segment) {
		fmt.Println(seg.Text)
		if dispatcher != nil {
			dispatcher.Handle(seg)
		}
	}))

	capture, err := audio.StartCapture(listenCtx, audio.CaptureConfig{
		Device:     e.cfg.Audio.Device,
		Format:     stt.Format{SampleRate: e.cfg.Audio.SampleRate, Channels: 1, BitsPerSample: 16},
		FrameBytes: e.cfg.Audio.FrameBytes,
	})
	if err != nil {
		return err
	}
	defer capture.Close()

	fmt.Fprintln(os.Stderr, "Escuchando... (Ctrl+C para terminar)")
	source := sessionSource(time.Now())
	tr, err := e.recognize(listenCtx, capture, capture.Format().SampleRate, "mic", opts...)
	if err != nil {
		return err
	}
	slog.Info("listening stopped", "segments", len(tr.Segments))

	if !*save {
		return nil
	}
	// The listen context may be gone already; persisting must not depend on it.
	return e.save(context.WithoutCancel(ctx), store.Record{Source: source, Transcript: tr}, true)
}

func cmdRecord(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("record", flag.ContinueOnError)
	duration := fs.Duration("duration", 0, "stop after this long (0 records until Ctrl+C)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: voxpi record [flags] <out.wav>")
	}

	fmt.Fprintln(os.Stderr, "Grabando... (Ctrl+C para terminar)")
	d, err := audio.Record(ctx, fs.Arg(0), audio.CaptureConfig{
		Device: e.cfg.Audio.Device,
		Format: stt.Format{SampleRate: e.cfg.Audio.SampleRate, Channels: 1, BitsPerSample: 16},
	}, *duration)
	if err != nil {
		return err
	}
	fmt.Printf("%s (%s)\n", fs.Arg(0), d.Round(time.Millisecond))
	return nil
}

// recognizerFlushTimeout bounds the final flush of a recognizer once the
// session context is done. Remote engines transcribe the whole utterance then.
const recognizerFlushTimeout = 30 * time.Second

// sessionSource names a microphone session after its start time, so saved
// sessions do not replace each other.
func sessionSource(start time.Time) string {
	return "mic_" + start.Format("20060102_150405")
}

// flushContext returns a context detached from ctx's cancellation that ends
// grace after ctx does, or when the returned cancel is called.
func flushContext(ctx context.Context, grace time.Duration) (context.Context, context.CancelFunc) {
	out, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(ctx, func() {
		timer := time.AfterFunc(grace, cancel)
		context.AfterFunc(out, func() { timer.Stop() })
	})
	return out, func() {
		stop()
		cancel()
	}
}

// recognize runs one recognition pass over src with the configured engine
// and records its metrics. kind labels the source ("file" or "mic").
//
// ctx only bounds reading src. The recognizer gets a context that survives
// its cancellation for up to recognizerFlushTimeout, so the trailing
// utterance is still flushed when a session is stopped.
func (e *env) recognize(ctx context.Context, src audio.FrameSource, sampleRate int, kind string, opts ...transcript.Option) (tr transcript.Transcript, err error) {
	ctx, span := observe.StartSpan(ctx, "recognize")
	defer func() { observe.EndSpan(span, err) }()
	log := observe.Logger(ctx)

	engine := string(e.cfg.Recognizer.Engine)
	recCtx, stopRec := flushContext(ctx, recognizerFlushTimeout)
	defer stopRec()
	rec, err := e.registry.CreateRecognizer(recCtx, e.cfg.Recognizer, sampleRate)
	if err != nil {
		return transcript.Transcript{}, err
	}
	defer func() {
		if err := rec.Close(); err != nil {
			log.Warn("close recognizer", "error", err)
		}
	}()

	counted := &countingSource{FrameSource: src}
	start := time.Now()
	tr, err = transcript.Run(ctx, counted, rec, opts...)
	elapsed := time.Since(start)

	e.metrics.RecordRecognition(ctx, engine, kind, elapsed, counted.frames, len(tr.Segments), err)
	if err != nil {
		return tr, err
	}
	log.Info("recognition finished",
		"engine", engine,
		"frames", counted.frames,
		"segments", len(tr.Segments),
		"elapsed", elapsed,
	)
	return tr, nil
}

// countingSource counts the frames read through it.
type countingSource struct {
	audio.FrameSource
	frames int
}

func (s *countingSource) ReadFrame() ([]byte, error) {
	frame, err := s.FrameSource.ReadFrame()
	if err == nil {
		s.frames++
	}
	return frame, err
}

// save persists rec to the configured sinks. withFile adds the text file
// sink next to the PostgreSQL history.
func (e *env) save(ctx context.Context, rec store.Record, withFile bool) error {
	var sinks store.Multi
	if withFile {
		fileSink := &store.FileSink{Dir: e.cfg.Store.Dir}
		sinks = append(sinks, fileSink)
		defer fmt.Fprintf(os.Stderr, "Transcripción guardada en %s\n", fileSink.PathFor(rec.Source))
	}
	if e.cfg.Store.PostgresDSN != "" {
		pg, err := e.openStore(ctx)
		if err != nil {
			return err
		}
		sinks = append(sinks, pg)
	}
	rec.CreatedAt = time.Now()
	return sinks.Save(ctx, rec)
}

// openStore connects to the transcript database once per process.
func (e *env) openStore(ctx context.Context) (*store.PostgresSink, error) {
	if pg := e.pg.Load(); pg != nil {
		return pg, nil
	}
	pg, err := store.NewPostgresSink(ctx, e.cfg.Store.PostgresDSN)
	if err != nil {
		return nil, err
	}
	e.pg.Store(pg)
	return pg, nil
}

// watchConfig reloads the config file while a long session runs. Only the
// log level is applied live.
func (e *env) watchConfig() *config.Watcher {
	if _, err := os.Stat(e.configPath); err != nil {
		return nil
	}
	w, err := config.NewWatcher(e.configPath, func(old, new *config.Config) {
		d := config.Diff(old, new)
		if d.LogLevelChanged {
			e.level.Set(slogLevel(d.NewLogLevel))
			slog.Info("log level changed", "level", d.NewLogLevel)
		}
		if len(d.RestartRequired) > 0 {
			slog.Warn("config changes need a restart", "sections", d.RestartRequired)
		}
	})
	if err != nil {
		slog.Warn("config watcher disabled", "error", err)
		return nil
	}
	return w
}

func printPartial(text string) {
	fmt.Fprintf(os.Stderr, "… %s\n", text)
}

// openLED opens the LED line on the configured backend.
func openLED(c config.GPIOConfig) (gpio.Output, error) {
	return openOutput(c, c.LEDPin)
}
