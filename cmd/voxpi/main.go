// Command voxpi is the Raspberry Pi voice toolkit: offline and cloud speech
// recognition, ElevenLabs speech synthesis, a GPIO button and LED, and the
// UPS battery gauge.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"sync/atomic"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/voxpi/internal/config"
	"github.com/MrWong99/voxpi/internal/observe"
	"github.com/MrWong99/voxpi/internal/store"
)

// command is one voxpi subcommand.
type command struct {
	summary string
	run     func(ctx context.Context, e *env, args []string) error
}

var commands = map[string]command{
	"transcribe": {"transcribe a mono 16-bit WAV file", cmdTranscribe},
	"listen":     {"transcribe the microphone until Ctrl+C or \"salir\"", cmdListen},
	"record":     {"record the microphone into a WAV file", cmdRecord},
	"speak":      {"speak text through ElevenLabs", cmdSpeak},
	"voices":     {"list ElevenLabs voices", cmdVoices},
	"history":    {"list or search stored transcripts", cmdHistory},
	"blink":      {"blink the LED", cmdBlink},
	"button":     {"mirror the button onto the LED and count presses", cmdButton},
	"ups":        {"print the UPS battery status", cmdUPS},
}

// env is the state shared by all subcommands.
type env struct {
	cfg        *config.Config
	configPath string
	level      *slog.LevelVar
	registry   *config.Registry
	metrics    *observe.Metrics

	// pg is set once a subcommand opens the transcript database, so the
	// readiness probe can reach it.
	pg atomic.Pointer[store.PostgresSink]
}

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "voxpi.yaml", "path to the YAML configuration file")
	envFile := flag.String("env", ".env", "dotenv file with API keys")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		return 2
	}
	name := flag.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "voxpi: unknown command %q\n", name)
		usage()
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "voxpi: %v\n", err)
		return 1
	}
	if err := config.ApplyEnv(cfg, *envFile); err != nil {
		fmt.Fprintf(os.Stderr, "voxpi: %v\n", err)
		return 1
	}

	level := new(slog.LevelVar)
	level.Set(slogLevel(cfg.LogLevel))
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{})
	if err != nil {
		slog.Error("failed to initialise telemetry", "error", err)
		return 1
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			slog.Warn("telemetry shutdown", "error", err)
		}
	}()

	reg := config.NewRegistry()
	registerRecognizers(reg)

	e := &env{
		cfg:        cfg,
		configPath: *configPath,
		level:      level,
		registry:   reg,
		metrics:    observe.DefaultMetrics(),
	}
	defer func() {
		if pg := e.pg.Load(); pg != nil {
			pg.Close()
		}
	}()

	if err := e.runWithMetricsServer(ctx, cmd, flag.Args()[1:]); err != nil {
		slog.Error(name+" failed", "error", err)
		return 1
	}
	return 0
}

// runWithMetricsServer runs cmd and, when configured, the observability
// endpoint next to it. The endpoint stops once cmd returns.
func (e *env) runWithMetricsServer(ctx context.Context, cmd command, args []string) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	if addr := e.cfg.Metrics.ListenAddr; addr != "" {
		g.Go(func() error {
			return observe.Serve(gctx, addr, observe.Handler(e.metrics, observe.Check{Name: "postgres", Check: e.pingStore}))
		})
	}
	g.Go(func() error {
		defer cancel()
		return cmd.run(gctx, e, args)
	})
	return g.Wait()
}

func (e *env) pingStore(ctx context.Context) error {
	if pg := e.pg.Load(); pg != nil {
		return pg.Ping(ctx)
	}
	return nil
}

// loadConfig loads path, falling back to the defaults when the file does not
// exist.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return config.Default(), nil
	}
	return cfg, err
}

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "usage: voxpi [-config file] [-env file] <command> [flags]\n\ncommands:\n")
	names := make([]string, 0, len(commands))
	for n := range commands {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(out, "  %-11s %s\n", n, commands[n].summary)
	}
	fmt.Fprintf(out, "\nglobal flags:\n")
	flag.PrintDefaults()
}
