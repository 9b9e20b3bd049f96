package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"sync"

	"github.com/MrWong99/voxpi/pkg/provider/stt"
)

// execCommand is replaced in tests.
var execCommand = exec.CommandContext

// CaptureConfig configures live microphone capture through ALSA's arecord.
type CaptureConfig struct {
	// Device is the ALSA capture device (e.g., "plughw:1,0"). Empty selects
	// the default device.
	Device string

	// Format is the requested PCM format. Zero values select
	// [stt.DefaultFormat].
	Format stt.Format

	// FrameBytes is the size of each frame. Defaults to [CaptureFrameBytes].
	FrameBytes int

	// Binary is the recorder executable. Defaults to "arecord".
	Binary string
}

func (c CaptureConfig) withDefaults() CaptureConfig {
	if c.Format.SampleRate <= 0 {
		c.Format.SampleRate = stt.DefaultFormat.SampleRate
	}
	if c.Format.Channels <= 0 {
		c.Format.Channels = stt.DefaultFormat.Channels
	}
	if c.Format.BitsPerSample <= 0 {
		c.Format.BitsPerSample = stt.DefaultFormat.BitsPerSample
	}
	if c.FrameBytes <= 0 {
		c.FrameBytes = CaptureFrameBytes
	}
	if c.Binary == "" {
		c.Binary = "arecord"
	}
	return c
}

// args builds the arecord command line for raw mono S16_LE output on stdout.
func (c CaptureConfig) args() []string {
	args := []string{
		"-q",
		"-t", "raw",
		"-f", "S16_LE",
		"-r", strconv.Itoa(c.Format.SampleRate),
		"-c", strconv.Itoa(c.Format.Channels),
	}
	if c.Device != "" {
		args = append(args, "-D", c.Device)
	}
	return append(args, "-")
}

// Capture is a live FrameSource reading from an arecord subprocess. The
// subprocess is stopped when ctx passed to [StartCapture] is cancelled or
// when Close is called; ReadFrame then returns io.EOF.
type Capture struct {
	*ReaderSource
	cmd    *exec.Cmd
	stderr bytes.Buffer
	format stt.Format

	closeOnce sync.Once
	closeErr  error
}

// StartCapture launches the recorder and returns a FrameSource over its
// standard output. The format is validated before the process starts.
func StartCapture(ctx context.Context, cfg CaptureConfig) (*Capture, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Format.Validate(); err != nil {
		return nil, fmt.Errorf("audio: capture: %w", err)
	}

	c := &Capture{format: cfg.Format}
	c.cmd = execCommand(ctx, cfg.Binary, cfg.args()...)
	c.cmd.Stderr = &c.stderr
	stdout, err := c.cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("audio: capture: stdout pipe: %w", err)
	}
	if err := c.cmd.Start(); err != nil {
		return nil, fmt.Errorf("audio: capture: start %s: %w", cfg.Binary, err)
	}
	c.ReaderSource = NewReaderSource(stdout, cfg.FrameBytes)

	slog.Debug("audio capture started",
		"binary", cfg.Binary,
		"device", cfg.Device,
		"sample_rate", cfg.Format.SampleRate,
		"frame_bytes", cfg.FrameBytes,
	)
	return c, nil
}

// Format returns the capture format.
func (c *Capture) Format() stt.Format { return c.format }

// Close stops the recorder and waits for it to exit. An exit caused by the
// stop itself is not reported as an error. Calling Close more than once is
// safe.
func (c *Capture) Close() error {
	c.closeOnce.Do(func() {
		if c.cmd.Process != nil {
			_ = c.cmd.Process.Kill()
		}
		err := c.cmd.Wait()
		var exitErr *exec.ExitError
		if err != nil && !errors.As(err, &exitErr) {
			c.closeErr = fmt.Errorf("audio: capture: wait: %w", err)
		}
		if c.stderr.Len() > 0 {
			slog.Debug("audio capture stderr", "output", c.stderr.String())
		}
	})
	return c.closeErr
}

var _ FrameSource = (*Capture)(nil)
