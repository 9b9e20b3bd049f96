package audio

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strconv"
	"testing"
	"time"

	"github.com/MrWong99/voxpi/pkg/provider/stt"
)

// fakeRecorder returns an execCommand replacement that re-runs the test
// binary as a helper process emitting n bytes of PCM.
func fakeRecorder(n int) func(ctx context.Context, name string, args ...string) *exec.Cmd {
	return func(ctx context.Context, name string, args ...string) *exec.Cmd {
		cs := append([]string{"-test.run=TestHelperRecorder", "--", name}, args...)
		cmd := exec.CommandContext(ctx, os.Args[0], cs...)
		cmd.Env = append(os.Environ(), "VOXPI_HELPER_RECORDER=1", "VOXPI_HELPER_BYTES="+strconv.Itoa(n))
		return cmd
	}
}

// TestHelperRecorder is not a real test; it stands in for arecord.
func TestHelperRecorder(t *testing.T) {
	if os.Getenv("VOXPI_HELPER_RECORDER") != "1" {
		return
	}
	n, _ := strconv.Atoi(os.Getenv("VOXPI_HELPER_BYTES"))
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte(i)
	}
	os.Stdout.Write(buf)
	os.Exit(0)
}

func withFakeRecorder(t *testing.T, n int) {
	t.Helper()
	orig := execCommand
	execCommand = fakeRecorder(n)
	t.Cleanup(func() { execCommand = orig })
}

func TestCaptureConfig_Args(t *testing.T) {
	cfg := CaptureConfig{Device: "plughw:1,0"}.withDefaults()
	args := cfg.args()

	for _, want := range []string{"-t", "raw", "S16_LE", "16000", "-D", "plughw:1,0"} {
		if !slices.Contains(args, want) {
			t.Errorf("expected %q in args %v", want, args)
		}
	}
	if cfg.Binary != "arecord" {
		t.Errorf("expected default binary arecord, got %q", cfg.Binary)
	}
	if cfg.FrameBytes != CaptureFrameBytes {
		t.Errorf("expected default frame bytes %d, got %d", CaptureFrameBytes, cfg.FrameBytes)
	}
}

func TestStartCapture_RejectsStereo(t *testing.T) {
	_, err := StartCapture(context.Background(), CaptureConfig{
		Format: stt.Format{SampleRate: 16000, Channels: 2, BitsPerSample: 16},
	})
	if !errors.Is(err, stt.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestCapture_ReadsFramesUntilEOF(t *testing.T) {
	withFakeRecorder(t, 10000)

	c, err := StartCapture(context.Background(), CaptureConfig{FrameBytes: 4000})
	if err != nil {
		t.Fatalf("StartCapture: %v", err)
	}
	defer c.Close()

	var total int
	for {
		f, err := c.ReadFrame()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("ReadFrame: %v", err)
		}
		total += len(f)
	}
	if total != 10000 {
		t.Errorf("expected 10000 bytes, got %d", total)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestRecord_WritesWAV(t *testing.T) {
	withFakeRecorder(t, 32000)
	path := filepath.Join(t.TempDir(), "rec.wav")

	d, err := Record(context.Background(), path, CaptureConfig{}, 0)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if d != time.Second {
		t.Errorf("expected 1s, got %v", d)
	}

	src, err := OpenWAV(path, FileFrameBytes)
	if err != nil {
		t.Fatalf("OpenWAV: %v", err)
	}
	defer src.Close()
	pcm, err := readAll(src)
	if err != nil {
		t.Fatalf("readAll: %v", err)
	}
	if len(pcm) != 32000 {
		t.Errorf("expected 32000 PCM bytes, got %d", len(pcm))
	}
}

func TestRecord_EmptyRecording(t *testing.T) {
	withFakeRecorder(t, 0)
	path := filepath.Join(t.TempDir(), "rec.wav")

	_, err := Record(context.Background(), path, CaptureConfig{}, 0)
	if !errors.Is(err, ErrEmptyRecording) {
		t.Fatalf("expected ErrEmptyRecording, got %v", err)
	}
	if _, statErr := os.Stat(path); !errors.Is(statErr, os.ErrNotExist) {
		t.Errorf("expected no file to be written, stat err: %v", statErr)
	}
}
