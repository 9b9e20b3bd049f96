package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"
)

// ErrEmptyRecording is returned by [Record] when no audio was captured.
var ErrEmptyRecording = errors.New("audio: recording is empty")

// Record captures microphone audio into a WAV file at path until ctx is
// cancelled or maxDuration elapses (0 records until cancellation). It
// returns the recorded duration.
func Record(ctx context.Context, path string, cfg CaptureConfig, maxDuration time.Duration) (time.Duration, error) {
	if maxDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, maxDuration)
		defer cancel()
	}

	capture, err := StartCapture(ctx, cfg)
	if err != nil {
		return 0, err
	}
	defer capture.Close()

	pcm, err := readAll(capture)
	if err != nil {
		return 0, err
	}
	format := capture.Format()
	if len(pcm) == 0 {
		return 0, ErrEmptyRecording
	}

	if err := os.WriteFile(path, EncodeWAV(pcm, format.SampleRate, format.Channels), 0o644); err != nil {
		return 0, fmt.Errorf("audio: write %q: %w", path, err)
	}
	d := ChunkDuration(pcm, format.SampleRate, format.Channels)
	slog.Info("recording saved", "path", path, "duration", d)
	return d, nil
}

// readAll drains src until io.EOF.
func readAll(src FrameSource) ([]byte, error) {
	var pcm []byte
	for {
		frame, err := src.ReadFrame()
		if errors.Is(err, io.EOF) {
			return pcm, nil
		}
		if err != nil {
			return pcm, err
		}
		pcm = append(pcm, frame...)
	}
}
