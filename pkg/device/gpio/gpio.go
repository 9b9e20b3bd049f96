// Package gpio defines caller-owned handles for a push button and an LED
// wired to Raspberry Pi GPIO lines, plus the blink and mirror loops built on
// them.
//
// Handles are acquired explicitly through a backend (see the cdev and periph
// subpackages) and must be released with Close on every exit path. Closing
// an [Output] drives the line low first so an interrupted program never
// leaves the LED lit.
package gpio

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const (
	// DefaultChip is the GPIO character device of the Raspberry Pi header.
	DefaultChip = "gpiochip0"

	// DefaultButtonPin is the BCM line of the push button.
	DefaultButtonPin = 23

	// DefaultLEDPin is the BCM line of the LED.
	DefaultLEDPin = 25

	// DefaultDebounce filters contact bounce on the button.
	DefaultDebounce = 10 * time.Millisecond
)

// Output is a digital output line such as an LED.
type Output interface {
	// Set drives the line high (on) or low.
	Set(on bool) error

	// Close drives the line low and releases it. Safe to call twice.
	Close() error
}

// Edge is a debounced button transition.
type Edge struct {
	// Pressed is true on press and false on release.
	Pressed bool
	Time    time.Time
}

// Input is a push button wired with a pull-up, so a pressed button reads
// low.
type Input interface {
	// Pressed reports the current level as a button state.
	Pressed() (bool, error)

	// Events delivers debounced transitions until Close. The channel is
	// closed by Close.
	Events() <-chan Edge

	// Close releases the line. Safe to call twice.
	Close() error
}

// Blink turns led on and off times times, holding each state for period.
// The LED is left off, also when ctx is cancelled part way through.
func Blink(ctx context.Context, led Output, times int, period time.Duration) error {
	for i := range times {
		if err := led.Set(true); err != nil {
			return fmt.Errorf("gpio: blink %d: %w", i+1, err)
		}
		slog.Debug("gpio: led on", "blink", i+1)
		if !sleep(ctx, period) {
			break
		}
		if err := led.Set(false); err != nil {
			return fmt.Errorf("gpio: blink %d: %w", i+1, err)
		}
		slog.Debug("gpio: led off", "blink", i+1)
		if !sleep(ctx, period) {
			break
		}
	}
	return led.Set(false)
}

// Mirror lights led while button is held until ctx ends or the button's
// event stream closes. onPress, if non-nil, is called with the running count
// after every press. It returns the number of presses seen. The LED is left
// off on return.
func Mirror(ctx context.Context, button Input, led Output, onPress func(count int)) (int, error) {
	pressed, err := button.Pressed()
	if err != nil {
		return 0, fmt.Errorf("gpio: read button: %w", err)
	}
	if err := led.Set(pressed); err != nil {
		return 0, fmt.Errorf("gpio: set led: %w", err)
	}

	var count int
	events := button.Events()
	for {
		select {
		case <-ctx.Done():
			return count, led.Set(false)
		case ev, ok := <-events:
			if !ok {
				return count, led.Set(false)
			}
			if ev.Pressed == pressed {
				continue
			}
			pressed = ev.Pressed
			if err := led.Set(pressed); err != nil {
				return count, fmt.Errorf("gpio: set led: %w", err)
			}
			if pressed {
				count++
				if onPress != nil {
					onPress(count)
				}
			}
		}
	}
}

// sleep waits for d or ctx, reporting false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
