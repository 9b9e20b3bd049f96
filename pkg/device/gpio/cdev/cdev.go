// Package cdev implements gpio.Input and gpio.Output on the Linux GPIO
// character device (/dev/gpiochipN) through go-gpiocdev. It is the
// libgpiod-style backend and needs no root privileges when the user is in
// the gpio group.
package cdev

import (
	"fmt"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"

	"github.com/MrWong99/voxpi/pkg/device/gpio"
)

const consumer = "voxpi"

// Output is an LED line requested as an output.
type Output struct {
	line *gpiocdev.Line
	once sync.Once
}

// OpenOutput requests offset on chip as an output driven low.
func OpenOutput(chip string, offset int) (*Output, error) {
	l, err := gpiocdev.RequestLine(chip, offset,
		gpiocdev.AsOutput(0),
		gpiocdev.WithConsumer(consumer+"-led"),
	)
	if err != nil {
		return nil, fmt.Errorf("cdev: request output %s:%d: %w", chip, offset, err)
	}
	return &Output{line: l}, nil
}

// Set drives the line.
func (o *Output) Set(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := o.line.SetValue(v); err != nil {
		return fmt.Errorf("cdev: set value: %w", err)
	}
	return nil
}

// Close drives the line low and releases it.
func (o *Output) Close() error {
	var err error
	o.once.Do(func() {
		_ = o.line.SetValue(0)
		err = o.line.Close()
	})
	return err
}

// Input is a button line requested with pull-up bias and edge detection.
type Input struct {
	line *gpiocdev.Line

	mu     sync.Mutex
	events chan gpio.Edge
	closed bool
	once   sync.Once
}

// OpenInput requests offset on chip as a pulled-up input reporting both
// edges, debounced by debounce.
func OpenInput(chip string, offset int, debounce time.Duration) (*Input, error) {
	in := &Input{events: make(chan gpio.Edge, 16)}
	opts := []gpiocdev.LineReqOption{
		gpiocdev.AsInput,
		gpiocdev.WithConsumer(consumer + "-button"),
		gpiocdev.WithPullUp,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(in.handle),
	}
	if debounce > 0 {
		opts = append(opts, gpiocdev.WithDebounce(debounce))
	}
	l, err := gpiocdev.RequestLine(chip, offset, opts...)
	if err != nil {
		return nil, fmt.Errorf("cdev: request input %s:%d: %w", chip, offset, err)
	}
	in.line = l
	return in, nil
}

// Pressed reports whether the line reads low.
func (in *Input) Pressed() (bool, error) {
	v, err := in.line.Value()
	if err != nil {
		return false, fmt.Errorf("cdev: read value: %w", err)
	}
	return v == 0, nil
}

// Events returns the debounced edge stream.
func (in *Input) Events() <-chan gpio.Edge { return in.events }

// Close releases the line and closes the event stream.
func (in *Input) Close() error {
	var err error
	in.once.Do(func() {
		err = in.line.Close()
		in.mu.Lock()
		in.closed = true
		close(in.events)
		in.mu.Unlock()
	})
	return err
}

func (in *Input) handle(evt gpiocdev.LineEvent) {
	edge, ok := edgeFromEvent(evt, time.Now())
	if !ok {
		return
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.closed {
		return
	}
	select {
	case in.events <- edge:
	default:
		// Consumer is behind; drop rather than stall the kernel reader.
	}
}

// edgeFromEvent maps a line event to a button edge. With pull-up a falling
// edge is a press.
func edgeFromEvent(evt gpiocdev.LineEvent, now time.Time) (gpio.Edge, bool) {
	switch evt.Type {
	case gpiocdev.LineEventFallingEdge:
		return gpio.Edge{Pressed: true, Time: now}, true
	case gpiocdev.LineEventRisingEdge:
		return gpio.Edge{Pressed: false, Time: now}, true
	default:
		return gpio.Edge{}, false
	}
}

var (
	_ gpio.Output = (*Output)(nil)
	_ gpio.Input  = (*Input)(nil)
)
