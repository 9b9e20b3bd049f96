// Package periph implements gpio.Input and gpio.Output with the periph.io
// host drivers. Pins are addressed by name, e.g. "GPIO23", as in gpiozero.
package periph

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	pgpio "periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/MrWong99/voxpi/pkg/device/gpio"
)

var initOnce = sync.OnceValue(func() error {
	_, err := host.Init()
	return err
})

// PinName returns the periph name of BCM line n.
func PinName(n int) string { return "GPIO" + strconv.Itoa(n) }

func lookup(name string) (pgpio.PinIO, error) {
	if err := initOnce(); err != nil {
		return nil, fmt.Errorf("periph: init host: %w", err)
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("periph: no pin named %q", name)
	}
	return p, nil
}

// Output drives a pin as an LED.
type Output struct {
	pin  pgpio.PinIO
	once sync.Once
}

// OpenOutput configures the named pin as an output driven low.
func OpenOutput(name string) (*Output, error) {
	p, err := lookup(name)
	if err != nil {
		return nil, err
	}
	return NewOutput(p)
}

// NewOutput configures an already resolved pin as an output driven low.
func NewOutput(p pgpio.PinIO) (*Output, error) {
	if err := p.Out(pgpio.Low); err != nil {
		return nil, fmt.Errorf("periph: configure %s as output: %w", p.Name(), err)
	}
	return &Output{pin: p}, nil
}

// Set drives the pin.
func (o *Output) Set(on bool) error {
	if err := o.pin.Out(pgpio.Level(on)); err != nil {
		return fmt.Errorf("periph: set %s: %w", o.pin.Name(), err)
	}
	return nil
}

// Close drives the pin low and halts it.
func (o *Output) Close() error {
	var err error
	o.once.Do(func() {
		_ = o.pin.Out(pgpio.Low)
		err = o.pin.Halt()
	})
	return err
}

// Input watches a pulled-up button pin for edges.
type Input struct {
	pin      pgpio.PinIO
	debounce time.Duration
	events   chan gpio.Edge
	done     chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

// OpenInput configures the named pin as a pulled-up input with edge
// detection and starts watching it.
func OpenInput(name string, debounce time.Duration) (*Input, error) {
	p, err := lookup(name)
	if err != nil {
		return nil, err
	}
	return NewInput(p, debounce)
}

// NewInput configures an already resolved pin as a pulled-up input and
// starts watching it.
func NewInput(p pgpio.PinIO, debounce time.Duration) (*Input, error) {
	if err := p.In(pgpio.PullUp, pgpio.BothEdges); err != nil {
		return nil, fmt.Errorf("periph: configure %s as input: %w", p.Name(), err)
	}
	in := &Input{
		pin:      p,
		debounce: debounce,
		events:   make(chan gpio.Edge, 16),
		done:     make(chan struct{}),
	}
	in.wg.Add(1)
	go in.watch()
	return in, nil
}

// Pressed reports whether the pin reads low.
func (in *Input) Pressed() (bool, error) {
	return in.pin.Read() == pgpio.Low, nil
}

// Events returns the debounced edge stream.
func (in *Input) Events() <-chan gpio.Edge { return in.events }

// Close stops watching, closes the event stream and halts the pin.
func (in *Input) Close() error {
	var err error
	in.once.Do(func() {
		close(in.done)
		in.wg.Wait()
		close(in.events)
		err = in.pin.Halt()
	})
	return err
}

// watch polls WaitForEdge with a short timeout so Close is observed.
func (in *Input) watch() {
	defer in.wg.Done()
	last := in.pin.Read()
	var lastChange time.Time
	for {
		select {
		case <-in.done:
			return
		default:
		}
		if !in.pin.WaitForEdge(100 * time.Millisecond) {
			continue
		}
		now := time.Now()
		level := in.pin.Read()
		if level == last || now.Sub(lastChange) < in.debounce {
			continue
		}
		last, lastChange = level, now
		select {
		case in.events <- gpio.Edge{Pressed: level == pgpio.Low, Time: now}:
		default:
		}
	}
}

var (
	_ gpio.Output = (*Output)(nil)
	_ gpio.Input  = (*Input)(nil)
)
