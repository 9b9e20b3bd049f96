package voicecmd

import (
	"log/slog"

	"github.com/MrWong99/voxpi/pkg/device/gpio"
	"github.com/MrWong99/voxpi/pkg/transcript"
)

// Dispatcher executes the commands found in transcript segments. Its Handle
// method fits transcript.WithSegmentHandler.
type Dispatcher struct {
	matcher *Matcher
	led     gpio.Output
	stop    func()
	notify  func(Command)
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithLED drives led on CommandOn and CommandOff.
func WithLED(led gpio.Output) DispatcherOption {
	return func(d *Dispatcher) { d.led = led }
}

// WithStop calls stop on CommandExit, typically a context cancel func.
func WithStop(stop func()) DispatcherOption {
	return func(d *Dispatcher) { d.stop = stop }
}

// WithNotify calls fn for every executed command.
func WithNotify(fn func(Command)) DispatcherOption {
	return func(d *Dispatcher) { d.notify = fn }
}

// NewDispatcher returns a Dispatcher using m.
func NewDispatcher(m *Matcher, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{matcher: m}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Handle runs every command in seg in spoken order. LED errors are logged;
// the transcript keeps flowing.
func (d *Dispatcher) Handle(seg transcript.Segment) {
	for _, m := range d.matcher.Find(seg.Text) {
		slog.Info("voice command", "command", m.Command, "word", m.Word, "confidence", m.Confidence, "segment", seg.Index)
		d.execute(m.Command)
	}
}

func (d *Dispatcher) execute(cmd Command) {
	switch cmd {
	case CommandOn, CommandOff:
		if d.led == nil {
			break
		}
		if err := d.led.Set(cmd == CommandOn); err != nil {
			slog.Error("voice command: set led", "command", cmd, "error", err)
		}
	case CommandExit:
		if d.stop != nil {
			d.stop()
		}
	}
	if d.notify != nil {
		d.notify(cmd)
	}
}
