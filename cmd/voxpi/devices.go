package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrWong99/voxpi/internal/config"
	"github.com/MrWong99/voxpi/pkg/device/gpio"
	"github.com/MrWong99/voxpi/pkg/device/gpio/cdev"
	"github.com/MrWong99/voxpi/pkg/device/gpio/periph"
	"github.com/MrWong99/voxpi/pkg/device/ups"
)

func openOutput(c config.GPIOConfig, pin int) (gpio.Output, error) {
	if c.Backend == config.GPIOPeriph {
		out, err := periph.OpenOutput(periph.PinName(pin))
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	out, err := cdev.OpenOutput(c.Chip, pin)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func openButton(c config.GPIOConfig) (gpio.Input, error) {
	if c.Backend == config.GPIOPeriph {
		in, err := periph.OpenInput(periph.PinName(c.ButtonPin), c.Debounce)
		if err != nil {
			return nil, err
		}
		return in, nil
	}
	in, err := cdev.OpenInput(c.Chip, c.ButtonPin, c.Debounce)
	if err != nil {
		return nil, err
	}
	return in, nil
}

func cmdBlink(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("blink", flag.ContinueOnError)
	times := fs.Int("times", 5, "number of blinks")
	period := fs.Duration("period", time.Second, "on and off time")
	if err := fs.Parse(args); err != nil {
		return err
	}

	led, err := openLED(e.cfg.GPIO)
	if err != nil {
		return err
	}
	defer led.Close()
	return gpio.Blink(ctx, led, *times, *period)
}

func cmdButton(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("button", flag.ContinueOnError)
	duration := fs.Duration("duration", 30*time.Second, "how long to watch the button (0 until Ctrl+C)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	button, err := openButton(e.cfg.GPIO)
	if err != nil {
		return err
	}
	defer button.Close()
	led, err := openLED(e.cfg.GPIO)
	if err != nil {
		return err
	}
	defer led.Close()

	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	fmt.Println("Presiona el botón (Ctrl+C para terminar)")
	n, err := gpio.Mirror(ctx, button, led, func(count int) {
		e.metrics.RecordButtonPress(ctx)
		fmt.Printf("¡Botón presionado! (%d)\n", count)
	})
	fmt.Printf("Total de pulsaciones: %d\n", n)
	return err
}

func cmdUPS(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("ups", flag.ContinueOnError)
	watch := fs.Duration("watch", 0, "repeat the reading at this interval")
	if err := fs.Parse(args); err != nil {
		return err
	}

	bus, err := ups.OpenI2C(e.cfg.UPS.Bus)
	if err != nil {
		return err
	}
	defer bus.Close()
	r := &ups.Reader{Bus: bus, Addr: e.cfg.UPS.Address}

	for {
		s, err := r.Read(ctx)
		if err != nil {
			return err
		}
		e.metrics.UPSVoltage.Record(ctx, s.Voltage)
		fmt.Println(s)
		slog.Debug("ups reading", "voltage", s.Voltage, "capacity", s.Capacity, "charging", s.Charging())

		if *watch <= 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(*watch):
		}
		fmt.Println()
	}
}
