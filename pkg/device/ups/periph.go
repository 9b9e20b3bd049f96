package ups

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// I2CBus is a Bus on a host I2C adapter opened through periph.
type I2CBus struct {
	bus i2c.BusCloser
}

// OpenI2C opens the named I2C bus ("1" is /dev/i2c-1 on a Pi 2 or newer).
// An empty name picks the first available bus.
func OpenI2C(name string) (*I2CBus, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("ups: init host: %w", err)
	}
	b, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("ups: open i2c bus %q: %w", name, err)
	}
	return &I2CBus{bus: b}, nil
}

// Tx implements Bus.
func (b *I2CBus) Tx(addr uint16, w, r []byte) error {
	d := i2c.Dev{Bus: b.bus, Addr: addr}
	return d.Tx(w, r)
}

// Close releases the bus.
func (b *I2CBus) Close() error {
	return b.bus.Close()
}

var _ Bus = (*I2CBus)(nil)
