// Package ups reads battery status from an I2C UPS HAT (X1200 series, MAX17040
// style fuel gauge) at address 0x36.
package ups

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"
)

const (
	// DefaultAddress is the usual I2C address of the fuel gauge.
	DefaultAddress uint16 = 0x36

	regStatus   = 0x01
	regVoltage  = 0x02
	regCapacity = 0x04
)

// Bus performs one write-then-read I2C transaction.
type Bus interface {
	Tx(addr uint16, w, r []byte) error
}

// Status is one battery reading.
type Status struct {
	// Voltage is the cell voltage in volts.
	Voltage float64

	// Capacity is the state of charge in percent.
	Capacity float64

	// Raw is the status register.
	Raw uint8
}

// Charging reports bit 0 of the status register.
func (s Status) Charging() bool { return s.Raw&0x01 != 0 }

// String renders the reading the way the check script prints it.
func (s Status) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Voltage: %.2fV\n", s.Voltage)
	fmt.Fprintf(&b, "Capacity: %.1f%%\n", s.Capacity)
	fmt.Fprintf(&b, "Status: %08b\n", s.Raw)
	if s.Charging() {
		b.WriteString("Estado: Cargando")
	} else {
		b.WriteString("Estado: Descargando o inactivo")
	}
	return b.String()
}

// Reader reads Status from a Bus.
type Reader struct {
	Bus  Bus
	Addr uint16
}

// NewReader returns a Reader at DefaultAddress.
func NewReader(bus Bus) *Reader {
	return &Reader{Bus: bus, Addr: DefaultAddress}
}

// Read takes one reading. ctx is checked between register transactions.
func (r *Reader) Read(ctx context.Context) (Status, error) {
	var s Status

	v, err := r.readWord(ctx, regVoltage)
	if err != nil {
		return Status{}, fmt.Errorf("ups: read voltage: %w", err)
	}
	s.Voltage = float64(v) * 1.25 / 1000

	c, err := r.readWord(ctx, regCapacity)
	if err != nil {
		return Status{}, fmt.Errorf("ups: read capacity: %w", err)
	}
	s.Capacity = float64(c) / 256

	st, err := r.readByte(ctx, regStatus)
	if err != nil {
		return Status{}, fmt.Errorf("ups: read status: %w", err)
	}
	s.Raw = st
	return s, nil
}

// readWord performs an SMBus read-word, which is little-endian on the wire.
func (r *Reader) readWord(ctx context.Context, reg byte) (uint16, error) {
	buf, err := r.tx(ctx, reg, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf), nil
}

func (r *Reader) readByte(ctx context.Context, reg byte) (uint8, error) {
	buf, err := r.tx(ctx, reg, 1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (r *Reader) tx(ctx context.Context, reg byte, n int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	addr := r.Addr
	if addr == 0 {
		addr = DefaultAddress
	}
	buf := make([]byte, n)
	if err := r.Bus.Tx(addr, []byte{reg}, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
