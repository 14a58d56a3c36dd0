// Package bus defines the register transport contract the imu core dispatches
// chip transactions through, and the Binding that pairs a shared transport
// with one chip's addressing parameter.
//
// A transport is the unit of mutual exclusion: several chips can sit on one
// physical bus, so every register transaction must run under the transport's
// lock. The imu core acquires the lock around every driver call; driver code
// itself never locks.
package bus

import (
	"fmt"
	"sync"
)

// Kind distinguishes the two supported transport families.
type Kind int

const (
	// I2C is an addressed bus: target selects the 7-bit device address.
	I2C Kind = iota
	// SPI is a chip-select bus: target selects the chip-select line.
	SPI
)

func (k Kind) String() string {
	switch k {
	case I2C:
		return "i2c"
	case SPI:
		return "spi"
	}
	return "invalid"
}

// Bus is a shared, blocking register transport. target is interpreted by the
// transport: an I2C device address or a chip-select index. Implementations
// embed a sync.Mutex to satisfy the Locker half; holders of the lock own the
// bus for the duration of a transaction.
type Bus interface {
	sync.Locker

	// ReadReg reads len(p) bytes from reg of the device selected by target.
	ReadReg(target, reg byte, p []byte) error
	// WriteReg writes p to reg of the device selected by target.
	WriteReg(target, reg byte, p []byte) error
}

// Binding pairs a transport with the addressing parameter of one chip. It is
// immutable after construction and holds a non-owning reference to the
// transport; keeping the transport alive for the binding's lifetime is the
// caller's responsibility.
type Binding struct {
	kind   Kind
	target byte
	bus    Bus
}

// NewBinding binds a chip at target on b.
func NewBinding(kind Kind, b Bus, target byte) *Binding {
	return &Binding{kind: kind, target: target, bus: b}
}

func (b *Binding) Kind() Kind   { return b.kind }
func (b *Binding) Target() byte { return b.target }

// Lock acquires the underlying transport's exclusive lock.
func (b *Binding) Lock() { b.bus.Lock() }

// Unlock releases the underlying transport's exclusive lock.
func (b *Binding) Unlock() { b.bus.Unlock() }

// ReadReg reads len(p) bytes from reg of the bound chip.
func (b *Binding) ReadReg(reg byte, p []byte) error {
	return b.bus.ReadReg(b.target, reg, p)
}

// ReadRegByte reads one byte from reg of the bound chip.
func (b *Binding) ReadRegByte(reg byte) (byte, error) {
	var p [1]byte
	if err := b.bus.ReadReg(b.target, reg, p[:]); err != nil {
		return 0, err
	}
	return p[0], nil
}

// WriteReg writes p to reg of the bound chip.
func (b *Binding) WriteReg(reg byte, p []byte) error {
	return b.bus.WriteReg(b.target, reg, p)
}

// WriteRegByte writes one byte to reg of the bound chip.
func (b *Binding) WriteRegByte(reg, value byte) error {
	return b.bus.WriteReg(b.target, reg, []byte{value})
}

func (b *Binding) String() string {
	return fmt.Sprintf("%s:0x%02X", b.kind, b.target)
}
