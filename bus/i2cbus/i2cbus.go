// Package i2cbus provides a bus.Bus over a Linux I2C adapter using
// github.com/kidoman/embd.
package i2cbus

import (
	"sync"

	"github.com/kidoman/embd"
	_ "github.com/kidoman/embd/host/all"
)

// Bus is an addressed register transport on one I2C adapter. The embedded
// mutex is the transport lock the imu core serializes transactions with.
type Bus struct {
	sync.Mutex
	bus embd.I2CBus
}

// Open returns the transport for I2C adapter n (e.g. 1 for /dev/i2c-1).
func Open(n byte) *Bus {
	return &Bus{bus: embd.NewI2CBus(n)}
}

// ReadReg reads len(p) bytes from reg of the device at addr.
func (b *Bus) ReadReg(addr, reg byte, p []byte) error {
	return b.bus.ReadFromReg(addr, reg, p)
}

// WriteReg writes p to reg of the device at addr.
func (b *Bus) WriteReg(addr, reg byte, p []byte) error {
	return b.bus.WriteToReg(addr, reg, p)
}

// Close releases the adapter.
func (b *Bus) Close() error {
	return b.bus.Close()
}
