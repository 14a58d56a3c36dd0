// Package spibus provides a bus.Bus over SPI ports using periph.io. Each
// chip-select index maps to one opened port, so several chips sharing the
// physical bus behave like addressed targets to the imu core.
//
// Register access follows the convention shared by the supported chips
// (InvenSense, Bosch, ST): the register address goes out in the first byte
// with the MSB set for reads and clear for writes.
package spibus

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

const readBit = 0x80

// Bus is a chip-select register transport. The embedded mutex is the
// transport lock the imu core serializes transactions with.
type Bus struct {
	sync.Mutex
	conns []spi.Conn
	ports []spi.PortCloser
}

// Open initializes the host and opens one SPI port per chip-select line, in
// chip-select order (e.g. "/dev/spidev0.0", "/dev/spidev0.1"). The ports are
// configured for the 1 MHz mode 3 transfers the supported IMU chips expect.
func Open(names ...string) (*Bus, error) {
	if _, err := host.Init(); err != nil {
		return nil, err
	}
	b := &Bus{}
	for _, name := range names {
		port, err := spireg.Open(name)
		if err != nil {
			b.Close()
			return nil, err
		}
		conn, err := port.Connect(physic.MegaHertz, spi.Mode3, 8)
		if err != nil {
			port.Close()
			b.Close()
			return nil, err
		}
		b.ports = append(b.ports, port)
		b.conns = append(b.conns, conn)
	}
	return b, nil
}

// ReadReg reads len(p) bytes starting at reg from the chip on select line cs.
func (b *Bus) ReadReg(cs, reg byte, p []byte) error {
	conn, err := b.conn(cs)
	if err != nil {
		return err
	}
	w := make([]byte, len(p)+1)
	r := make([]byte, len(p)+1)
	w[0] = reg | readBit
	if err := conn.Tx(w, r); err != nil {
		return err
	}
	copy(p, r[1:])
	return nil
}

// WriteReg writes p starting at reg to the chip on select line cs.
func (b *Bus) WriteReg(cs, reg byte, p []byte) error {
	conn, err := b.conn(cs)
	if err != nil {
		return err
	}
	w := make([]byte, len(p)+1)
	w[0] = reg &^ readBit
	copy(w[1:], p)
	return conn.Tx(w, nil)
}

// Close releases every opened port.
func (b *Bus) Close() error {
	var first error
	for _, port := range b.ports {
		if err := port.Close(); err != nil && first == nil {
			first = err
		}
	}
	b.ports = nil
	b.conns = nil
	return first
}

func (b *Bus) conn(cs byte) (spi.Conn, error) {
	if int(cs) >= len(b.conns) {
		return nil, fmt.Errorf("spibus: no port for chip select %d", cs)
	}
	return b.conns[cs], nil
}
