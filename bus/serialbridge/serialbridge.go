// Package serialbridge tunnels register transactions over a UART bridge,
// presenting the far side of the link as an addressed bus.Bus. A small MCU on
// the other end executes the actual I2C transactions and answers with the
// register contents.
//
// Frames in both directions carry a two-byte sync code, a little-endian
// payload length, a CRC16 over header and payload, and the payload itself.
package serialbridge

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/tarm/serial"
)

const (
	sync1   = 0x5A // frame sync code 1
	sync2   = 0xA5 // frame sync code 2
	hdrSize = 6

	maxPayload = 512
	maxRead    = 4096 // give up after this many bytes without a valid frame

	opRead  = 0x01
	opWrite = 0x02

	statusOK = 0x00
)

// DefaultBaudRate matches the firmware shipped on the reference bridge.
const DefaultBaudRate = 115200

// Bridge is an addressed register transport over one serial port. The
// embedded mutex is the transport lock the imu core serializes transactions
// with.
type Bridge struct {
	sync.Mutex
	rw  io.ReadWriteCloser
	dec decoder
	buf [64]byte
}

// Open opens the named serial port at the given baud rate. A zero baud rate
// selects DefaultBaudRate.
func Open(name string, baud int) (*Bridge, error) {
	if baud == 0 {
		baud = DefaultBaudRate
	}
	port, err := serial.OpenPort(&serial.Config{
		Name:        name,
		Baud:        baud,
		ReadTimeout: time.Second,
	})
	if err != nil {
		return nil, err
	}
	if err := port.Flush(); err != nil {
		port.Close()
		return nil, err
	}
	return New(port), nil
}

// New wraps an already-open byte stream. Useful for tests and for bridges
// reachable over something other than a local serial port.
func New(rw io.ReadWriteCloser) *Bridge {
	return &Bridge{rw: rw}
}

// ReadReg asks the bridge for len(p) bytes from reg of the device at addr.
func (b *Bridge) ReadReg(addr, reg byte, p []byte) error {
	if len(p) > maxPayload-2 {
		return fmt.Errorf("serialbridge: read of %d bytes exceeds frame limit", len(p))
	}
	resp, err := b.transact([]byte{opRead, addr, reg, byte(len(p))})
	if err != nil {
		return err
	}
	if len(resp) != len(p)+1 {
		return fmt.Errorf("serialbridge: short response: %d of %d bytes", len(resp)-1, len(p))
	}
	if resp[0] != statusOK {
		return fmt.Errorf("serialbridge: bridge reported status 0x%02X", resp[0])
	}
	copy(p, resp[1:])
	return nil
}

// WriteReg asks the bridge to write p to reg of the device at addr.
func (b *Bridge) WriteReg(addr, reg byte, p []byte) error {
	if len(p) > maxPayload-4 {
		return fmt.Errorf("serialbridge: write of %d bytes exceeds frame limit", len(p))
	}
	req := make([]byte, 0, 4+len(p))
	req = append(req, opWrite, addr, reg, byte(len(p)))
	req = append(req, p...)
	resp, err := b.transact(req)
	if err != nil {
		return err
	}
	if len(resp) < 1 || resp[0] != statusOK {
		return fmt.Errorf("serialbridge: bridge rejected write")
	}
	return nil
}

// Close releases the serial port.
func (b *Bridge) Close() error {
	return b.rw.Close()
}

func (b *Bridge) transact(payload []byte) ([]byte, error) {
	frame := encodeFrame(payload)
	if _, err := b.rw.Write(frame); err != nil {
		return nil, err
	}

	b.dec.reset()
	total := 0
	for total < maxRead {
		n, err := b.rw.Read(b.buf[:])
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, fmt.Errorf("serialbridge: response timed out")
		}
		total += n
		for i := 0; i < n; i++ {
			resp, ok := b.dec.feed(b.buf[i])
			if ok {
				return resp, nil
			}
		}
	}
	return nil, fmt.Errorf("serialbridge: no valid frame in %d bytes", total)
}

func encodeFrame(payload []byte) []byte {
	frame := make([]byte, hdrSize+len(payload))
	frame[0] = sync1
	frame[1] = sync2
	frame[2] = byte(len(payload))
	frame[3] = byte(len(payload) >> 8)
	copy(frame[hdrSize:], payload)
	var crc uint16
	crc16Update(&crc, frame[0:4])
	crc16Update(&crc, frame[hdrSize:])
	frame[4] = byte(crc)
	frame[5] = byte(crc >> 8)
	return frame
}

// decoder is a byte-at-a-time frame scanner. Bytes preceding a sync pair are
// discarded, so the stream may carry garbage between frames.
type decoder struct {
	n      int
	length int
	buf    [hdrSize + maxPayload]byte
}

func (d *decoder) reset() {
	d.n = 0
	d.length = 0
}

// feed consumes one byte and returns the frame payload once a frame with a
// valid CRC completes. Frames with a bad length or CRC are dropped and the
// scan resumes at the next sync pair.
func (d *decoder) feed(c byte) ([]byte, bool) {
	if d.n == 0 {
		d.buf[0] = d.buf[1]
		d.buf[1] = c
		if d.buf[0] != sync1 || d.buf[1] != sync2 {
			return nil, false
		}
		d.n = 2
		return nil, false
	}

	d.buf[d.n] = c
	d.n++

	if d.n == hdrSize {
		d.length = int(d.buf[2]) | int(d.buf[3])<<8
		if d.length > maxPayload {
			d.reset()
			return nil, false
		}
	}

	if d.n < hdrSize || d.n < hdrSize+d.length {
		return nil, false
	}

	d.n = 0
	var crc uint16
	crc16Update(&crc, d.buf[0:4])
	crc16Update(&crc, d.buf[hdrSize:hdrSize+d.length])
	if crc != uint16(d.buf[4])|uint16(d.buf[5])<<8 {
		return nil, false
	}
	payload := make([]byte, d.length)
	copy(payload, d.buf[hdrSize:hdrSize+d.length])
	return payload, true
}

func crc16Update(current *uint16, src []byte) {
	crc := *current
	for _, b := range src {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			tmp := crc << 1
			if crc&0x8000 != 0 {
				tmp ^= 0x1021
			}
			crc = tmp
		}
	}
	*current = crc
}
