// Package ak8963 registers a magnetometer driver for the AKM AK8963, the
// compass die found inside the MPU-9250. The chip has a single fixed
// ±4912 µT range, so the full-scale hint is ignored; per-axis factory
// sensitivity adjustment is read from the fuse ROM at create time.
package ak8963

import (
	"fmt"
	"time"

	"github.com/v-kiniv/imu"
	"github.com/v-kiniv/imu/bus"
)

// Chip is the registry identifier.
const Chip = "ak8963"

// DefaultAddr is the chip's I2C address.
const DefaultAddr = 0x0C

// Register map, from the AK8963 datasheet.
const (
	regWIA   = 0x00
	regST1   = 0x02
	regHXL   = 0x03
	regST2   = 0x09
	regCNTL1 = 0x0A
	regASAX  = 0x10

	deviceID = 0x48

	modePowerDown = 0x00
	modeCont8Hz   = 0x02
	modeCont100Hz = 0x06
	modeFuseROM   = 0x0F

	bit16Bit    = 0x10 // CNTL1 output resolution
	bitDataRdy  = 0x01 // ST1
	bitOverflow = 0x08 // ST2 magnetic sensor overflow
)

// 0.15 µT/LSB in 16-bit mode, converted to Gauss (1 Gauss = 100 µT).
const gaussPerLSB = 0.15 / 100

func init() {
	imu.Register(imu.Magnetometer, Chip, "AK8963", driver{})
}

type driver struct{}

func (driver) Detect(b *bus.Binding) bool {
	id, err := b.ReadRegByte(regWIA)
	return err == nil && id == deviceID
}

func (driver) Create(b *bus.Binding, opts imu.Options) (imu.Instance, error) {
	// Sensitivity adjustment lives in fuse ROM, reachable only through its
	// own access mode.
	if err := setMode(b, modeFuseROM); err != nil {
		return nil, err
	}
	var asa [3]byte
	if err := b.ReadReg(regASAX, asa[:]); err != nil {
		return nil, fmt.Errorf("reading fuse ROM: %w", err)
	}

	mode := byte(modeCont8Hz)
	if opts.DataRate > 8 {
		mode = modeCont100Hz
	}
	if err := setMode(b, modePowerDown); err != nil {
		return nil, err
	}
	if err := setMode(b, mode|bit16Bit); err != nil {
		return nil, err
	}

	m := &mag{}
	for i, a := range asa {
		// Adjustment formula from the datasheet.
		m.adj[i] = (float64(a)-128)/256 + 1
	}
	return m, nil
}

type mag struct {
	adj [3]float64
}

func (m *mag) Read(b *bus.Binding) (x, y, z float64, err error) {
	// Reading through ST2 in one burst completes the measurement handshake.
	var p [7]byte
	if err = b.ReadReg(regHXL, p[:]); err != nil {
		return 0, 0, 0, err
	}
	if p[6]&bitOverflow != 0 {
		return 0, 0, 0, fmt.Errorf("magnetic sensor overflow")
	}
	x = float64(int16(uint16(p[1])<<8|uint16(p[0]))) * m.adj[0] * gaussPerLSB
	y = float64(int16(uint16(p[3])<<8|uint16(p[2]))) * m.adj[1] * gaussPerLSB
	z = float64(int16(uint16(p[5])<<8|uint16(p[4]))) * m.adj[2] * gaussPerLSB
	return x, y, z, nil
}

// Close powers the compass down.
func (m *mag) Close(b *bus.Binding) error {
	return b.WriteRegByte(regCNTL1, modePowerDown)
}

func setMode(b *bus.Binding, mode byte) error {
	if err := b.WriteRegByte(regCNTL1, mode); err != nil {
		return err
	}
	// Mode transitions need a short settle per the datasheet.
	time.Sleep(time.Millisecond)
	return nil
}
