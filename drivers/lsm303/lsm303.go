// Package lsm303 registers an accelerometer driver for the ST LSM303DLHC
// combo chip. Only the accelerometer die is driven here; the magnetometer die
// answers on its own address with the HMC5883 register map and is served by
// the hmc5983 driver.
package lsm303

import (
	"fmt"

	"github.com/v-kiniv/imu"
	"github.com/v-kiniv/imu/bus"
)

// Chip is the registry identifier.
const Chip = "lsm303-accel"

// DefaultAddr is the accelerometer die's I2C address.
const DefaultAddr = 0x19

// Register map, from the LSM303DLHC datasheet.
const (
	regWhoAmI   = 0x0F
	regCtrlReg1 = 0x20
	regCtrlReg4 = 0x23
	regOutXL    = 0x28

	whoAmI = 0x33

	// ST chips auto-increment the register address on multi-byte access
	// only when the subaddress MSB is set.
	autoIncrement = 0x80

	bitAllAxes = 0x07 // CTRL_REG1 X/Y/Z enable
	bitHighRes = 0x08 // CTRL_REG4 high-resolution mode
)

func init() {
	imu.Register(imu.Accelerometer, Chip, "LSM303", driver{})
}

type driver struct{}

func (driver) Detect(b *bus.Binding) bool {
	id, err := b.ReadRegByte(regWhoAmI)
	return err == nil && id == whoAmI
}

func (driver) Create(b *bus.Binding, opts imu.Options) (imu.Instance, error) {
	code, lsb := rangeCode(opts.FullScale)
	if err := b.WriteRegByte(regCtrlReg1, odrCode(opts.DataRate)<<4|bitAllAxes); err != nil {
		return nil, err
	}
	if err := b.WriteRegByte(regCtrlReg4, code<<4|bitHighRes); err != nil {
		return nil, fmt.Errorf("configuring range: %w", err)
	}
	return &accel{lsb: lsb}, nil
}

type accel struct {
	lsb float64 // G per LSB after the 12-bit shift
}

func (a *accel) Read(b *bus.Binding) (x, y, z float64, err error) {
	var p [6]byte
	if err = b.ReadReg(regOutXL|autoIncrement, p[:]); err != nil {
		return 0, 0, 0, err
	}
	// Little-endian, left-justified 12-bit samples in high-resolution mode.
	x = float64(int16(uint16(p[1])<<8|uint16(p[0]))>>4) * a.lsb
	y = float64(int16(uint16(p[3])<<8|uint16(p[2]))>>4) * a.lsb
	z = float64(int16(uint16(p[5])<<8|uint16(p[4]))>>4) * a.lsb
	return x, y, z, nil
}

// Close powers the accelerometer down.
func (a *accel) Close(b *bus.Binding) error {
	return b.WriteRegByte(regCtrlReg1, 0x00)
}

// rangeCode picks the smallest supported full-scale range covering the
// requested one, with the high-resolution mg/LSB value from the datasheet.
// A zero request selects ±4 G.
func rangeCode(req float64) (code byte, lsb float64) {
	switch {
	case req <= 0:
		return 1, 0.00195
	case req <= 2:
		return 0, 0.00098
	case req <= 4:
		return 1, 0.00195
	case req <= 8:
		return 2, 0.0039
	default:
		return 3, 0.01172
	}
}

// odrCode maps a rate hint in Hz to the nearest CTRL_REG1 rate code at or
// above it. A zero hint selects 100 Hz.
func odrCode(hz int) byte {
	switch {
	case hz <= 0:
		return 5
	case hz <= 1:
		return 1
	case hz <= 10:
		return 2
	case hz <= 25:
		return 3
	case hz <= 50:
		return 4
	case hz <= 100:
		return 5
	case hz <= 200:
		return 6
	default:
		return 7
	}
}
