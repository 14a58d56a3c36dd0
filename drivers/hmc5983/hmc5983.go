// Package hmc5983 registers a magnetometer driver for the Honeywell HMC5983
// and HMC5883L. The LSM303DLHC magnetometer die speaks the same register map
// and is covered by this driver as well.
package hmc5983

import (
	"fmt"

	"github.com/v-kiniv/imu"
	"github.com/v-kiniv/imu/bus"
)

// Chip is the registry identifier.
const Chip = "hmc5983"

// DefaultAddr is the chip's I2C address.
const DefaultAddr = 0x1E

// Register map, from the HMC5983 datasheet.
const (
	regCRA  = 0x00
	regCRB  = 0x01
	regMODE = 0x02
	regDATA = 0x03 // X MSB, X LSB, Z MSB, Z LSB, Y MSB, Y LSB
	regIDA  = 0x0A

	modeContinuous = 0x00
	modeIdle       = 0x02

	craAvg8 = 0x60 // 8-sample averaging

	// A saturated axis reads this value in the data registers.
	saturated = -4096
)

func init() {
	imu.Register(imu.Magnetometer, Chip, "HMC5983", driver{})
}

type driver struct{}

func (driver) Detect(b *bus.Binding) bool {
	var id [3]byte
	if err := b.ReadReg(regIDA, id[:]); err != nil {
		return false
	}
	return id[0] == 'H' && id[1] == '4' && id[2] == '3'
}

func (driver) Create(b *bus.Binding, opts imu.Options) (imu.Instance, error) {
	gc, lsbPerGauss := gainCode(opts.FullScale)
	if err := b.WriteRegByte(regCRA, craAvg8|odrBits(opts.DataRate)); err != nil {
		return nil, err
	}
	if err := b.WriteRegByte(regCRB, gc<<5); err != nil {
		return nil, fmt.Errorf("configuring gain: %w", err)
	}
	if err := b.WriteRegByte(regMODE, modeContinuous); err != nil {
		return nil, err
	}
	return &mag{lsb: lsbPerGauss}, nil
}

type mag struct {
	lsb float64 // LSB per Gauss for the configured gain
}

func (m *mag) Read(b *bus.Binding) (x, y, z float64, err error) {
	var p [6]byte
	if err = b.ReadReg(regDATA, p[:]); err != nil {
		return 0, 0, 0, err
	}
	// Big-endian, and the chip outputs in X, Z, Y order.
	xr := int16(uint16(p[0])<<8 | uint16(p[1]))
	zr := int16(uint16(p[2])<<8 | uint16(p[3]))
	yr := int16(uint16(p[4])<<8 | uint16(p[5]))
	if xr == saturated || yr == saturated || zr == saturated {
		return 0, 0, 0, fmt.Errorf("axis saturated at configured gain")
	}
	return float64(xr) / m.lsb, float64(yr) / m.lsb, float64(zr) / m.lsb, nil
}

// Close drops the chip into idle mode.
func (m *mag) Close(b *bus.Binding) error {
	return b.WriteRegByte(regMODE, modeIdle)
}

// gainCode picks the smallest gain range covering the requested full scale in
// Gauss, returning the CRB gain code and the matching LSB/Gauss resolution
// from the datasheet. A zero request selects the ±1.3 Ga default.
func gainCode(req float64) (code byte, lsbPerGauss float64) {
	ranges := []struct {
		fs  float64
		lsb float64
	}{
		{0.88, 1370},
		{1.3, 1090},
		{1.9, 820},
		{2.5, 660},
		{4.0, 440},
		{4.7, 390},
		{5.6, 330},
		{8.1, 230},
	}
	if req <= 0 {
		return 1, 1090
	}
	for i, r := range ranges {
		if req <= r.fs {
			return byte(i), r.lsb
		}
	}
	return 7, 230
}

// odrBits maps a rate hint in Hz to the CRA output rate field. A zero hint
// selects 15 Hz.
func odrBits(hz int) byte {
	var code byte
	switch {
	case hz <= 0:
		code = 4 // 15 Hz
	case hz <= 1:
		code = 1 // 1.5 Hz
	case hz <= 3:
		code = 2
	case hz <= 7:
		code = 3
	case hz <= 15:
		code = 4
	case hz <= 30:
		code = 5
	default:
		code = 6 // 75 Hz
	}
	return code << 2
}
