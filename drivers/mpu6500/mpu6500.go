// Package mpu6500 registers accelerometer and gyroscope drivers for the
// InvenSense MPU-6500 family (MPU-6500, MPU-9250, MPU-9255). The two sensor
// roles usually share one physical chip, so both drivers configure only their
// own half and neither ever soft-resets the device.
package mpu6500

import (
	"fmt"

	"github.com/v-kiniv/imu"
	"github.com/v-kiniv/imu/bus"
)

// ChipAccel and ChipGyro are the registry identifiers.
const (
	ChipAccel = "mpu6500-accel"
	ChipGyro  = "mpu6500-gyro"
)

// DefaultAddr is the I2C address with AD0 low; AltAddr with AD0 high.
const (
	DefaultAddr = 0x68
	AltAddr     = 0x69
)

func init() {
	imu.Register(imu.Accelerometer, ChipAccel, "MPU6500", accelDriver{})
	imu.Register(imu.Gyroscope, ChipGyro, "MPU6500", gyroDriver{})
}

func detect(b *bus.Binding) bool {
	id, err := b.ReadRegByte(regWhoAmI)
	if err != nil {
		return false
	}
	switch id {
	case whoAmI6500, whoAmI9250, whoAmI9255:
		return true
	}
	return false
}

// wake clears sleep mode and selects the PLL clock source. Harmless to repeat
// when the other half of the chip already did it.
func wake(b *bus.Binding) error {
	return b.WriteRegByte(regPwrMgmt1, bitClkPLL)
}

// setRate programs the shared sample rate divider off the 1 kHz internal
// rate. Both halves share the divider; the last attach wins, which is fine
// for a rate hint.
func setRate(b *bus.Binding, hz int) error {
	if hz <= 0 || hz > 1000 {
		return nil
	}
	return b.WriteRegByte(regSmplrtDiv, byte(1000/hz-1))
}

func readSample(b *bus.Binding, reg byte, scale float64) (x, y, z float64, err error) {
	var p [6]byte
	if err = b.ReadReg(reg, p[:]); err != nil {
		return 0, 0, 0, err
	}
	x = float64(int16(uint16(p[0])<<8|uint16(p[1]))) * scale
	y = float64(int16(uint16(p[2])<<8|uint16(p[3]))) * scale
	z = float64(int16(uint16(p[4])<<8|uint16(p[5]))) * scale
	return x, y, z, nil
}

type accelDriver struct{}

func (accelDriver) Detect(b *bus.Binding) bool { return detect(b) }

func (accelDriver) Create(b *bus.Binding, opts imu.Options) (imu.Instance, error) {
	code, fs := accelRange(opts.FullScale)
	if err := wake(b); err != nil {
		return nil, err
	}
	if err := b.WriteRegByte(regAccelConfig, code<<3); err != nil {
		return nil, fmt.Errorf("configuring accel range: %w", err)
	}
	// 41 Hz accel DLPF, enough to keep vibration out of the samples.
	if err := b.WriteRegByte(regAccelConfig2, 0x03); err != nil {
		return nil, err
	}
	if err := setRate(b, opts.DataRate); err != nil {
		return nil, err
	}
	return &accel{scale: fs / 32768.0}, nil
}

type accel struct {
	scale float64 // G per LSB
}

func (a *accel) Read(b *bus.Binding) (x, y, z float64, err error) {
	return readSample(b, regAccelXOutH, a.scale)
}

func (a *accel) Close(b *bus.Binding) error {
	return disable(b, bitDisableAccel)
}

type gyroDriver struct{}

func (gyroDriver) Detect(b *bus.Binding) bool { return detect(b) }

func (gyroDriver) Create(b *bus.Binding, opts imu.Options) (imu.Instance, error) {
	code, fs := gyroRange(opts.FullScale)
	if err := wake(b); err != nil {
		return nil, err
	}
	if err := b.WriteRegByte(regGyroConfig, code<<3); err != nil {
		return nil, fmt.Errorf("configuring gyro range: %w", err)
	}
	// 41 Hz gyro DLPF.
	if err := b.WriteRegByte(regConfig, 0x03); err != nil {
		return nil, err
	}
	if err := setRate(b, opts.DataRate); err != nil {
		return nil, err
	}
	return &gyro{scale: fs / 32768.0}, nil
}

type gyro struct {
	scale float64 // deg/s per LSB
}

func (g *gyro) Read(b *bus.Binding) (x, y, z float64, err error) {
	return readSample(b, regGyroXOutH, g.scale)
}

func (g *gyro) Close(b *bus.Binding) error {
	return disable(b, bitDisableGyro)
}

// disable puts one half of the chip into standby without disturbing the
// other half's axes.
func disable(b *bus.Binding, mask byte) error {
	cur, err := b.ReadRegByte(regPwrMgmt2)
	if err != nil {
		return err
	}
	return b.WriteRegByte(regPwrMgmt2, cur|mask)
}

// accelRange picks the smallest supported full-scale range covering the
// requested one. A zero request selects ±4 G.
func accelRange(req float64) (code byte, fs float64) {
	switch {
	case req <= 0:
		return 1, 4
	case req <= 2:
		return 0, 2
	case req <= 4:
		return 1, 4
	case req <= 8:
		return 2, 8
	default:
		return 3, 16
	}
}

// gyroRange picks the smallest supported full-scale range covering the
// requested one. A zero request selects ±500 deg/s.
func gyroRange(req float64) (code byte, fs float64) {
	switch {
	case req <= 0:
		return 1, 500
	case req <= 250:
		return 0, 250
	case req <= 500:
		return 1, 500
	case req <= 1000:
		return 2, 1000
	default:
		return 3, 2000
	}
}
