// Package bmi160 registers accelerometer and gyroscope drivers for the Bosch
// BMI160 and the IMU part of the BMX160. As with the MPU family the two
// sensor roles usually share one chip, so each driver only powers and
// configures its own unit.
package bmi160

import (
	"fmt"
	"time"

	"github.com/v-kiniv/imu"
	"github.com/v-kiniv/imu/bus"
)

// ChipAccel and ChipGyro are the registry identifiers.
const (
	ChipAccel = "bmi160-accel"
	ChipGyro  = "bmi160-gyro"
)

// DefaultAddr is the I2C address with SDO low; AltAddr with SDO high.
const (
	DefaultAddr = 0x68
	AltAddr     = 0x69
)

func init() {
	imu.Register(imu.Accelerometer, ChipAccel, "BMI160", accelDriver{})
	imu.Register(imu.Gyroscope, ChipGyro, "BMI160", gyroDriver{})
}

func detect(b *bus.Binding) bool {
	id, err := b.ReadRegByte(regChipID)
	if err != nil {
		return false
	}
	return id == chipIDBMI160 || id == chipIDBMX160
}

func readSample(b *bus.Binding, reg byte, scale float64) (x, y, z float64, err error) {
	var p [6]byte
	if err = b.ReadReg(reg, p[:]); err != nil {
		return 0, 0, 0, err
	}
	// Little-endian, unlike the InvenSense parts.
	x = float64(int16(uint16(p[1])<<8|uint16(p[0]))) * scale
	y = float64(int16(uint16(p[3])<<8|uint16(p[2]))) * scale
	z = float64(int16(uint16(p[5])<<8|uint16(p[4]))) * scale
	return x, y, z, nil
}

type accelDriver struct{}

func (accelDriver) Detect(b *bus.Binding) bool { return detect(b) }

func (accelDriver) Create(b *bus.Binding, opts imu.Options) (imu.Instance, error) {
	if err := b.WriteRegByte(regCmd, cmdAccelNormal); err != nil {
		return nil, err
	}
	time.Sleep(5 * time.Millisecond) // accel power-up time
	code, fs := accelRange(opts.FullScale)
	if err := b.WriteRegByte(regAccRange, code); err != nil {
		return nil, fmt.Errorf("configuring accel range: %w", err)
	}
	if err := b.WriteRegByte(regAccConf, confBWNormal|odrCode(opts.DataRate)); err != nil {
		return nil, err
	}
	return &unit{dataReg: regAccelData, scale: fs / 32768.0, suspend: cmdAccelSuspend}, nil
}

type gyroDriver struct{}

func (gyroDriver) Detect(b *bus.Binding) bool { return detect(b) }

func (gyroDriver) Create(b *bus.Binding, opts imu.Options) (imu.Instance, error) {
	if err := b.WriteRegByte(regCmd, cmdGyroNormal); err != nil {
		return nil, err
	}
	time.Sleep(80 * time.Millisecond) // gyro power-up time
	code, fs := gyroRange(opts.FullScale)
	if err := b.WriteRegByte(regGyrRange, code); err != nil {
		return nil, fmt.Errorf("configuring gyro range: %w", err)
	}
	if err := b.WriteRegByte(regGyrConf, confBWNormal|odrCode(opts.DataRate)); err != nil {
		return nil, err
	}
	return &unit{dataReg: regGyroData, scale: fs / 32768.0, suspend: cmdGyroSuspend}, nil
}

// unit is the shared instance state: both halves read the same way, differing
// only in data register, scale and suspend command.
type unit struct {
	dataReg byte
	scale   float64
	suspend byte
}

func (u *unit) Read(b *bus.Binding) (x, y, z float64, err error) {
	return readSample(b, u.dataReg, u.scale)
}

func (u *unit) Close(b *bus.Binding) error {
	return b.WriteRegByte(regCmd, u.suspend)
}

// accelRange picks the smallest supported full-scale range covering the
// requested one. A zero request selects ±4 G.
func accelRange(req float64) (code byte, fs float64) {
	switch {
	case req <= 0:
		return accRange4G, 4
	case req <= 2:
		return accRange2G, 2
	case req <= 4:
		return accRange4G, 4
	case req <= 8:
		return accRange8G, 8
	default:
		return accRange16G, 16
	}
}

// gyroRange picks the smallest supported full-scale range covering the
// requested one. A zero request selects ±500 deg/s.
func gyroRange(req float64) (code byte, fs float64) {
	switch {
	case req <= 0:
		return gyrRange500, 500
	case req <= 125:
		return gyrRange125, 125
	case req <= 250:
		return gyrRange250, 250
	case req <= 500:
		return gyrRange500, 500
	case req <= 1000:
		return gyrRange1000, 1000
	default:
		return gyrRange2000, 2000
	}
}

// odrCode maps a rate hint in Hz to the nearest output data rate code at or
// above it. A zero hint selects 100 Hz.
func odrCode(hz int) byte {
	switch {
	case hz <= 0:
		return odr100Hz
	case hz <= 25:
		return odr25Hz
	case hz <= 50:
		return odr50Hz
	case hz <= 100:
		return odr100Hz
	case hz <= 200:
		return odr200Hz
	case hz <= 400:
		return odr400Hz
	case hz <= 800:
		return odr800Hz
	default:
		return odr1600Hz
	}
}
