// Package imu provides a chip-agnostic API for reading orientation-relevant
// data from inertial measurement unit hardware. A Device aggregates up to
// three sensor slots (accelerometer, gyroscope, magnetometer), each backed by
// an independently selected chip driver bound to an I2C or SPI transport, and
// exposes one stable read surface regardless of the chip behind each slot.
//
// Chip drivers live in subpackages of drivers/ and register themselves on
// import, so an application selects its chip support through blank imports:
//
//	import (
//		"github.com/v-kiniv/imu"
//		_ "github.com/v-kiniv/imu/drivers/mpu6500"
//	)
//
// Samples are always returned in canonical units: G for accelerometers,
// degrees per second for gyroscopes and Gauss for magnetometers. Drivers do
// the scale and bias conversion internally; the only transform applied outside
// the driver is the per-slot axis orientation remap.
package imu

import "fmt"

// Category identifies one of the three sensor roles a Device can carry.
type Category int

const (
	Accelerometer Category = iota
	Gyroscope
	Magnetometer

	numCategories
)

func (c Category) String() string {
	switch c {
	case Accelerometer:
		return "accelerometer"
	case Gyroscope:
		return "gyroscope"
	case Magnetometer:
		return "magnetometer"
	}
	return "invalid"
}

// Unit returns the canonical unit symbol for samples of this category.
func (c Category) Unit() string {
	switch c {
	case Accelerometer:
		return "G"
	case Gyroscope:
		return "deg/s"
	case Magnetometer:
		return "Ga"
	}
	return ""
}

// ParseCategory parses the form produced by String.
func ParseCategory(s string) (Category, error) {
	for c := Category(0); c < numCategories; c++ {
		if c.String() == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown sensor category %q", s)
}

// Sample is one converted measurement triple in the category's canonical
// unit: G, deg/s or Gauss.
type Sample struct {
	X, Y, Z float64
}

// Options carries the attachment hints a driver translates into native
// register values. FullScale is expressed in the category's canonical unit
// (e.g. 16 for a ±16 G accelerometer, 2000 for a ±2000 deg/s gyro) and
// DataRate in Hz. Both are hints only; a driver picks the nearest value its
// chip supports and derives its internal scale factor from the result.
type Options struct {
	FullScale float64
	DataRate  int
}
