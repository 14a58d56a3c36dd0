package imu

import (
	"fmt"
	"strings"
)

// Axis names a signed source axis for one output axis of an Orientation.
// Negating an Axis negates the source axis.
type Axis int8

const (
	AxisX Axis = 1
	AxisY Axis = 2
	AxisZ Axis = 3
)

func (a Axis) String() string {
	sign := "+"
	if a < 0 {
		sign = "-"
		a = -a
	}
	switch a {
	case AxisX:
		return sign + "x"
	case AxisY:
		return sign + "y"
	case AxisZ:
		return sign + "z"
	}
	return "invalid"
}

// Orientation remaps a sensor's native axes onto the body frame. Each output
// axis draws from exactly one signed source axis, so a valid Orientation is a
// signed permutation and always has an exact inverse.
type Orientation struct {
	X, Y, Z Axis
}

// Identity returns the transform installed on every slot at attach time.
func Identity() Orientation {
	return Orientation{AxisX, AxisY, AxisZ}
}

// Valid reports whether o maps each output axis to a distinct source axis.
func (o Orientation) Valid() bool {
	var seen [4]bool
	for _, a := range [3]Axis{o.X, o.Y, o.Z} {
		if a < 0 {
			a = -a
		}
		if a < AxisX || a > AxisZ || seen[a] {
			return false
		}
		seen[a] = true
	}
	return true
}

// Apply remaps s through o. Results are undefined for an invalid Orientation;
// Device.SetOrientation rejects those before they can be installed.
func (o Orientation) Apply(s Sample) Sample {
	src := [3]float64{s.X, s.Y, s.Z}
	pick := func(a Axis) float64 {
		if a < 0 {
			return -src[-a-1]
		}
		return src[a-1]
	}
	return Sample{X: pick(o.X), Y: pick(o.Y), Z: pick(o.Z)}
}

// Inverse returns the transform that undoes o exactly.
func (o Orientation) Inverse() Orientation {
	var inv [3]Axis
	for i, a := range [3]Axis{o.X, o.Y, o.Z} {
		out := Axis(i + 1)
		if a < 0 {
			inv[-a-1] = -out
		} else {
			inv[a-1] = out
		}
	}
	return Orientation{inv[0], inv[1], inv[2]}
}

func (o Orientation) String() string {
	return fmt.Sprintf("%s,%s,%s", o.X, o.Y, o.Z)
}

// ParseOrientation parses the form produced by String, e.g. "-y,+x,+z".
// The leading "+" is optional.
func ParseOrientation(s string) (Orientation, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return Orientation{}, fmt.Errorf("%w: %q", ErrInvalidOrientation, s)
	}
	var axes [3]Axis
	for i, p := range parts {
		p = strings.TrimSpace(strings.ToLower(p))
		sign := Axis(1)
		switch {
		case strings.HasPrefix(p, "-"):
			sign = -1
			p = p[1:]
		case strings.HasPrefix(p, "+"):
			p = p[1:]
		}
		switch p {
		case "x":
			axes[i] = sign * AxisX
		case "y":
			axes[i] = sign * AxisY
		case "z":
			axes[i] = sign * AxisZ
		default:
			return Orientation{}, fmt.Errorf("%w: %q", ErrInvalidOrientation, s)
		}
	}
	o := Orientation{axes[0], axes[1], axes[2]}
	if !o.Valid() {
		return Orientation{}, fmt.Errorf("%w: %q", ErrInvalidOrientation, s)
	}
	return o, nil
}
