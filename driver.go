package imu

import "github.com/v-kiniv/imu/bus"

// Driver is the mandatory half of the chip driver contract. Create
// initializes the chip behind the binding (range and rate configuration per
// opts) and returns the per-attachment instance state. Create must fail
// cleanly: on error no usable chip state is assumed to remain.
//
// The core holds the binding's transport lock for the full duration of every
// Create, Detect, Read and Close call, so driver code performs its register
// transactions without any locking of its own.
type Driver interface {
	Create(b *bus.Binding, opts Options) (Instance, error)
}

// Instance is the opaque per-slot state a Driver returns from Create. Read
// performs the chip transaction for one fresh sample and returns it already
// converted to the category's canonical unit.
type Instance interface {
	Read(b *bus.Binding) (x, y, z float64, err error)
}

// Detector is an optional capability of a Driver. Detect performs a read-only
// probe, typically of an identity register, and reports whether the expected
// chip answers behind the binding. Drivers for chips that cannot reliably
// self-identify simply do not implement it.
type Detector interface {
	Detect(b *bus.Binding) bool
}

// Closer is an optional capability of an Instance, invoked exactly once when
// the slot detaches. Implementations usually return the chip to a low-power
// register state.
type Closer interface {
	Close(b *bus.Binding) error
}
