package imu

import (
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/v-kiniv/imu/bus"
)

// slot is the mutable unit of attachment: one per category, owned by its
// Device. The driver instance is only ever touched through the driver
// contract; sample, valid and orient are guarded by mu so an orientation swap
// is atomic with respect to an in-flight read.
type slot struct {
	chip    string
	name    string
	inst    Instance
	binding *bus.Binding

	mu     sync.Mutex
	orient Orientation
	sample Sample
	valid  bool
}

// Device aggregates up to one sensor slot per category behind a uniform,
// chip-independent read surface. The zero Device is not usable; call New.
//
// A Device assumes a single writer per slot: two operations targeting the
// same category must not run concurrently without external synchronization.
// Slots sharing one transport are safe to read concurrently because every
// bus transaction runs under the transport's exclusive lock.
type Device struct {
	mu    sync.RWMutex
	slots [numCategories]*slot
}

// New returns a device with all slots empty. It cannot fail.
func New() *Device {
	return &Device{}
}

// Close detaches every attached slot, running driver teardown on each, and
// leaves the device empty. Closing an already-empty device is a no-op.
func (d *Device) Close() error {
	for cat := Category(0); cat < numCategories; cat++ {
		if err := d.Detach(cat); err != nil {
			return err
		}
	}
	return nil
}

// Attach selects the driver registered for chip in cat's registry, probes the
// chip when the driver supports detection, initializes it and occupies the
// slot. The slot is left unattached on any failure.
func (d *Device) Attach(cat Category, chip string, b *bus.Binding, opts Options) error {
	reg, ok := lookup(cat, chip)
	if !ok {
		return fmt.Errorf("%s %q: %w", cat, chip, ErrUnknownChip)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.slots[cat] != nil {
		return fmt.Errorf("%s: %w", cat, ErrAlreadyAttached)
	}

	if det, ok := reg.driver.(Detector); ok {
		b.Lock()
		present := det.Detect(b)
		b.Unlock()
		if !present {
			return fmt.Errorf("%s %q at %s: %w", cat, chip, b, ErrDetectionFailed)
		}
	}

	b.Lock()
	inst, err := reg.driver.Create(b, opts)
	b.Unlock()
	if err != nil {
		return fmt.Errorf("%s %q at %s: %w: %v", cat, chip, b, ErrCreationFailed, err)
	}

	d.slots[cat] = &slot{
		chip:    chip,
		name:    reg.name,
		inst:    inst,
		binding: b,
		orient:  Identity(),
	}
	log.Debugf("imu: attached %s %q at %s", cat, chip, b)
	return nil
}

// Detach tears down cat's slot and releases it. Detaching an unattached
// category is a no-op, not an error. Teardown failures are logged but do not
// keep the slot attached.
func (d *Device) Detach(cat Category) error {
	d.mu.Lock()
	s := d.slotLocked(cat)
	if s != nil {
		d.slots[cat] = nil
	}
	d.mu.Unlock()
	if s == nil {
		return nil
	}

	if c, ok := s.inst.(Closer); ok {
		s.binding.Lock()
		err := c.Close(s.binding)
		s.binding.Unlock()
		if err != nil {
			log.Warnf("imu: teardown of %s %q: %v", cat, s.chip, err)
		}
	}
	log.Debugf("imu: detached %s %q", cat, s.chip)
	return nil
}

// Read performs one fresh hardware transaction on cat's slot and returns the
// orientation-remapped sample. Every call hits the hardware; the cached
// sample kept by the slot only records the outcome for LastSample. On failure
// the cache is left untouched (stale, not corrupted) and only the validity
// flag drops.
func (d *Device) Read(cat Category) (Sample, error) {
	s := d.slot(cat)
	if s == nil {
		return Sample{}, fmt.Errorf("%s: %w", cat, ErrNotAttached)
	}

	s.binding.Lock()
	x, y, z, err := s.inst.Read(s.binding)
	if err != nil {
		s.binding.Unlock()
		s.mu.Lock()
		s.valid = false
		s.mu.Unlock()
		return Sample{}, fmt.Errorf("%s %q: %w: %v", cat, s.chip, ErrReadFailed, err)
	}

	s.mu.Lock()
	out := s.orient.Apply(Sample{X: x, Y: y, Z: z})
	s.sample = out
	s.valid = true
	s.mu.Unlock()
	s.binding.Unlock()
	return out, nil
}

// ReadAll applies the read protocol to every attached slot. A failure on one
// slot never prevents the attempt on the others; the combined error reports
// every slot that failed. A device with no attached slots trivially succeeds.
func (d *Device) ReadAll() error {
	var errs []error
	for cat := Category(0); cat < numCategories; cat++ {
		if !d.Present(cat) {
			continue
		}
		if _, err := d.Read(cat); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Present reports whether a slot for cat is currently attached.
func (d *Device) Present(cat Category) bool {
	return d.slot(cat) != nil
}

// Name returns the registered display name of the chip attached for cat, or
// "VOID" when the slot is empty. A slot whose registration carried no display
// name reports "UNKNOWN".
func (d *Device) Name(cat Category) string {
	s := d.slot(cat)
	if s == nil {
		return "VOID"
	}
	if s.name == "" {
		return "UNKNOWN"
	}
	return s.name
}

// SetOrientation validates o and installs it on cat's slot. The swap is
// atomic: a read in flight uses either the previous transform or o, never a
// mix of the two.
func (d *Device) SetOrientation(cat Category, o Orientation) error {
	if !o.Valid() {
		return fmt.Errorf("%s: %w: %s", cat, ErrInvalidOrientation, o)
	}
	s := d.slot(cat)
	if s == nil {
		return fmt.Errorf("%s: %w", cat, ErrNotAttached)
	}
	s.mu.Lock()
	s.orient = o
	s.mu.Unlock()
	return nil
}

// Orientation returns the transform currently installed on cat's slot.
func (d *Device) Orientation(cat Category) (Orientation, error) {
	s := d.slot(cat)
	if s == nil {
		return Orientation{}, fmt.Errorf("%s: %w", cat, ErrNotAttached)
	}
	s.mu.Lock()
	o := s.orient
	s.mu.Unlock()
	return o, nil
}

// LastSample returns the slot's most recent successfully read sample together
// with its validity flag. The sample survives failed reads unchanged, so a
// caller can inspect the last known good value after a Read error.
func (d *Device) LastSample(cat Category) (Sample, bool) {
	s := d.slot(cat)
	if s == nil {
		return Sample{}, false
	}
	s.mu.Lock()
	sample, valid := s.sample, s.valid
	s.mu.Unlock()
	return sample, valid
}

func (d *Device) slot(cat Category) *slot {
	d.mu.RLock()
	s := d.slotLocked(cat)
	d.mu.RUnlock()
	return s
}

func (d *Device) slotLocked(cat Category) *slot {
	if cat < 0 || cat >= numCategories {
		return nil
	}
	return d.slots[cat]
}
