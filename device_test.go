package imu

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/v-kiniv/imu/bus"
)

// fakeBus implements bus.Bus and verifies the locking discipline: every
// register transaction must run under the transport lock and no two
// transactions may overlap.
type fakeBus struct {
	mu sync.Mutex

	active      int32
	overlaps    int32
	unlockedUse int32
	reads       int32
}

func (b *fakeBus) Lock()   { b.mu.Lock() }
func (b *fakeBus) Unlock() { b.mu.Unlock() }

func (b *fakeBus) enter() {
	if b.mu.TryLock() {
		// The core was supposed to be holding the transport lock.
		atomic.AddInt32(&b.unlockedUse, 1)
		b.mu.Unlock()
	}
	if atomic.AddInt32(&b.active, 1) > 1 {
		atomic.AddInt32(&b.overlaps, 1)
	}
	time.Sleep(time.Millisecond)
}

func (b *fakeBus) exit() { atomic.AddInt32(&b.active, -1) }

func (b *fakeBus) ReadReg(target, reg byte, p []byte) error {
	b.enter()
	defer b.exit()
	atomic.AddInt32(&b.reads, 1)
	return nil
}

func (b *fakeBus) WriteReg(target, reg byte, p []byte) error {
	b.enter()
	defer b.exit()
	return nil
}

// fakeDriver is a registry entry whose behavior tests tweak between cases.
type fakeDriver struct {
	createErr error
	created   int
}

func (d *fakeDriver) Create(b *bus.Binding, opts Options) (Instance, error) {
	if d.createErr != nil {
		return nil, d.createErr
	}
	d.created++
	return &fakeInstance{}, nil
}

// fakeDetectDriver additionally implements the probe capability.
type fakeDetectDriver struct {
	fakeDriver
	detectOK bool
}

func (d *fakeDetectDriver) Detect(b *bus.Binding) bool { return d.detectOK }

type fakeInstance struct {
	sample  [3]float64
	readErr error
	closed  int
}

func (i *fakeInstance) Read(b *bus.Binding) (x, y, z float64, err error) {
	// Touch the bus so the fake can verify the lock is held.
	if _, err := b.ReadRegByte(0x00); err != nil {
		return 0, 0, 0, err
	}
	if i.readErr != nil {
		return 0, 0, 0, i.readErr
	}
	return i.sample[0], i.sample[1], i.sample[2], nil
}

func (i *fakeInstance) Close(b *bus.Binding) error {
	i.closed++
	return nil
}

var (
	fakeAccel  = &fakeDriver{}
	fakeGyro   = &fakeDriver{}
	fakeMag    = &fakeDriver{}
	fakeProbed = &fakeDetectDriver{detectOK: true}
)

func init() {
	Register(Accelerometer, "fake-accel", "FAKEACC", fakeAccel)
	Register(Gyroscope, "fake-gyro", "FAKEGYR", fakeGyro)
	Register(Magnetometer, "fake-mag", "FAKEMAG", fakeMag)
	Register(Accelerometer, "fake-probed", "PROBED", fakeProbed)
}

func testBinding() (*fakeBus, *bus.Binding) {
	fb := &fakeBus{}
	return fb, bus.NewBinding(bus.I2C, fb, 0x68)
}

func attachFake(t *testing.T, d *Device, cat Category, chip string) *fakeInstance {
	t.Helper()
	_, b := testBinding()
	if err := d.Attach(cat, chip, b, Options{}); err != nil {
		t.Fatalf("attach %s: %v", chip, err)
	}
	return instance(t, d, cat)
}

func instance(t *testing.T, d *Device, cat Category) *fakeInstance {
	t.Helper()
	inst, ok := d.slot(cat).inst.(*fakeInstance)
	if !ok {
		t.Fatalf("%s slot does not hold a fake instance", cat)
	}
	return inst
}

func TestAttachUnknownChip(t *testing.T) {
	d := New()
	_, b := testBinding()
	err := d.Attach(Accelerometer, "no-such-chip", b, Options{})
	if !errors.Is(err, ErrUnknownChip) {
		t.Fatalf("got %v, want ErrUnknownChip", err)
	}
	if d.Present(Accelerometer) {
		t.Error("slot should stay unattached after a failed attach")
	}
}

func TestAttachDetectionFailed(t *testing.T) {
	d := New()
	_, b := testBinding()
	fakeProbed.detectOK = false
	defer func() { fakeProbed.detectOK = true }()

	before := fakeProbed.created
	err := d.Attach(Accelerometer, "fake-probed", b, Options{})
	if !errors.Is(err, ErrDetectionFailed) {
		t.Fatalf("got %v, want ErrDetectionFailed", err)
	}
	if fakeProbed.created != before {
		t.Error("create must not run after a failed probe")
	}
	if d.Present(Accelerometer) {
		t.Error("slot should stay unattached")
	}
}

func TestAttachCreationFailed(t *testing.T) {
	d := New()
	_, b := testBinding()
	fakeAccel.createErr = fmt.Errorf("nack")
	defer func() { fakeAccel.createErr = nil }()

	err := d.Attach(Accelerometer, "fake-accel", b, Options{})
	if !errors.Is(err, ErrCreationFailed) {
		t.Fatalf("got %v, want ErrCreationFailed", err)
	}
	if d.Present(Accelerometer) {
		t.Error("slot should stay unattached")
	}
}

func TestAttachAlreadyAttached(t *testing.T) {
	d := New()
	attachFake(t, d, Accelerometer, "fake-accel")
	_, b := testBinding()
	if err := d.Attach(Accelerometer, "fake-probed", b, Options{}); !errors.Is(err, ErrAlreadyAttached) {
		t.Fatalf("got %v, want ErrAlreadyAttached", err)
	}
	// The occupied slot must be untouched.
	if got := d.Name(Accelerometer); got != "FAKEACC" {
		t.Errorf("name changed to %q", got)
	}
}

func TestDetachLifecycle(t *testing.T) {
	d := New()
	if err := d.Detach(Gyroscope); err != nil {
		t.Fatalf("detaching an empty slot: %v", err)
	}

	inst := attachFake(t, d, Gyroscope, "fake-gyro")
	if !d.Present(Gyroscope) {
		t.Fatal("present should be true after attach")
	}
	if err := d.Detach(Gyroscope); err != nil {
		t.Fatal(err)
	}
	if d.Present(Gyroscope) {
		t.Error("present should be false after detach")
	}
	if inst.closed != 1 {
		t.Errorf("teardown ran %d times, want 1", inst.closed)
	}
	if err := d.Detach(Gyroscope); err != nil {
		t.Fatal(err)
	}
	if inst.closed != 1 {
		t.Error("second detach must not run teardown again")
	}
	if _, err := d.Read(Gyroscope); !errors.Is(err, ErrNotAttached) {
		t.Fatalf("read after detach gave %v, want ErrNotAttached", err)
	}

	// The slot is re-attachable after detach.
	attachFake(t, d, Gyroscope, "fake-gyro")
	if !d.Present(Gyroscope) {
		t.Error("re-attach failed")
	}
}

func TestCloseDetachesAll(t *testing.T) {
	d := New()
	acc := attachFake(t, d, Accelerometer, "fake-accel")
	mag := attachFake(t, d, Magnetometer, "fake-mag")

	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	for cat := Accelerometer; cat <= Magnetometer; cat++ {
		if d.Present(cat) {
			t.Errorf("%s still attached after close", cat)
		}
	}
	if acc.closed != 1 || mag.closed != 1 {
		t.Error("teardown should have run once per slot")
	}
	if err := d.Close(); err != nil {
		t.Fatalf("closing an empty device: %v", err)
	}
}

func TestReadNotAttached(t *testing.T) {
	d := New()
	if _, err := d.Read(Magnetometer); !errors.Is(err, ErrNotAttached) {
		t.Fatalf("got %v, want ErrNotAttached", err)
	}
}

func TestReadAppliesOrientation(t *testing.T) {
	d := New()
	inst := attachFake(t, d, Accelerometer, "fake-accel")
	inst.sample = [3]float64{1.0, 2.0, 3.0}

	if o, err := d.Orientation(Accelerometer); err != nil || o != Identity() {
		t.Fatalf("default orientation = %v, %v; want identity", o, err)
	}

	if err := d.SetOrientation(Accelerometer, Orientation{X: -AxisY, Y: AxisX, Z: AxisZ}); err != nil {
		t.Fatal(err)
	}
	got, err := d.Read(Accelerometer)
	if err != nil {
		t.Fatal(err)
	}
	want := Sample{X: -2.0, Y: 1.0, Z: 3.0}
	if got != want {
		t.Errorf("read gave %+v, want %+v", got, want)
	}
	if cached, valid := d.LastSample(Accelerometer); !valid || cached != want {
		t.Errorf("cache holds %+v valid=%v, want %+v valid=true", cached, valid, want)
	}
}

func TestReadFailureLeavesCacheStale(t *testing.T) {
	d := New()
	inst := attachFake(t, d, Accelerometer, "fake-accel")
	inst.sample = [3]float64{0.5, -0.5, 1.0}

	good, err := d.Read(Accelerometer)
	if err != nil {
		t.Fatal(err)
	}

	inst.readErr = fmt.Errorf("bus glitch")
	if _, err := d.Read(Accelerometer); !errors.Is(err, ErrReadFailed) {
		t.Fatalf("got %v, want ErrReadFailed", err)
	}
	cached, valid := d.LastSample(Accelerometer)
	if valid {
		t.Error("validity flag should drop after a failed read")
	}
	if cached != good {
		t.Errorf("cache corrupted: %+v, want stale %+v", cached, good)
	}
}

func TestReadAllPartialFailure(t *testing.T) {
	d := New()
	acc := attachFake(t, d, Accelerometer, "fake-accel")
	gyr := attachFake(t, d, Gyroscope, "fake-gyro")
	acc.sample = [3]float64{1, 2, 3}
	gyr.sample = [3]float64{4, 5, 6}

	if err := d.ReadAll(); err != nil {
		t.Fatal(err)
	}
	gyrBefore, _ := d.LastSample(Gyroscope)

	acc.sample = [3]float64{7, 8, 9}
	gyr.readErr = fmt.Errorf("bus glitch")

	err := d.ReadAll()
	if !errors.Is(err, ErrReadFailed) {
		t.Fatalf("got %v, want ErrReadFailed", err)
	}

	// The failing slot must not block the other one.
	accAfter, accValid := d.LastSample(Accelerometer)
	if !accValid || accAfter != (Sample{X: 7, Y: 8, Z: 9}) {
		t.Errorf("accel cache %+v valid=%v, want fresh value", accAfter, accValid)
	}
	gyrAfter, gyrValid := d.LastSample(Gyroscope)
	if gyrValid {
		t.Error("gyro validity flag should drop")
	}
	if gyrAfter != gyrBefore {
		t.Errorf("gyro cache changed: %+v, want %+v", gyrAfter, gyrBefore)
	}
}

func TestReadAllEmptyDevice(t *testing.T) {
	if err := New().ReadAll(); err != nil {
		t.Fatalf("empty device should trivially succeed, got %v", err)
	}
}

func TestName(t *testing.T) {
	d := New()
	if got := d.Name(Accelerometer); got != "VOID" {
		t.Errorf(`unattached name = %q, want "VOID"`, got)
	}
	attachFake(t, d, Accelerometer, "fake-accel")
	if got := d.Name(Accelerometer); got != "FAKEACC" {
		t.Errorf("name = %q, want FAKEACC", got)
	}
	if got := d.Name(Category(99)); got != "VOID" {
		t.Errorf("invalid category name = %q", got)
	}
}

func TestRegisteredNamesFitStatusColumn(t *testing.T) {
	for cat := Accelerometer; cat <= Magnetometer; cat++ {
		for _, chip := range Chips(cat) {
			r, ok := lookup(cat, chip)
			if !ok {
				t.Fatalf("%s %q vanished from registry", cat, chip)
			}
			if len(r.name) == 0 || len(r.name) > MaxNameLen {
				t.Errorf("%s %q: display name %q out of bounds", cat, chip, r.name)
			}
		}
	}
}

func TestSetOrientationInvalid(t *testing.T) {
	d := New()
	attachFake(t, d, Accelerometer, "fake-accel")
	err := d.SetOrientation(Accelerometer, Orientation{AxisX, AxisX, AxisZ})
	if !errors.Is(err, ErrInvalidOrientation) {
		t.Fatalf("got %v, want ErrInvalidOrientation", err)
	}
	// The previously installed transform survives.
	if o, _ := d.Orientation(Accelerometer); o != Identity() {
		t.Errorf("orientation changed to %s", o)
	}
}

func TestOrientationNotAttached(t *testing.T) {
	d := New()
	if _, err := d.Orientation(Gyroscope); !errors.Is(err, ErrNotAttached) {
		t.Fatalf("got %v, want ErrNotAttached", err)
	}
	if err := d.SetOrientation(Gyroscope, Identity()); !errors.Is(err, ErrNotAttached) {
		t.Fatalf("got %v, want ErrNotAttached", err)
	}
}

func TestSharedTransportSerialized(t *testing.T) {
	d := New()
	fb := &fakeBus{}
	// Two chips on one physical bus.
	if err := d.Attach(Accelerometer, "fake-accel", bus.NewBinding(bus.I2C, fb, 0x68), Options{}); err != nil {
		t.Fatal(err)
	}
	if err := d.Attach(Gyroscope, "fake-gyro", bus.NewBinding(bus.I2C, fb, 0x69), Options{}); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for _, cat := range []Category{Accelerometer, Gyroscope} {
		cat := cat
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				if _, err := d.Read(cat); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if n := atomic.LoadInt32(&fb.overlaps); n != 0 {
		t.Errorf("%d overlapping bus transactions observed", n)
	}
	if n := atomic.LoadInt32(&fb.unlockedUse); n != 0 {
		t.Errorf("%d transactions ran without the transport lock", n)
	}
}

func TestEveryReadHitsHardware(t *testing.T) {
	d := New()
	fb := &fakeBus{}
	if err := d.Attach(Accelerometer, "fake-accel", bus.NewBinding(bus.I2C, fb, 0x68), Options{}); err != nil {
		t.Fatal(err)
	}
	before := atomic.LoadInt32(&fb.reads)
	for i := 0; i < 3; i++ {
		if _, err := d.Read(Accelerometer); err != nil {
			t.Fatal(err)
		}
	}
	if got := atomic.LoadInt32(&fb.reads) - before; got != 3 {
		t.Errorf("3 reads performed %d bus transactions, caching is not allowed", got)
	}
}
