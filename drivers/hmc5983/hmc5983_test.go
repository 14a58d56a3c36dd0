package hmc5983

import (
	"fmt"
	"sync"
	"testing"

	"github.com/v-kiniv/imu"
	"github.com/v-kiniv/imu/bus"
)

type regmap struct {
	sync.Mutex
	regs map[byte]byte
	fail bool
}

func newRegmap() *regmap {
	m := &regmap{regs: make(map[byte]byte)}
	m.regs[regIDA] = 'H'
	m.regs[regIDA+1] = '4'
	m.regs[regIDA+2] = '3'
	return m
}

func (m *regmap) ReadReg(target, reg byte, p []byte) error {
	if m.fail {
		return fmt.Errorf("bus fault")
	}
	for i := range p {
		p[i] = m.regs[reg+byte(i)]
	}
	return nil
}

func (m *regmap) WriteReg(target, reg byte, p []byte) error {
	if m.fail {
		return fmt.Errorf("bus fault")
	}
	for i, c := range p {
		m.regs[reg+byte(i)] = c
	}
	return nil
}

func (m *regmap) binding() *bus.Binding {
	return bus.NewBinding(bus.I2C, m, DefaultAddr)
}

// setSample stores big-endian counts in the chip's X, Z, Y register order.
func (m *regmap) setSample(x, y, z int16) {
	for i, v := range []int16{x, z, y} {
		m.regs[regDATA+byte(2*i)] = byte(uint16(v) >> 8)
		m.regs[regDATA+byte(2*i)+1] = byte(uint16(v))
	}
}

func TestDetect(t *testing.T) {
	m := newRegmap()
	b := m.binding()

	if !(driver{}).Detect(b) {
		t.Error("H43 identity not accepted")
	}
	m.regs[regIDA+2] = 'X'
	if (driver{}).Detect(b) {
		t.Error("mangled identity accepted")
	}
	m.fail = true
	if (driver{}).Detect(b) {
		t.Error("detect succeeded on a dead bus")
	}
}

func TestCreateConfiguresChip(t *testing.T) {
	m := newRegmap()
	_, err := driver{}.Create(m.binding(), imu.Options{FullScale: 1.9, DataRate: 75})
	if err != nil {
		t.Fatal(err)
	}
	if m.regs[regCRA] != craAvg8|6<<2 {
		t.Errorf("CRA = 0x%02X, want 8-sample averaging at 75 Hz", m.regs[regCRA])
	}
	if m.regs[regCRB] != 2<<5 {
		t.Errorf("CRB = 0x%02X, want ±1.9 Ga gain code", m.regs[regCRB])
	}
	if m.regs[regMODE] != modeContinuous {
		t.Errorf("MODE = 0x%02X, want continuous", m.regs[regMODE])
	}
}

func TestReadUnscramblesAxisOrder(t *testing.T) {
	m := newRegmap()
	inst, err := driver{}.Create(m.binding(), imu.Options{})
	if err != nil {
		t.Fatal(err)
	}

	m.setSample(1090, -2180, 545)
	x, y, z, err := inst.Read(m.binding())
	if err != nil {
		t.Fatal(err)
	}
	if x != 1 || y != -2 || z != 0.5 {
		t.Errorf("read gave (%g, %g, %g), want (1, -2, 0.5)", x, y, z)
	}
}

func TestReadReportsSaturation(t *testing.T) {
	m := newRegmap()
	inst, err := driver{}.Create(m.binding(), imu.Options{})
	if err != nil {
		t.Fatal(err)
	}

	m.setSample(0, saturated, 0)
	if _, _, _, err := inst.Read(m.binding()); err == nil {
		t.Fatal("saturated axis should not be reported as data")
	}
}

func TestCloseGoesIdle(t *testing.T) {
	m := newRegmap()
	inst, err := driver{}.Create(m.binding(), imu.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if err := inst.(*mag).Close(m.binding()); err != nil {
		t.Fatal(err)
	}
	if m.regs[regMODE] != modeIdle {
		t.Errorf("MODE = 0x%02X after close, want idle", m.regs[regMODE])
	}
}

func TestGainTable(t *testing.T) {
	cases := []struct {
		req  float64
		code byte
		lsb  float64
	}{
		{0, 1, 1090},
		{0.5, 0, 1370},
		{1.3, 1, 1090},
		{2.0, 3, 660},
		{5.0, 6, 330},
		{20, 7, 230},
	}
	for _, c := range cases {
		code, lsb := gainCode(c.req)
		if code != c.code || lsb != c.lsb {
			t.Errorf("gainCode(%g) = (%d, %g), want (%d, %g)", c.req, code, lsb, c.code, c.lsb)
		}
	}
}

func TestRegistered(t *testing.T) {
	for _, c := range imu.Chips(imu.Magnetometer) {
		if c == Chip {
			return
		}
	}
	t.Fatalf("%q missing from the magnetometer registry", Chip)
}
