package app

import (
	"fmt"
	"os"
	"strconv"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/v-kiniv/imu"
	"github.com/v-kiniv/imu/bus"
	"github.com/v-kiniv/imu/bus/i2cbus"
	"github.com/v-kiniv/imu/bus/serialbridge"
	"github.com/v-kiniv/imu/bus/spibus"
	"github.com/v-kiniv/imu/internal/config"

	// Chip support compiled into the binary.
	_ "github.com/v-kiniv/imu/drivers/ak8963"
	_ "github.com/v-kiniv/imu/drivers/bmi160"
	_ "github.com/v-kiniv/imu/drivers/hmc5983"
	_ "github.com/v-kiniv/imu/drivers/lsm303"
	_ "github.com/v-kiniv/imu/drivers/mpu6500"
)

type mainApp struct {
	name string
	cmd  *cobra.Command
	args []string
	opt  *config.IMUReadOpt
}

type MainApp interface {
	PrepareRun() MainApp
	Opt() *config.IMUReadOpt
	// Assemble opens the configured buses and attaches every configured
	// sensor. The returned cleanup closes the device and the buses.
	Assemble() (*imu.Device, func(), error)
	ReadOnce() error
	Probe() error
}

func NewMainApp(cmd *cobra.Command, args []string) MainApp {
	return &mainApp{
		cmd:  cmd,
		args: args,
	}
}

func (a *mainApp) PrepareRun() MainApp {
	desc := config.NewIMUReadDesc()
	err := desc.Parse(a.cmd)
	if err != nil {
		log.Errorln(err)
		os.Exit(1)
		return nil
	}
	desc.PostParse()
	a.opt = &desc.Opt
	a.name = config.DefaultAppName
	return a
}

func (a *mainApp) Opt() *config.IMUReadOpt { return a.opt }

type closer interface{ Close() error }

func (a *mainApp) openBuses() (map[string]bus.Bus, func(), error) {
	buses := make(map[string]bus.Bus, len(a.opt.Buses))
	var closers []closer
	cleanup := func() {
		for _, c := range closers {
			if err := c.Close(); err != nil {
				log.Warnln("closing bus:", err)
			}
		}
	}

	for _, b := range a.opt.Buses {
		switch b.Kind {
		case "i2c":
			n, err := strconv.Atoi(b.Device)
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("bus %q: bad adapter number %q", b.ID, b.Device)
			}
			t := i2cbus.Open(byte(n))
			buses[b.ID] = t
			closers = append(closers, t)
		case "spi":
			t, err := spibus.Open(b.Ports...)
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("bus %q: %w", b.ID, err)
			}
			buses[b.ID] = t
			closers = append(closers, t)
		case "serial":
			t, err := serialbridge.Open(b.Device, b.Baud)
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("bus %q: %w", b.ID, err)
			}
			buses[b.ID] = t
			closers = append(closers, t)
		}
	}
	return buses, cleanup, nil
}

func binding(buses map[string]bus.Bus, busOpts []config.BusOpt, s config.SensorOpt) *bus.Binding {
	kind := bus.I2C
	for _, b := range busOpts {
		if b.ID == s.Bus && b.Kind == "spi" {
			kind = bus.SPI
		}
	}
	return bus.NewBinding(kind, buses[s.Bus], byte(s.Address))
}

func (a *mainApp) Assemble() (*imu.Device, func(), error) {
	buses, closeBuses, err := a.openBuses()
	if err != nil {
		return nil, nil, err
	}

	dev := imu.New()
	cleanup := func() {
		if err := dev.Close(); err != nil {
			log.Warnln("closing device:", err)
		}
		closeBuses()
	}

	for _, s := range a.opt.Sensors {
		cat, err := imu.ParseCategory(s.Category)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		opts := imu.Options{FullScale: s.FullScale, DataRate: s.DataRate}
		if err := dev.Attach(cat, s.Chip, binding(buses, a.opt.Buses, s), opts); err != nil {
			cleanup()
			return nil, nil, err
		}
		if s.Orientation != "" {
			o, err := imu.ParseOrientation(s.Orientation)
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("sensor %q: %w", s.Chip, err)
			}
			if err := dev.SetOrientation(cat, o); err != nil {
				cleanup()
				return nil, nil, err
			}
		}
		log.Infof("attached %s %s on bus %q", s.Category, dev.Name(cat), s.Bus)
	}
	return dev, cleanup, nil
}

// ReadOnce assembles the device, reads every attached sensor once and prints
// the samples.
func (a *mainApp) ReadOnce() error {
	dev, cleanup, err := a.Assemble()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := dev.ReadAll(); err != nil {
		log.Warnln(err)
	}
	for cat := imu.Accelerometer; cat <= imu.Magnetometer; cat++ {
		if !dev.Present(cat) {
			continue
		}
		s, valid := dev.LastSample(cat)
		status := "ok"
		if !valid {
			status = "failed"
		}
		fmt.Printf("%-13s %-10s % 10.4f % 10.4f % 10.4f %-5s %s\n",
			cat, dev.Name(cat), s.X, s.Y, s.Z, cat.Unit(), status)
	}
	return nil
}

// Probe attaches each configured sensor in turn and reports whether its chip
// answered, then detaches it again.
func (a *mainApp) Probe() error {
	buses, closeBuses, err := a.openBuses()
	if err != nil {
		return err
	}
	defer closeBuses()

	dev := imu.New()
	defer dev.Close()

	found := 0
	for _, s := range a.opt.Sensors {
		cat, err := imu.ParseCategory(s.Category)
		if err != nil {
			return err
		}
		opts := imu.Options{FullScale: s.FullScale, DataRate: s.DataRate}
		err = dev.Attach(cat, s.Chip, binding(buses, a.opt.Buses, s), opts)
		if err != nil {
			fmt.Printf("- %-13s %-14s bus %-8q missing (%v)\n", s.Category, s.Chip, s.Bus, err)
			continue
		}
		fmt.Printf("- %-13s %-14s bus %-8q found as %s\n", s.Category, s.Chip, s.Bus, dev.Name(cat))
		found++
		if err := dev.Detach(cat); err != nil {
			return err
		}
	}
	log.Infof("found %d of %d configured sensors", found, len(a.opt.Sensors))
	return nil
}
