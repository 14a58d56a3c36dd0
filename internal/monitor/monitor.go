// Package monitor renders a live terminal table of the device's sensor
// slots: chip name, latest sample and read status per category.
package monitor

import (
	"fmt"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"
	log "github.com/sirupsen/logrus"

	"github.com/v-kiniv/imu"
)

var header = []string{"Category", "Chip", "X", "Y", "Z", "Unit", "Status"}

func getTable() *widgets.Table {
	table := widgets.NewTable()
	table.Rows = [][]string{header}
	table.ColumnWidths = []int{15, 12, 12, 12, 12, 8, 10}
	table.TextStyle = ui.NewStyle(ui.ColorWhite)
	table.TextAlignment = ui.AlignRight
	table.SetRect(0, 0, 85, 12)
	return table
}

func row(dev *imu.Device, cat imu.Category) []string {
	name := dev.Name(cat)
	if !dev.Present(cat) {
		return []string{cat.String(), name, "-", "-", "-", cat.Unit(), "-"}
	}
	s, valid := dev.LastSample(cat)
	status := "ok"
	if !valid {
		status = "failed"
	}
	return []string{
		cat.String(), name,
		fmt.Sprintf("%.4f", s.X),
		fmt.Sprintf("%.4f", s.Y),
		fmt.Sprintf("%.4f", s.Z),
		cat.Unit(), status,
	}
}

// Run polls the device on the given interval and redraws the table until the
// user quits with q or Ctrl-C.
func Run(dev *imu.Device, interval time.Duration) error {
	if err := ui.Init(); err != nil {
		return err
	}
	defer ui.Close()

	table := getTable()
	for cat := imu.Accelerometer; cat <= imu.Magnetometer; cat++ {
		table.Rows = append(table.Rows, row(dev, cat))
	}
	ui.Render(table)

	events := ui.PollEvents()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case e := <-events:
			switch e.ID {
			case "q", "<C-c>":
				return nil
			}
		case <-ticker.C:
			if err := dev.ReadAll(); err != nil {
				log.Debugln(err)
			}
			for cat := imu.Accelerometer; cat <= imu.Magnetometer; cat++ {
				table.Rows[int(cat)+1] = row(dev, cat)
			}
			ui.Render(table)
		}
	}
}
