package config

import "time"

const (
	// Serial link
	DefaultBaudRate    = 115200
	DefaultOpenTimeout = 3 * time.Second // open bound and serial read timeout
	DemoPort           = "DEMO"          // port name served by the in-process emulator

	// Acquisition
	DefaultMaxPoints = 100 // samples kept per axis (visible window)

	// Device defaults sent by the config fields
	DefaultNoiseFloor = "0.5"
	DefaultMPUConfig  = "0,0,3,0" // accel range, gyro range, DLPF, sample rate divider

	// Chart value ranges (symmetric +/-)
	DefaultAccelRange = 20.0
	DefaultVelocRange = 100.0
	DefaultDisplRange = 10.0

	// PNG export size of one chart, in points
	DefaultPlotWidth  = 1200.0
	DefaultPlotHeight = 300.0

	// Terminal chart layout
	ChartLabelCols = 7 // columns reserved for gridline labels
	MinChartRows   = 3
	TargetFPS      = 30

	// Logging
	DefaultLogFile  = "rtdt-monitor.log"
	DefaultLogLevel = "info"

	// App
	AppName    = "RTDT-MONITOR"
	AppVersion = "1.0"
)

// Rates lists the readout periods (milliseconds) the firmware is driven with.
// The first entry is the default.
var Rates = []int{10, 30, 50, 60, 100, 200, 250, 500, 1000, 2000, 5000}

// StepRate returns the entry of Rates next to ms in the direction of step
// (negative: faster, positive: slower). ms need not be in the list; the
// result is clamped to the list ends.
func StepRate(ms, step int) int {
	if step < 0 {
		for i := len(Rates) - 1; i >= 0; i-- {
			if Rates[i] < ms {
				return Rates[i]
			}
		}
		return Rates[0]
	}
	for _, r := range Rates {
		if r > ms {
			return r
		}
	}
	return Rates[len(Rates)-1]
}
