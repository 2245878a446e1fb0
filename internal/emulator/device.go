package emulator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"rtdt-monitor.klederson.com/internal/protocol"
)

// ErrClosed is returned by Read and Write after Close.
var ErrClosed = errors.New("emulator: port closed")

const (
	outQueue        = 512 // lines buffered towards the reader, like a UART FIFO
	minPeriod       = time.Millisecond
	stationaryLimit = 0.05
	holdCycles      = 10
)

// Device emulates the sensor firmware behind a serial port. Commands written
// to it are executed the way the firmware's command listener does; telemetry
// comes back as ESP-IDF log lines.
type Device struct {
	log   *logrus.Entry
	boot  time.Time
	sim   *motion
	out   chan []byte
	done  chan struct{}
	close sync.Once

	mu         sync.Mutex
	rate       time.Duration
	noiseFloor float64
	mpu        protocol.MPUConfig
	cancel     context.CancelFunc
	wbuf       []byte

	rmu     sync.Mutex
	pending []byte
}

// New creates a powered-on device. It logs its boot banner immediately.
func New(log *logrus.Entry) *Device {
	d := &Device{
		log:        log,
		boot:       time.Now(),
		sim:        newMotion(),
		out:        make(chan []byte, outQueue),
		done:       make(chan struct{}),
		rate:       10 * time.Millisecond,
		noiseFloor: 0.5,
		mpu:        protocol.MPUConfig{DLPF: 3},
	}
	d.logLine('I', "Calibration", "%.2f, %.2f, %.2f", 0.0, 0.0, 0.0)
	d.logLine('I', "SystemMonitor", "MPU6050 OK")
	return d
}

// Opener adapts New to link.Opener's signature.
func Opener(log *logrus.Entry) func(string, int, time.Duration) (io.ReadWriteCloser, error) {
	return func(port string, _ int, _ time.Duration) (io.ReadWriteCloser, error) {
		return New(log.WithField("port", port)), nil
	}
}

// Read returns device output. It blocks until a line is available or the
// device is closed.
func (d *Device) Read(p []byte) (int, error) {
	d.rmu.Lock()
	defer d.rmu.Unlock()

	if len(d.pending) == 0 {
		select {
		case b := <-d.out:
			d.pending = b
		case <-d.done:
			return 0, ErrClosed
		}
	}
	n := copy(p, d.pending)
	d.pending = d.pending[n:]
	return n, nil
}

// Write feeds command bytes to the device. Complete lines are executed.
func (d *Device) Write(p []byte) (int, error) {
	select {
	case <-d.done:
		return 0, ErrClosed
	default:
	}

	d.mu.Lock()
	d.wbuf = append(d.wbuf, p...)
	var lines []string
	for {
		i := bytes.IndexByte(d.wbuf, '\n')
		if i < 0 {
			break
		}
		lines = append(lines, strings.TrimRight(string(d.wbuf[:i]), "\r"))
		d.wbuf = d.wbuf[i+1:]
	}
	d.mu.Unlock()

	for _, l := range lines {
		d.execute(l)
	}
	return len(p), nil
}

// Close stops the readout and releases any blocked reader.
func (d *Device) Close() error {
	d.close.Do(func() {
		d.stopReadout()
		close(d.done)
	})
	return nil
}

// Running reports whether the readout task is active.
func (d *Device) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancel != nil
}

// Settings returns the applied rate, noise floor and MPU configuration.
func (d *Device) Settings() (time.Duration, float64, protocol.MPUConfig) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rate, d.noiseFloor, d.mpu
}

func (d *Device) execute(line string) {
	d.logLine('I', "CommandListener", "Received: %s", line)

	cmd, err := protocol.ParseCommand(line)
	if err != nil {
		d.logLine('E', "CommandListener", "Unknown command: %s", line)
		return
	}

	switch c := cmd.(type) {
	case protocol.Reset:
		d.stopReadout()
		d.sim.reset()
		d.mu.Lock()
		d.boot = time.Now()
		d.mu.Unlock()
		d.logLine('I', "SystemMonitor", "MPU6050 OK")
	case protocol.SetRate:
		d.mu.Lock()
		d.rate = max(time.Duration(c.Millis)*time.Millisecond, minPeriod)
		d.mu.Unlock()
		d.logLine('I', "CommandListener", "Set Update Rate: %d", c.Millis)
	case protocol.SetAccelNoiseFloor:
		// atof semantics: unparsable input becomes 0.
		v, _ := strconv.ParseFloat(strings.TrimSpace(c.Value), 64)
		d.mu.Lock()
		d.noiseFloor = v
		d.mu.Unlock()
		d.logLine('I', "CommandListener", "Set Accel. Noice Floor: %.2f", v)
	case protocol.SetMPUConfig:
		cfg, err := protocol.ParseMPUConfig(c.Value)
		if err != nil {
			d.logLine('E', "CommandListener", "Invalid config string")
			return
		}
		d.mu.Lock()
		d.mpu = cfg
		d.mu.Unlock()
		d.logLine('I', "CommandListener", "MPU6050 reconfigured: a=%d, g=%d, d=%d, s=%d",
			cfg.AccelRange, cfg.GyroRange, cfg.DLPF, cfg.SampleRateDiv)
	case protocol.Start:
		d.startReadout()
		d.logLine('I', "CommandListener", "Starting the readout task")
	case protocol.Stop:
		d.stopReadout()
		d.logLine('I', "CommandListener", "Stoping the readout taks")
	}
}

func (d *Device) startReadout() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	go d.readout(ctx)
}

func (d *Device) stopReadout() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}

func (d *Device) readout(ctx context.Context) {
	d.log.Debug("readout task started")
	defer d.log.Debug("readout task stopped")

	last := time.Now()
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.done:
			return
		case now := <-timer.C:
			d.mu.Lock()
			rate, floor := d.rate, d.noiseFloor
			d.mu.Unlock()

			st := d.sim.step(now.Sub(last).Seconds(), floor)
			last = now
			d.logLine('I', "Acceleration", "%.2f,%.2f,%.2f", st.a[0], st.a[1], st.a[2])
			d.logLine('I', "Velocity", "%.2f,%.2f,%.2f", st.v[0], st.v[1], st.v[2])
			d.logLine('I', "Displacement", "%.2f,%.2f,%.2f", st.d[0], st.d[1], st.d[2])
			timer.Reset(rate)
		}
	}
}

// logLine queues "L (ms) Tag: message". A full queue drops the line, as an
// overrun UART would.
func (d *Device) logLine(level byte, tag, format string, args ...any) {
	d.mu.Lock()
	ms := time.Since(d.boot).Milliseconds()
	d.mu.Unlock()

	line := fmt.Sprintf("%c (%d) %s: %s\n", level, ms, tag, fmt.Sprintf(format, args...))
	select {
	case d.out <- []byte(line):
	case <-d.done:
	default:
		d.log.Debug("output queue full, line dropped")
	}
}
