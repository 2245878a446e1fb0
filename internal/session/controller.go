package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"rtdt-monitor.klederson.com/internal/acquisition"
	"rtdt-monitor.klederson.com/internal/link"
	"rtdt-monitor.klederson.com/internal/protocol"
	"rtdt-monitor.klederson.com/internal/series"
)

// RunState tells whether the device has been told to stream.
type RunState int32

const (
	Idle RunState = iota
	Running
)

func (r RunState) String() string {
	if r == Running {
		return "Running"
	}
	return "Idle"
}

// Link is what the controller needs from the physical link.
type Link interface {
	Open(port string, baud int) error
	Close() error
	WriteLine(text string) error
	ReadLine() (string, error)
	State() link.ConnectionState
}

var errAlreadyConnected = errors.New("session: already connected")

// Controller sequences connect, start, stop, reset and configuration
// commands. Operations are serialized; state queries never block on them.
type Controller struct {
	link   Link
	store  *series.Store
	notify func(protocol.Sample)
	log    *logrus.Entry

	op     sync.Mutex // serializes operations
	loop   *acquisition.Loop
	cancel context.CancelFunc

	run  atomic.Int32
	rate atomic.Int64
	last atomic.Pointer[acquisition.Loop]
}

// New creates a controller. rateMs is the readout period re-sent on every
// Start. notify is called from the acquisition goroutine for every sample.
func New(l Link, store *series.Store, rateMs int, notify func(protocol.Sample), log *logrus.Entry) *Controller {
	c := &Controller{
		link:   l,
		store:  store,
		notify: notify,
		log:    log,
	}
	c.rate.Store(int64(rateMs))
	return c
}

// ConnectionState reports the link state.
func (c *Controller) ConnectionState() link.ConnectionState {
	return c.link.State()
}

// RunState is Idle whenever the link is not connected.
func (c *Controller) RunState() RunState {
	if c.link.State() != link.Connected {
		return Idle
	}
	return RunState(c.run.Load())
}

// Rate returns the configured readout period in milliseconds.
func (c *Controller) Rate() int {
	return int(c.rate.Load())
}

// Stats returns the counters of the current or most recent acquisition loop.
func (c *Controller) Stats() acquisition.Stats {
	if l := c.last.Load(); l != nil {
		return l.Stats()
	}
	return acquisition.Stats{}
}

// Connect opens the link and starts the acquisition loop for it.
func (c *Controller) Connect(port string, baud int) error {
	c.op.Lock()
	defer c.op.Unlock()

	if c.link.State() != link.Disconnected {
		return errAlreadyConnected
	}
	// A loop left over from a dropped connection has already seen its read
	// fail; wait so two loops never overlap.
	c.reapLoop()

	if err := c.link.Open(port, baud); err != nil {
		return err
	}
	c.run.Store(int32(Idle))

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.loop = acquisition.New(c.link, c.store, c.notify, c.log.WithField("port", port))
	c.last.Store(c.loop)
	c.loop.Start(ctx)
	return nil
}

// Disconnect stops the device if it is streaming, closes the link and waits
// for the acquisition loop to exit.
func (c *Controller) Disconnect() error {
	c.op.Lock()
	defer c.op.Unlock()

	if c.RunState() == Running {
		if err := c.send(protocol.Stop{}); err != nil {
			c.log.WithError(err).Warn("stop before disconnect failed")
		}
	}
	c.run.Store(int32(Idle))
	_ = c.link.Close()
	c.reapLoop()
	return nil
}

// Start re-sends the configured rate, then starts the readout. It does
// nothing but return link.ErrNotConnected when the link is down.
func (c *Controller) Start() error {
	c.op.Lock()
	defer c.op.Unlock()

	if c.link.State() != link.Connected {
		return link.ErrNotConnected
	}
	if err := c.send(protocol.SetRate{Millis: c.Rate()}); err != nil {
		return err
	}
	if err := c.send(protocol.Start{}); err != nil {
		return err
	}
	c.run.Store(int32(Running))
	return nil
}

// Stop halts the readout.
func (c *Controller) Stop() error {
	c.op.Lock()
	defer c.op.Unlock()

	c.run.Store(int32(Idle))
	if c.link.State() != link.Connected {
		return link.ErrNotConnected
	}
	return c.send(protocol.Stop{})
}

// Toggle starts an idle device and stops a running one.
func (c *Controller) Toggle() error {
	if c.RunState() == Running {
		return c.Stop()
	}
	return c.Start()
}

// Reset sends stop then reset, forces Idle and clears the charts. Only valid
// while connected.
func (c *Controller) Reset() error {
	c.op.Lock()
	defer c.op.Unlock()

	if c.link.State() != link.Connected {
		return link.ErrNotConnected
	}
	c.run.Store(int32(Idle))
	c.store.Reset()
	if err := c.send(protocol.Stop{}); err != nil {
		return err
	}
	return c.send(protocol.Reset{})
}

// SetRate records the readout period and sends it when connected. The
// value is not range checked.
func (c *Controller) SetRate(ms int) error {
	c.op.Lock()
	defer c.op.Unlock()

	c.rate.Store(int64(ms))
	return c.send(protocol.SetRate{Millis: ms})
}

// SetAccelNoiseFloor sends the noise floor exactly as given.
func (c *Controller) SetAccelNoiseFloor(raw string) error {
	c.op.Lock()
	defer c.op.Unlock()
	return c.send(protocol.SetAccelNoiseFloor{Value: raw})
}

// SetMPUConfig sends the "<accel>,<gyro>,<dlpf>,<div>" string exactly as given.
func (c *Controller) SetMPUConfig(raw string) error {
	c.op.Lock()
	defer c.op.Unlock()
	return c.send(protocol.SetMPUConfig{Value: raw})
}

func (c *Controller) send(cmd protocol.Command) error {
	text := protocol.Encode(cmd)
	if err := c.link.WriteLine(text); err != nil {
		return fmt.Errorf("send %q: %w", text, err)
	}
	return nil
}

// reapLoop waits for the current loop to exit. Must hold c.op.
func (c *Controller) reapLoop() {
	if c.loop == nil {
		return
	}
	c.cancel()
	<-c.loop.Done()
	c.loop = nil
	c.cancel = nil
}
