package link

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Opener establishes the physical connection. The returned port must make a
// pending Read fail once Close is called, and may return (0, nil) from Read
// when timeout elapses without data.
type Opener func(port string, baud int, timeout time.Duration) (io.ReadWriteCloser, error)

// Lister enumerates candidate ports.
type Lister func() ([]PortInfo, error)

var (
	errAlreadyOpen   = errors.New("link already open")
	errOpenCancelled = errors.New("open cancelled by close")
)

// maxPending bounds the bytes buffered while waiting for a line terminator.
const maxPending = 4096

// Link owns one serial connection at a time. It can be opened and closed any
// number of times.
//
// Writes are serialized by writeMu so concurrent commands never interleave.
// ReadLine is meant for a single reader goroutine.
type Link struct {
	opener  Opener
	lister  Lister
	timeout time.Duration
	log     *logrus.Entry

	mu    sync.Mutex // guards state, conn and gen
	state ConnectionState
	conn  *conn
	gen   uint64 // bumped by every Open and Close

	writeMu sync.Mutex
}

type conn struct {
	port    io.ReadWriteCloser
	name    string
	pending []byte // bytes read past the last returned line; reader goroutine only
	buf     []byte
}

// New creates a disconnected link.
func New(log *logrus.Entry, opener Opener, lister Lister, timeout time.Duration) *Link {
	return &Link{
		opener:  opener,
		lister:  lister,
		timeout: timeout,
		log:     log,
	}
}

// State returns the current connection state.
func (l *Link) State() ConnectionState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// PortName returns the name of the open port, or "".
func (l *Link) PortName() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn == nil {
		return ""
	}
	return l.conn.name
}

// Open connects to port. It gives up after the link timeout and leaves the
// link Disconnected on any failure.
func (l *Link) Open(port string, baud int) error {
	l.mu.Lock()
	if l.state != Disconnected {
		l.mu.Unlock()
		return &OpenError{Port: port, Reason: errAlreadyOpen}
	}
	l.state = Connecting
	l.gen++
	gen := l.gen
	l.mu.Unlock()

	log := l.log.WithFields(logrus.Fields{"port": port, "baud": baud})
	log.Info("opening link")

	p, err := l.openWithTimeout(port, baud)

	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		if l.gen == gen {
			l.state = Disconnected
		}
		log.WithError(err).Warn("open failed")
		return &OpenError{Port: port, Reason: err}
	}
	if l.gen != gen {
		// Close ran while connecting.
		_ = p.Close()
		log.Info("open cancelled")
		return &OpenError{Port: port, Reason: errOpenCancelled}
	}
	l.conn = &conn{port: p, name: port, buf: make([]byte, 1024)}
	l.state = Connected
	log.Info("link connected")
	return nil
}

func (l *Link) openWithTimeout(port string, baud int) (io.ReadWriteCloser, error) {
	type result struct {
		p   io.ReadWriteCloser
		err error
	}
	ch := make(chan result, 1)
	go func() {
		p, err := l.opener(port, baud, l.timeout)
		ch <- result{p, err}
	}()

	timer := time.NewTimer(l.timeout)
	defer timer.Stop()

	select {
	case r := <-ch:
		return r.p, r.err
	case <-timer.C:
		// A late open must not leak the port.
		go func() {
			if r := <-ch; r.err == nil {
				_ = r.p.Close()
			}
		}()
		return nil, fmt.Errorf("timed out after %s", l.timeout)
	}
}

// ListAvailablePorts enumerates ports. Failures are logged; whatever the
// lister still returned is passed through.
func (l *Link) ListAvailablePorts() []PortInfo {
	ports, err := l.lister()
	if err != nil {
		l.log.WithError(err).Warn("port enumeration failed")
	}
	return ports
}

// WriteLine sends text followed by exactly one '\n'.
func (l *Link) WriteLine(text string) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	c, err := l.connected()
	if err != nil {
		l.log.WithField("command", text).Warn("not connected, command dropped")
		return err
	}

	line := strings.TrimRight(text, "\r\n") + "\n"
	if _, err := c.port.Write([]byte(line)); err != nil {
		return l.drop(c, err)
	}
	l.log.WithField("command", text).Debug("command sent")
	return nil
}

// ReadLine blocks for the next line and returns it trimmed. It returns ""
// when the read timeout passes without a complete line; the caller retries.
func (l *Link) ReadLine() (string, error) {
	c, err := l.connected()
	if err != nil {
		return "", err
	}

	for {
		if i := bytes.IndexByte(c.pending, '\n'); i >= 0 {
			line := string(c.pending[:i])
			c.pending = c.pending[i+1:]
			return strings.TrimSpace(line), nil
		}

		n, err := c.port.Read(c.buf)
		if n > 0 {
			c.pending = append(c.pending, c.buf[:n]...)
			if len(c.pending) > maxPending && bytes.IndexByte(c.pending, '\n') < 0 {
				l.log.WithFields(logrus.Fields{"port": c.name, "bytes": len(c.pending)}).
					Warn("no line terminator, input discarded")
				c.pending = c.pending[:0]
			}
			continue
		}
		if err != nil {
			return "", l.drop(c, err)
		}
		return "", nil
	}
}

// Close shuts the connection down. It always leaves the link Disconnected,
// never fails and may be called any number of times.
func (l *Link) Close() error {
	l.mu.Lock()
	c := l.conn
	l.conn = nil
	l.state = Disconnected
	l.gen++
	l.mu.Unlock()

	if c == nil {
		return nil
	}
	if err := c.port.Close(); err != nil {
		l.log.WithError(err).WithField("port", c.name).Debug("close error ignored")
	}
	l.log.WithField("port", c.name).Info("link closed")
	return nil
}

func (l *Link) connected() (*conn, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != Connected || l.conn == nil {
		return nil, ErrNotConnected
	}
	return l.conn, nil
}

// drop handles an I/O failure on c. Only the first failure of a connection
// flips the state; failures on a connection already replaced or closed report
// ErrNotConnected.
func (l *Link) drop(c *conn, cause error) error {
	l.mu.Lock()
	if l.conn != c {
		l.mu.Unlock()
		return ErrNotConnected
	}
	l.conn = nil
	l.state = Disconnected
	l.mu.Unlock()

	_ = c.port.Close()
	l.log.WithError(cause).WithField("port", c.name).Warn("link dropped")
	return fmt.Errorf("%w: %w", ErrDropped, cause)
}
