package link

import (
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

// fakePort serves scripted reads and records writes. Reads block until data
// is fed, the port is closed or a read error is injected.
type fakePort struct {
	mu      sync.Mutex
	cond    *sync.Cond
	in      []string
	readErr error
	closed  bool
	timeout bool // return (0, nil) once when nothing is queued
	writes  []string
	wErr    error
	closes  int
}

func newFakePort() *fakePort {
	p := &fakePort{}
	p.cond = sync.NewCond(&p.mu)
	return p
}

func (p *fakePort) feed(chunks ...string) {
	p.mu.Lock()
	p.in = append(p.in, chunks...)
	p.mu.Unlock()
	p.cond.Broadcast()
}

func (p *fakePort) fail(err error) {
	p.mu.Lock()
	p.readErr = err
	p.mu.Unlock()
	p.cond.Broadcast()
}

func (p *fakePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.in) == 0 && !p.closed && p.readErr == nil && !p.timeout {
		p.cond.Wait()
	}
	switch {
	case p.closed:
		return 0, errors.New("port closed")
	case len(p.in) > 0:
		n := copy(b, p.in[0])
		p.in[0] = p.in[0][n:]
		if p.in[0] == "" {
			p.in = p.in[1:]
		}
		return n, nil
	case p.readErr != nil:
		return 0, p.readErr
	default:
		p.timeout = false
		return 0, nil
	}
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.wErr != nil {
		return 0, p.wErr
	}
	p.writes = append(p.writes, string(b))
	return len(b), nil
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	p.closed = true
	p.closes++
	p.mu.Unlock()
	p.cond.Broadcast()
	return nil
}

func (p *fakePort) written() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.writes...)
}

func newTestLink(t *testing.T, port io.ReadWriteCloser, openErr error) (*Link, *logtest.Hook) {
	t.Helper()
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	opener := func(string, int, time.Duration) (io.ReadWriteCloser, error) {
		if openErr != nil {
			return nil, openErr
		}
		return port, nil
	}
	lister := func() ([]PortInfo, error) {
		return []PortInfo{{Name: "/dev/ttyUSB0", IsUSB: true, VID: "303a", PID: "1001"}}, nil
	}
	return New(logger.WithField("component", "link"), opener, lister, 50*time.Millisecond), hook
}

func TestOpenSuccess(t *testing.T) {
	l, _ := newTestLink(t, newFakePort(), nil)
	if l.State() != Disconnected {
		t.Fatalf("initial state = %s", l.State())
	}
	if err := l.Open("/dev/ttyUSB0", 115200); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if l.State() != Connected {
		t.Fatalf("state = %s, want Connected", l.State())
	}
	if l.PortName() != "/dev/ttyUSB0" {
		t.Fatalf("PortName = %q", l.PortName())
	}
}

func TestOpenFailure(t *testing.T) {
	l, _ := newTestLink(t, nil, errors.New("no such device"))
	err := l.Open("/dev/ttyUSB9", 115200)
	if !errors.Is(err, ErrOpenFailed) {
		t.Fatalf("err = %v, want ErrOpenFailed", err)
	}
	var oe *OpenError
	if !errors.As(err, &oe) || oe.Port != "/dev/ttyUSB9" || !strings.Contains(oe.Error(), "no such device") {
		t.Fatalf("err = %#v", err)
	}
	if l.State() != Disconnected {
		t.Fatalf("state = %s, want Disconnected", l.State())
	}
}

func TestOpenTimeout(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	release := make(chan struct{})
	late := newFakePort()
	opener := func(string, int, time.Duration) (io.ReadWriteCloser, error) {
		<-release
		return late, nil
	}
	l := New(logger.WithField("component", "link"), opener, nil, 20*time.Millisecond)

	err := l.Open("/dev/slow", 115200)
	if !errors.Is(err, ErrOpenFailed) {
		t.Fatalf("err = %v, want ErrOpenFailed", err)
	}
	if l.State() != Disconnected {
		t.Fatalf("state = %s", l.State())
	}

	close(release)
	deadline := time.Now().Add(time.Second)
	for {
		late.mu.Lock()
		closed := late.closed
		late.mu.Unlock()
		if closed {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("late port was never closed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestCloseWhileConnectingCancelsOpen(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	release := make(chan struct{})
	port := newFakePort()
	opener := func(string, int, time.Duration) (io.ReadWriteCloser, error) {
		<-release
		return port, nil
	}
	l := New(logger.WithField("component", "link"), opener, nil, time.Second)

	done := make(chan error, 1)
	go func() { done <- l.Open("/dev/slow", 115200) }()

	deadline := time.Now().Add(time.Second)
	for l.State() != Connecting {
		if time.Now().After(deadline) {
			t.Fatal("link never reached Connecting")
		}
		time.Sleep(time.Millisecond)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if l.State() != Disconnected {
		t.Fatalf("state after Close = %s", l.State())
	}

	close(release)
	if err := <-done; !errors.Is(err, ErrOpenFailed) {
		t.Fatalf("Open err = %v, want ErrOpenFailed", err)
	}
	if l.State() != Disconnected {
		t.Fatalf("state after Open returned = %s, want Disconnected", l.State())
	}
	port.mu.Lock()
	closes := port.closes
	port.mu.Unlock()
	if closes != 1 {
		t.Fatalf("port closed %d times, want 1", closes)
	}
}

func TestOpenTwiceRejected(t *testing.T) {
	l, _ := newTestLink(t, newFakePort(), nil)
	if err := l.Open("a", 9600); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := l.Open("a", 9600); !errors.Is(err, ErrOpenFailed) {
		t.Fatalf("second Open err = %v, want ErrOpenFailed", err)
	}
	if l.State() != Connected {
		t.Fatalf("state = %s", l.State())
	}
}

func TestWriteLineNotConnected(t *testing.T) {
	port := newFakePort()
	l, hook := newTestLink(t, port, nil)
	if err := l.WriteLine("start"); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("err = %v, want ErrNotConnected", err)
	}
	if len(port.written()) != 0 {
		t.Fatalf("wrote %v while disconnected", port.written())
	}
	if e := hook.LastEntry(); e == nil || e.Level != logrus.WarnLevel {
		t.Fatalf("expected a warning, got %+v", e)
	}
}

func TestWriteLineTerminatesOnce(t *testing.T) {
	port := newFakePort()
	l, _ := newTestLink(t, port, nil)
	if err := l.Open("p", 115200); err != nil {
		t.Fatalf("Open: %v", err)
	}
	for _, s := range []string{"set_rate:100", "start\n", "stop\r\n"} {
		if err := l.WriteLine(s); err != nil {
			t.Fatalf("WriteLine(%q): %v", s, err)
		}
	}
	want := []string{"set_rate:100\n", "start\n", "stop\n"}
	got := port.written()
	if len(got) != len(want) {
		t.Fatalf("writes = %q", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("write %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestWriteLineConcurrentNoInterleave(t *testing.T) {
	port := newFakePort()
	l, _ := newTestLink(t, port, nil)
	if err := l.Open("p", 115200); err != nil {
		t.Fatalf("Open: %v", err)
	}
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.WriteLine("set_mpu6050_config:0,0,3,0")
		}()
	}
	wg.Wait()
	for _, w := range port.written() {
		if w != "set_mpu6050_config:0,0,3,0\n" {
			t.Fatalf("interleaved write %q", w)
		}
	}
}

func TestWriteFailureDrops(t *testing.T) {
	port := newFakePort()
	port.wErr = errors.New("usb unplugged")
	l, _ := newTestLink(t, port, nil)
	if err := l.Open("p", 115200); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := l.WriteLine("start"); !errors.Is(err, ErrDropped) {
		t.Fatalf("err = %v, want ErrDropped", err)
	}
	if l.State() != Disconnected {
		t.Fatalf("state = %s", l.State())
	}
}

func TestReadLineFraming(t *testing.T) {
	port := newFakePort()
	l, _ := newTestLink(t, port, nil)
	if err := l.Open("p", 115200); err != nil {
		t.Fatalf("Open: %v", err)
	}
	port.feed("  Acceleration: 1,2", ",3 \r\n\n", "Velocity: 4,5,6\n")

	want := []string{"Acceleration: 1,2,3", "", "Velocity: 4,5,6"}
	for i, w := range want {
		got, err := l.ReadLine()
		if err != nil {
			t.Fatalf("ReadLine %d: %v", i, err)
		}
		if got != w {
			t.Fatalf("ReadLine %d = %q, want %q", i, got, w)
		}
	}
}

func TestReadLineTimeoutIsNoData(t *testing.T) {
	port := newFakePort()
	l, _ := newTestLink(t, port, nil)
	if err := l.Open("p", 115200); err != nil {
		t.Fatalf("Open: %v", err)
	}
	port.mu.Lock()
	port.timeout = true
	port.mu.Unlock()

	got, err := l.ReadLine()
	if err != nil || got != "" {
		t.Fatalf("ReadLine = %q, %v; want empty, nil", got, err)
	}
	if l.State() != Connected {
		t.Fatalf("timeout changed state to %s", l.State())
	}
}

func TestReadFailureDropsOnce(t *testing.T) {
	port := newFakePort()
	l, hook := newTestLink(t, port, nil)
	if err := l.Open("p", 115200); err != nil {
		t.Fatalf("Open: %v", err)
	}
	port.fail(io.ErrUnexpectedEOF)

	_, err := l.ReadLine()
	if !errors.Is(err, ErrDropped) || !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("err = %v, want ErrDropped wrapping cause", err)
	}
	if l.State() != Disconnected {
		t.Fatalf("state = %s", l.State())
	}

	drops := 0
	for _, e := range hook.AllEntries() {
		if e.Message == "link dropped" {
			drops++
		}
	}
	if drops != 1 {
		t.Fatalf("dropped logged %d times", drops)
	}

	if _, err := l.ReadLine(); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("read after drop err = %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close after drop: %v", err)
	}
	if l.State() != Disconnected {
		t.Fatalf("state = %s", l.State())
	}
}

func TestCloseUnblocksReader(t *testing.T) {
	port := newFakePort()
	l, _ := newTestLink(t, port, nil)
	if err := l.Open("p", 115200); err != nil {
		t.Fatalf("Open: %v", err)
	}

	errc := make(chan error, 1)
	go func() {
		_, err := l.ReadLine()
		errc <- err
	}()
	time.Sleep(10 * time.Millisecond)

	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	select {
	case err := <-errc:
		if !errors.Is(err, ErrNotConnected) {
			t.Fatalf("read err = %v, want ErrNotConnected", err)
		}
	case <-time.After(time.Second):
		t.Fatal("reader not released by Close")
	}
	if l.State() != Disconnected {
		t.Fatalf("state = %s", l.State())
	}
}

func TestCloseIdempotent(t *testing.T) {
	port := newFakePort()
	l, _ := newTestLink(t, port, nil)
	if err := l.Close(); err != nil {
		t.Fatalf("Close on fresh link: %v", err)
	}
	if err := l.Open("p", 115200); err != nil {
		t.Fatalf("Open: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := l.Close(); err != nil {
			t.Fatalf("Close %d: %v", i, err)
		}
	}
	if port.closes != 1 {
		t.Fatalf("port closed %d times, want 1", port.closes)
	}
}

func TestReopenAfterClose(t *testing.T) {
	l, _ := newTestLink(t, newFakePort(), nil)
	for i := 0; i < 3; i++ {
		if err := l.Open("p", 115200); err != nil {
			t.Fatalf("Open %d: %v", i, err)
		}
		_ = l.Close()
	}
}

func TestListAvailablePorts(t *testing.T) {
	l, _ := newTestLink(t, nil, nil)
	ports := l.ListAvailablePorts()
	if len(ports) != 1 || ports[0].Label() != "/dev/ttyUSB0 (303a:1001)" {
		t.Fatalf("ports = %+v", ports)
	}
}

func TestWithExtraPorts(t *testing.T) {
	failing := func() ([]PortInfo, error) { return nil, errors.New("no sysfs") }
	lister := WithExtraPorts(failing, PortInfo{Name: "DEMO"})
	logger, _ := logtest.NewNullLogger()
	l := New(logger.WithField("component", "link"), nil, lister, time.Second)

	ports := l.ListAvailablePorts()
	if len(ports) != 1 || ports[0].Name != "DEMO" {
		t.Fatalf("ports = %+v", ports)
	}
}

func TestWithExtraPortsNilBase(t *testing.T) {
	ports, err := WithExtraPorts(nil, PortInfo{Name: "DEMO"})()
	if err != nil || len(ports) != 1 || ports[0].Name != "DEMO" {
		t.Fatalf("ports = %+v, err = %v", ports, err)
	}
}

func TestReadLineDiscardsUnterminatedFlood(t *testing.T) {
	port := newFakePort()
	l, hook := newTestLink(t, port, nil)
	if err := l.Open("/dev/ttyUSB0", 115200); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer l.Close()

	port.feed(strings.Repeat("\xff", 3*maxPending), "Velocity: 1,2,3\n")
	var line string
	for line == "" {
		var err error
		if line, err = l.ReadLine(); err != nil {
			t.Fatalf("ReadLine: %v", err)
		}
	}
	if len(line) > maxPending+len("Velocity: 1,2,3") {
		t.Fatalf("line of %d bytes kept past the cap", len(line))
	}
	if !strings.HasSuffix(line, "Velocity: 1,2,3") {
		t.Fatalf("line = %q", line)
	}

	warned := false
	for _, e := range hook.AllEntries() {
		if e.Message == "no line terminator, input discarded" {
			warned = true
		}
	}
	if !warned {
		t.Fatal("discard not logged")
	}
}
