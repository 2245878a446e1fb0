package acquisition

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"rtdt-monitor.klederson.com/internal/link"
	"rtdt-monitor.klederson.com/internal/protocol"
	"rtdt-monitor.klederson.com/internal/series"
)

type scriptedReader struct {
	mu    sync.Mutex
	lines []string
	err   error
}

func (r *scriptedReader) ReadLine() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.lines) == 0 {
		return "", r.err
	}
	l := r.lines[0]
	r.lines = r.lines[1:]
	return l, nil
}

func newLog() (*logrus.Entry, *logtest.Hook) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return logger.WithField("component", "acquisition"), hook
}

func waitDone(t *testing.T, l *Loop) {
	t.Helper()
	select {
	case <-l.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not exit")
	}
}

func TestLoopDecodesPushesAndNotifies(t *testing.T) {
	dropped := errors.Join(link.ErrDropped, errors.New("eof"))
	reader := &scriptedReader{
		lines: []string{
			"I (10) CommandListener: Received: start",
			"",
			"Acceleration: 1,2,3",
			"Velocity: 1,2",
			"garbage",
			"Velocity: 4,5,6",
			"Displacement: 7,8,9",
		},
		err: dropped,
	}
	store := series.NewStore(4)
	var notified []protocol.Sample
	log, hook := newLog()

	l := New(reader, store, func(s protocol.Sample) { notified = append(notified, s) }, log)
	l.Start(context.Background())
	waitDone(t, l)

	if !errors.Is(l.Err(), link.ErrDropped) {
		t.Fatalf("Err = %v, want ErrDropped", l.Err())
	}
	if len(notified) != 3 {
		t.Fatalf("notified %d times, want 3", len(notified))
	}
	if st := l.Stats(); st.Decoded != 3 || st.Rejected != 3 {
		t.Fatalf("stats = %+v", st)
	}

	x, y, z := store.Snapshot(protocol.Acceleration)
	if x[3] != 1 || y[3] != 2 || z[3] != 3 {
		t.Fatalf("acceleration tail %v %v %v", x, y, z)
	}
	x, _, _ = store.Snapshot(protocol.Velocity)
	if x[3] != 4 || x[2] != 0 {
		t.Fatalf("velocity x = %v; malformed line must not push", x)
	}

	discarded := 0
	for _, e := range hook.AllEntries() {
		if e.Message == "line discarded" {
			discarded++
		}
	}
	if discarded != 3 {
		t.Fatalf("logged %d discards", discarded)
	}
}

func TestLoopStopsOnCancel(t *testing.T) {
	reader := &scriptedReader{} // returns "", nil forever
	log, _ := newLog()
	l := New(reader, series.NewStore(2), nil, log)

	ctx, cancel := context.WithCancel(context.Background())
	l.Start(ctx)
	cancel()
	waitDone(t, l)
	if l.Err() != nil {
		t.Fatalf("Err = %v, want nil after cancel", l.Err())
	}
}

func TestLoopStartOnce(t *testing.T) {
	reader := &scriptedReader{lines: []string{"Acceleration: 1,1,1"}, err: link.ErrNotConnected}
	count := 0
	log, _ := newLog()
	l := New(reader, series.NewStore(2), func(protocol.Sample) { count++ }, log)
	l.Start(context.Background())
	l.Start(context.Background())
	waitDone(t, l)
	if count != 1 {
		t.Fatalf("sample delivered %d times", count)
	}
}

func TestRunBlocksUntilReaderFails(t *testing.T) {
	reader := &scriptedReader{
		lines: []string{"Acceleration: 1,2,3", "Acceleration: 4,5,6"},
		err:   link.ErrNotConnected,
	}
	store := series.NewStore(4)
	log, _ := newLog()

	err := New(reader, store, nil, log).Run(context.Background())
	if !errors.Is(err, link.ErrNotConnected) {
		t.Fatalf("Run = %v, want ErrNotConnected", err)
	}
	if x, _, _ := store.Latest(protocol.Acceleration); x != 4 {
		t.Fatalf("latest x = %v, want 4", x)
	}
}

func TestRunCancelledContext(t *testing.T) {
	reader := &scriptedReader{lines: []string{"Acceleration: 1,2,3"}}
	log, _ := newLog()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := New(reader, series.NewStore(4), nil, log).Run(ctx); err != nil {
		t.Fatalf("Run = %v, want nil", err)
	}
}
