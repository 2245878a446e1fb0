package acquisition

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"rtdt-monitor.klederson.com/internal/protocol"
)

// LineReader is the read side of the link.
type LineReader interface {
	ReadLine() (string, error)
}

// Sink receives decoded samples.
type Sink interface {
	Push(protocol.Sample)
}

// Stats counts what the loop has seen.
type Stats struct {
	Decoded  uint64
	Rejected uint64
}

// Loop reads lines from a connection, decodes them, folds samples into the
// sink and calls notify once per sample. It is the only writer of the sink.
type Loop struct {
	reader LineReader
	sink   Sink
	notify func(protocol.Sample)
	log    *logrus.Entry

	decoded  atomic.Uint64
	rejected atomic.Uint64

	startOnce sync.Once
	done      chan struct{}
	err       error
}

// New creates a loop. notify may be nil.
func New(reader LineReader, sink Sink, notify func(protocol.Sample), log *logrus.Entry) *Loop {
	if notify == nil {
		notify = func(protocol.Sample) {}
	}
	return &Loop{
		reader: reader,
		sink:   sink,
		notify: notify,
		log:    log,
		done:   make(chan struct{}),
	}
}

// Start runs the loop on its own goroutine. Calling it again has no effect.
func (l *Loop) Start(ctx context.Context) {
	l.startOnce.Do(func() {
		go func() {
			l.err = l.Run(ctx)
			close(l.done)
		}()
	})
}

// Done is closed when the loop has exited.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Err returns the error that ended the loop. Valid once Done is closed.
func (l *Loop) Err() error {
	<-l.done
	return l.err
}

// Stats returns the decode counters.
func (l *Loop) Stats() Stats {
	return Stats{Decoded: l.decoded.Load(), Rejected: l.rejected.Load()}
}

// Run reads, decodes and stores lines on the calling goroutine until ctx is
// cancelled (nil) or the reader fails (that error). A Loop is run either by
// Run or by Start, not both.
func (l *Loop) Run(ctx context.Context) error {
	l.log.Info("acquisition started")
	for {
		if err := ctx.Err(); err != nil {
			l.log.Info("acquisition cancelled")
			return nil
		}

		line, err := l.reader.ReadLine()
		if err != nil {
			l.log.WithError(err).Info("acquisition stopped")
			return err
		}
		if line == "" {
			continue
		}

		sample, err := protocol.Decode(line)
		if err != nil {
			l.rejected.Add(1)
			l.log.WithError(err).Debug("line discarded")
			continue
		}

		l.decoded.Add(1)
		l.sink.Push(sample)
		l.notify(sample)
	}
}
