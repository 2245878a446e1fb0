package record

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"rtdt-monitor.klederson.com/internal/protocol"
)

var header = []string{"timestamp", "channel", "x", "y", "z"}

// ErrNotRecording is returned by Stop when no file is open.
var ErrNotRecording = errors.New("record: not recording")

// Recorder appends every sample it is given to a CSV file while active. It is
// fed from the acquisition goroutine and toggled from the UI.
type Recorder struct {
	dir string
	log *logrus.Entry

	mu    sync.Mutex
	file  *os.File
	w     *csv.Writer
	rows  int
	start time.Time
}

// New creates an inactive recorder writing into dir.
func New(dir string, log *logrus.Entry) *Recorder {
	return &Recorder{dir: dir, log: log}
}

// Start opens a new timestamped file and returns its path.
func (r *Recorder) Start(now time.Time) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file != nil {
		return r.file.Name(), nil
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("record dir: %w", err)
	}
	path := filepath.Join(r.dir, "rtdt-"+now.Format("20060102-150405")+".csv")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create recording: %w", err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return "", fmt.Errorf("write header: %w", err)
	}
	r.file, r.w, r.rows, r.start = f, w, 0, now
	r.log.WithField("path", path).Info("recording started")
	return path, nil
}

// Record appends one row. It does nothing while inactive.
func (r *Recorder) Record(s protocol.Sample) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.w == nil {
		return
	}
	row := []string{
		s.ReceivedAt.Format(time.RFC3339Nano),
		s.Kind.String(),
		strconv.FormatFloat(s.X, 'f', -1, 64),
		strconv.FormatFloat(s.Y, 'f', -1, 64),
		strconv.FormatFloat(s.Z, 'f', -1, 64),
	}
	if err := r.w.Write(row); err != nil {
		r.log.WithError(err).Warn("recording write failed")
		return
	}
	r.rows++
}

// Stop flushes and closes the file. It returns the number of rows written.
func (r *Recorder) Stop() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return 0, ErrNotRecording
	}
	r.w.Flush()
	err := errors.Join(r.w.Error(), r.file.Close())
	rows, path := r.rows, r.file.Name()
	r.file, r.w = nil, nil
	r.log.WithFields(logrus.Fields{"path": path, "rows": rows}).Info("recording stopped")
	return rows, err
}

// Active reports whether a file is open.
func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.file != nil
}

// Status returns the open file path and rows written so far. The path is
// empty while inactive.
func (r *Recorder) Status() (path string, rows int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return "", 0
	}
	return r.file.Name(), r.rows
}
