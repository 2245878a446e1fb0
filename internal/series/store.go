package series

import "rtdt-monitor.klederson.com/internal/protocol"

// Store keeps one Buffer per channel and axis.
//
// Only the acquisition loop pushes. Renderers read through Snapshot without
// locking; each axis is published independently, so a snapshot may combine
// an X window from one push with a Y window from the previous one. The charts
// redraw continuously, so a one-sample skew between axes is accepted rather
// than paying for a cross-axis lock on every sample.
type Store struct {
	capacity int
	buffers  [len(protocol.Kinds)][len(protocol.Axes)]*Buffer
}

// NewStore creates nine zero-filled buffers of maxPoints values each.
func NewStore(maxPoints int) *Store {
	s := &Store{capacity: maxPoints}
	for k := range s.buffers {
		for a := range s.buffers[k] {
			s.buffers[k][a] = NewBuffer(maxPoints)
		}
	}
	s.capacity = s.buffers[0][0].Len()
	return s
}

// Push folds a sample into the three axis buffers of its channel.
func (s *Store) Push(sample protocol.Sample) {
	bufs := s.channel(sample.Kind)
	for _, a := range protocol.Axes {
		bufs[a].Push(sample.Value(a))
	}
}

// Snapshot returns the X, Y and Z windows of a channel, oldest first. The
// slices are read-only views.
func (s *Store) Snapshot(kind protocol.ChannelKind) (x, y, z []float64) {
	bufs := s.channel(kind)
	return bufs[protocol.AxisX].Values(), bufs[protocol.AxisY].Values(), bufs[protocol.AxisZ].Values()
}

// Latest returns the newest value of each axis of a channel.
func (s *Store) Latest(kind protocol.ChannelKind) (x, y, z float64) {
	bufs := s.channel(kind)
	return bufs[protocol.AxisX].Last(), bufs[protocol.AxisY].Last(), bufs[protocol.AxisZ].Last()
}

// Reset zero-fills all nine buffers.
func (s *Store) Reset() {
	for k := range s.buffers {
		for _, b := range s.buffers[k] {
			b.Reset()
		}
	}
}

// Capacity is the number of points per axis.
func (s *Store) Capacity() int {
	return s.capacity
}

func (s *Store) channel(kind protocol.ChannelKind) *[len(protocol.Axes)]*Buffer {
	if kind < 0 || int(kind) >= len(s.buffers) {
		kind = protocol.Acceleration
	}
	return &s.buffers[kind]
}
