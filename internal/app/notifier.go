package app

import (
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"rtdt-monitor.klederson.com/internal/protocol"
)

// Sender is the part of *tea.Program the notifier uses.
type Sender interface {
	Send(msg tea.Msg)
}

// sampleNotifier runs on the acquisition goroutine. It forwards each sample
// to the recorder and posts a SampleMsg unless one is already pending, so a
// fast device never floods the program's message queue.
type sampleNotifier struct {
	sender  atomic.Pointer[Sender]
	pending atomic.Bool
	record  func(protocol.Sample)
}

func (n *sampleNotifier) attach(s Sender) {
	n.sender.Store(&s)
}

func (n *sampleNotifier) Notify(s protocol.Sample) {
	if n.record != nil {
		n.record(s)
	}
	if !n.pending.CompareAndSwap(false, true) {
		return
	}
	sp := n.sender.Load()
	if sp == nil {
		n.pending.Store(false)
		return
	}
	// Send blocks until the program reads it; never hold anything here.
	(*sp).Send(SampleMsg{})
}

// consumed re-arms the notifier once the model has handled a SampleMsg.
func (n *sampleNotifier) consumed() {
	n.pending.Store(false)
}
