package reactor

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// EventLoop implements spec.md §4.5: a single-threaded reactor pinned
// to the goroutine that runs it. Cross-thread callers either enqueue
// a task or hit the wakeup descriptor; nothing blocks the loop.
type EventLoop struct {
	tid       uint64 // set by Run, compared by assertInLoopThread
	poller    *Poller
	timers    *TimerQueue
	wakeupFD  int
	wakeupCh  *Channel

	mu      sync.Mutex
	pending []func()

	connMu sync.Mutex
	conns  map[int]*Connection

	quit    chan struct{}
	running bool
}

// NewEventLoop constructs an EventLoop without starting it; call Run
// on the goroutine that will own it.
func NewEventLoop() (*EventLoop, error) {
	loop := &EventLoop{
		conns: make(map[int]*Connection),
		quit:  make(chan struct{}),
	}

	poller, err := NewPoller(loop)
	if err != nil {
		return nil, err
	}
	loop.poller = poller
	loop.timers = NewTimerQueue(loop)

	efd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("reactor: eventfd: %w", err)
	}
	loop.wakeupFD = efd
	loop.wakeupCh = NewChannel(loop, efd)
	loop.wakeupCh.SetReadCallback(loop.handleWakeup)

	return loop, nil
}

// Run pins the loop to the calling goroutine and executes the main
// iteration (spec.md §4.5) until Quit is called:
//  1. compute timeout from the earliest timer expiration
//  2. poll and dispatch active channels
//  3. run queued cross-thread tasks
//  4. process expired timers
func (l *EventLoop) Run() error {
	l.tid = goroutineMarker()
	l.running = true

	l.wakeupCh.interest = unix.EPOLLIN | unix.EPOLLPRI
	if err := l.poller.Add(l.wakeupCh); err != nil {
		return err
	}
	l.wakeupCh.addedToPoller = true

	for {
		select {
		case <-l.quit:
			return nil
		default:
		}

		timeout := l.pollTimeoutMS()
		active, err := l.poller.Poll(timeout)
		if err != nil {
			return err
		}
		for _, ch := range active {
			ch.HandleEvent()
		}

		l.runPendingTasks()
		l.timers.ProcessExpired(time.Now())
	}
}

func (l *EventLoop) pollTimeoutMS() int {
	when, ok := l.timers.EarliestExpiration()
	if !ok {
		return 10000
	}
	d := time.Until(when)
	if d < 0 {
		return 0
	}
	ms := int(d / time.Millisecond)
	if ms > 10000 {
		ms = 10000
	}
	return ms
}

func (l *EventLoop) runPendingTasks() {
	l.mu.Lock()
	tasks := l.pending
	l.pending = nil
	l.mu.Unlock()

	for _, f := range tasks {
		f()
	}
}

func (l *EventLoop) handleWakeup() {
	var buf [8]byte
	unix.Read(l.wakeupFD, buf[:])
}

func (l *EventLoop) wakeup() {
	var one [8]byte
	one[0] = 1
	unix.Write(l.wakeupFD, one[:])
}

// InLoopThread reports whether the calling goroutine is the loop's own.
func (l *EventLoop) InLoopThread() bool {
	return goroutineMarker() == l.tid
}

func (l *EventLoop) assertInLoopThread() {
	if l.running && !l.InLoopThread() {
		panic("reactor: operation must run on the owner loop's thread")
	}
}

// RunInLoop invokes f on the loop: directly if the caller is already
// the loop, otherwise by enqueuing and waking it.
func (l *EventLoop) RunInLoop(f func()) {
	if l.InLoopThread() {
		f()
		return
	}
	l.QueueInLoop(f)
}

// QueueInLoop always enqueues f and wakes the loop if the caller is
// not the loop itself.
func (l *EventLoop) QueueInLoop(f func()) {
	l.mu.Lock()
	l.pending = append(l.pending, f)
	l.mu.Unlock()
	if !l.InLoopThread() {
		l.wakeup()
	}
}

// Quit stops the loop after its current iteration.
func (l *EventLoop) Quit() {
	close(l.quit)
	l.wakeup()
}

// AddTimer schedules callback at when and returns its id.
func (l *EventLoop) AddTimer(callback func(), when time.Time) TimerID {
	return l.timers.AddTimer(callback, when)
}

// CancelTimer cancels id; safe to call with an already-fired or unknown id.
func (l *EventLoop) CancelTimer(id TimerID) {
	l.RunInLoop(func() { l.timers.Cancel(id) })
}

func (l *EventLoop) updateChannel(ch *Channel) {
	l.assertInLoopThread()
	if !ch.addedToPoller {
		ch.addedToPoller = true
		l.poller.Add(ch)
		return
	}
	l.poller.Modify(ch)
}

func (l *EventLoop) removeChannel(ch *Channel) {
	l.assertInLoopThread()
	l.poller.Remove(ch)
	ch.addedToPoller = false
}

// AddConnection registers conn in this loop's connection table, keyed
// by descriptor.
func (l *EventLoop) AddConnection(fd int, conn *Connection) {
	l.connMu.Lock()
	l.conns[fd] = conn
	l.connMu.Unlock()
}

// RemoveConnection drops conn from the table synchronously. It does
// not touch the Connection's Channel: Connection.handleClose removes
// the Channel from the poller itself, before the close callback that
// calls this runs.
func (l *EventLoop) RemoveConnection(fd int) {
	l.connMu.Lock()
	delete(l.conns, fd)
	l.connMu.Unlock()
}

// ConnectionCount returns the number of live connections on this loop.
func (l *EventLoop) ConnectionCount() int {
	l.connMu.Lock()
	defer l.connMu.Unlock()
	return len(l.conns)
}
