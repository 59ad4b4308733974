package reactor

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Event masks, mirroring epoll's bits so Channel interest/received
// masks can be passed straight through to epoll_ctl/epoll_wait.
const (
	EventNone    = 0
	EventReadable = unix.EPOLLIN
	EventWritable = unix.EPOLLOUT
	EventError    = unix.EPOLLERR
	EventHangup   = unix.EPOLLHUP
	EventRdHangup = unix.EPOLLRDHUP
	EventPri      = unix.EPOLLPRI
)

// Poller implements spec.md §4.2: a thin wrapper over epoll, mapping
// descriptor to Channel and delivering active channels on Poll. Poll,
// Add, Modify and Remove assert execution on the owner loop's thread
// via ownerLoop's assertInLoopThread.
type Poller struct {
	ownerLoop *EventLoop
	epfd      int
	channels  map[int]*Channel
	events    []unix.EpollEvent
}

// NewPoller creates a Poller bound to loop.
func NewPoller(loop *EventLoop) (*Poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("reactor: epoll_create1: %w", err)
	}
	return &Poller{
		ownerLoop: loop,
		epfd:      epfd,
		channels:  make(map[int]*Channel),
		events:    make([]unix.EpollEvent, 16),
	}, nil
}

// Poll waits up to timeoutMS milliseconds for readiness and returns
// the active channels. The ready-list capacity doubles when a poll
// return fills it entirely.
func (p *Poller) Poll(timeoutMS int) ([]*Channel, error) {
	p.ownerLoop.assertInLoopThread()

	n, err := unix.EpollWait(p.epfd, p.events, timeoutMS)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, fmt.Errorf("reactor: epoll_wait: %w", err)
	}

	active := make([]*Channel, 0, n)
	for i := 0; i < n; i++ {
		fd := int(p.events[i].Fd)
		if ch, ok := p.channels[fd]; ok {
			ch.setReceivedEvents(p.events[i].Events)
			active = append(active, ch)
		}
	}

	if n == len(p.events) {
		p.events = make([]unix.EpollEvent, len(p.events)*2)
	}
	return active, nil
}

// Add registers channel's descriptor with the given interest mask.
func (p *Poller) Add(ch *Channel) error {
	p.ownerLoop.assertInLoopThread()
	ev := unix.EpollEvent{Events: ch.interest, Fd: int32(ch.fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, ch.fd, &ev); err != nil {
		return fmt.Errorf("reactor: epoll_ctl add fd=%d: %w", ch.fd, err)
	}
	p.channels[ch.fd] = ch
	return nil
}

// Modify updates the kernel interest mask to match channel's current
// interest mask.
func (p *Poller) Modify(ch *Channel) error {
	p.ownerLoop.assertInLoopThread()
	ev := unix.EpollEvent{Events: ch.interest, Fd: int32(ch.fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, ch.fd, &ev); err != nil {
		return fmt.Errorf("reactor: epoll_ctl mod fd=%d: %w", ch.fd, err)
	}
	return nil
}

// Remove unregisters channel. It tolerates a channel whose interest
// mask is already empty (already removed, or never added).
func (p *Poller) Remove(ch *Channel) error {
	p.ownerLoop.assertInLoopThread()
	if _, ok := p.channels[ch.fd]; !ok {
		return nil
	}
	delete(p.channels, ch.fd)
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, ch.fd, nil); err != nil && err != unix.ENOENT {
		return fmt.Errorf("reactor: epoll_ctl del fd=%d: %w", ch.fd, err)
	}
	return nil
}

// Close releases the epoll descriptor.
func (p *Poller) Close() error {
	return unix.Close(p.epfd)
}
