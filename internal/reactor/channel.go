package reactor

import "golang.org/x/sys/unix"

// Channel implements spec.md §4.3: per-descriptor event registration
// and dispatch. It is exclusively owned by its Connection (or by the
// Acceptor for the listening socket, or by the loop itself for its
// wakeup descriptor) and
// referenced non-owningly by the owner loop's Poller.
type Channel struct {
	loop     *EventLoop
	fd       int
	interest uint32
	received uint32

	readCallback  func()
	writeCallback func()
	closeCallback func()
	errorCallback func()

	// tie upgrades to a strong reference at dispatch time; if the
	// owning Connection is already gone, the event is dropped.
	tie func() (any, bool)

	addedToPoller bool
}

// NewChannel creates a Channel for fd on loop, with no interest and no callbacks set.
func NewChannel(loop *EventLoop, fd int) *Channel {
	return &Channel{loop: loop, fd: fd}
}

func (c *Channel) SetReadCallback(f func())  { c.readCallback = f }
func (c *Channel) SetWriteCallback(f func()) { c.writeCallback = f }
func (c *Channel) SetCloseCallback(f func()) { c.closeCallback = f }
func (c *Channel) SetErrorCallback(f func()) { c.errorCallback = f }

// Tie sets a weak upgrade function used to guard dispatch against a
// destroyed owner; pass nil to clear it (e.g. for loop-owned channels
// with no Connection).
func (c *Channel) Tie(upgrade func() (any, bool)) { c.tie = upgrade }

func (c *Channel) FD() int { return c.fd }
func (c *Channel) InterestMask() uint32 { return c.interest }

func (c *Channel) setReceivedEvents(ev uint32) { c.received = ev }

func (c *Channel) update() {
	c.loop.updateChannel(c)
}

func (c *Channel) EnableReading() {
	c.interest |= unix.EPOLLIN | unix.EPOLLPRI
	c.update()
}

func (c *Channel) DisableReading() {
	c.interest &^= unix.EPOLLIN | unix.EPOLLPRI
	c.update()
}

func (c *Channel) EnableWriting() {
	c.interest |= unix.EPOLLOUT
	c.update()
}

func (c *Channel) DisableWriting() {
	c.interest &^= unix.EPOLLOUT
	c.update()
}

func (c *Channel) DisableAll() {
	c.interest = 0
	c.update()
}

func (c *Channel) IsWriting() bool { return c.interest&unix.EPOLLOUT != 0 }
func (c *Channel) IsReading() bool { return c.interest&(unix.EPOLLIN|unix.EPOLLPRI) != 0 }

// Remove detaches the channel from its loop's poller entirely.
func (c *Channel) Remove() {
	c.loop.removeChannel(c)
}

// HandleEvent dispatches received, honoring spec.md §4.3's order:
// hang-up-without-readable → close; error → error; readable/urgent/
// peer-closed → read; writable → write. If a weak tie is set, it is
// upgraded first; a failed upgrade silently drops the event.
func (c *Channel) HandleEvent() {
	if c.tie != nil {
		if _, ok := c.tie(); !ok {
			return
		}
	}

	ev := c.received
	if ev&unix.EPOLLHUP != 0 && ev&unix.EPOLLIN == 0 {
		if c.closeCallback != nil {
			c.closeCallback()
		}
		return
	}
	if ev&(unix.EPOLLERR) != 0 {
		if c.errorCallback != nil {
			c.errorCallback()
		}
	}
	if ev&(unix.EPOLLIN|unix.EPOLLPRI|unix.EPOLLRDHUP) != 0 {
		if c.readCallback != nil {
			c.readCallback()
		}
	}
	if ev&unix.EPOLLOUT != 0 {
		if c.writeCallback != nil {
			c.writeCallback()
		}
	}
}
