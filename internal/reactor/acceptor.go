package reactor

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// maxAcceptsPerTick bounds how many accept4 calls the Acceptor drains
// in a single readiness tick (DESIGN.md's resolution of spec.md §9's
// open question): an unbounded drain loop can starve the main loop's
// other channels, including its own wakeup channel, under an accept
// storm.
const maxAcceptsPerTick = 256

// NewConnFunc is invoked once per accepted descriptor, on the main
// loop, before dispatch to a worker loop.
type NewConnFunc func(fd int, peerAddr string)

// Acceptor implements spec.md §4.8's listening half: a non-blocking,
// close-on-exec, SO_REUSEADDR listening socket with a Channel on the
// main loop.
type Acceptor struct {
	loop     *EventLoop
	listenFD int
	ch       *Channel
	onAccept NewConnFunc
}

// NewAcceptor creates and binds a listening socket on port, registered on loop.
func NewAcceptor(loop *EventLoop, port int) (*Acceptor, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("reactor: socket: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("reactor: setsockopt SO_REUSEADDR: %w", err)
	}
	addr := &unix.SockaddrInet4{Port: port}
	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("reactor: bind :%d: %w", port, err)
	}
	if err := unix.Listen(fd, unix.SOMAXCONN); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("reactor: listen: %w", err)
	}

	a := &Acceptor{loop: loop, listenFD: fd}
	a.ch = NewChannel(loop, fd)
	a.ch.SetReadCallback(a.handleRead)
	return a, nil
}

// SetNewConnectionCallback wires the per-accept handler.
func (a *Acceptor) SetNewConnectionCallback(f NewConnFunc) { a.onAccept = f }

// Listen arms the acceptor's read interest on the main loop.
func (a *Acceptor) Listen() {
	a.loop.RunInLoop(func() { a.ch.EnableReading() })
}

func (a *Acceptor) handleRead() {
	a.loop.assertInLoopThread()
	for i := 0; i < maxAcceptsPerTick; i++ {
		fd, sa, err := unix.Accept4(a.listenFD, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return
			}
			return
		}
		if a.onAccept != nil {
			a.onAccept(fd, formatSockaddr(sa))
		}
	}
}

func formatSockaddr(sa unix.Sockaddr) string {
	switch addr := sa.(type) {
	case *unix.SockaddrInet4:
		return fmt.Sprintf("%d.%d.%d.%d:%d", addr.Addr[0], addr.Addr[1], addr.Addr[2], addr.Addr[3], addr.Port)
	case *unix.SockaddrInet6:
		return fmt.Sprintf("[%x]:%d", addr.Addr, addr.Port)
	default:
		return "unknown"
	}
}

// Close releases the listening socket.
func (a *Acceptor) Close() error {
	return unix.Close(a.listenFD)
}
