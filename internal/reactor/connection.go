package reactor

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	"github.com/trappedfunction/reactorkv/internal/apperr"
)

// ConnState is the Connection state machine of spec.md §4.7.
type ConnState int

const (
	StateConnecting ConnState = iota
	StateConnected
	StateDisconnecting
	StateDisconnected
)

// MessageCallback is invoked once per completed read cycle that left
// bytes in Input(); it is the HTTP layer's entry point.
type MessageCallback func(conn *Connection)

// CloseCallback is invoked exactly once, when a Connection reaches
// StateDisconnected; the Server wires this to EventLoop.RemoveConnection.
type CloseCallback func(conn *Connection)

// Connection implements spec.md §4.7: the per-socket state machine.
// A Connection is held by shared (pointer) ownership from the owner
// loop's connection table and any in-flight callback frame; its
// Channel captures only a weak tie (a closure checking a destroyed
// flag), which is the Go analogue of the spec's shared/weak split
// since Go pointers cannot be "upgraded" the way a C++ weak_ptr can —
// the destroyed flag plus the table removal together provide the same
// guarantee: once gone, no further callback observes the Connection.
type Connection struct {
	loop *EventLoop
	fd   int
	ch   *Channel

	input  *Buffer
	output *Buffer

	peerAddr string

	tls      *tlsSession
	tlsState tlsSubState

	mu         sync.Mutex
	state      ConnState
	lastActive atomic.Value // time.Time

	idleTimerID TimerID
	destroyed   atomic.Bool

	onMessage MessageCallback
	onClose   CloseCallback
}

// NewConnection constructs a Connection for fd on loop. tls is nil for
// plaintext connections.
func NewConnection(loop *EventLoop, fd int, peerAddr string, tls *tlsSession) *Connection {
	c := &Connection{
		loop:     loop,
		fd:       fd,
		input:    NewBuffer(),
		output:   NewBuffer(),
		peerAddr: peerAddr,
		tls:      tls,
		state:    StateConnecting,
	}
	c.lastActive.Store(time.Now())
	c.ch = NewChannel(loop, fd)
	c.ch.Tie(func() (any, bool) {
		if c.destroyed.Load() {
			return nil, false
		}
		return c, true
	})

	if tls != nil {
		c.tlsState = TLSHandshaking
		c.ch.SetReadCallback(c.handleTLSHandshakeOrRead)
		c.ch.SetWriteCallback(c.handleTLSHandshakeOrWrite)
	} else {
		c.ch.SetReadCallback(c.handleRead)
		c.ch.SetWriteCallback(c.handleWrite)
	}
	c.ch.SetCloseCallback(c.handleClose)
	c.ch.SetErrorCallback(c.handleError)

	return c
}

func (c *Connection) FD() int             { return c.fd }
func (c *Connection) Loop() *EventLoop    { return c.loop }
func (c *Connection) PeerAddr() string    { return c.peerAddr }
func (c *Connection) Input() *Buffer      { return c.input }
func (c *Connection) Output() *Buffer     { return c.output }
func (c *Connection) IdleTimerID() TimerID { return c.idleTimerID }
func (c *Connection) SetIdleTimerID(id TimerID) { c.idleTimerID = id }

func (c *Connection) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetMessageCallback wires the application-level handler.
func (c *Connection) SetMessageCallback(f MessageCallback) { c.onMessage = f }

// SetCloseCallback wires the Server's table-removal hook.
func (c *Connection) SetCloseCallback(f CloseCallback) { c.onClose = f }

// Established transitions Connecting→Connected, registers the Channel
// for reading, and (TLS mode) starts the handshake bridge.
func (c *Connection) Established() {
	c.loop.assertInLoopThread()
	c.mu.Lock()
	c.state = StateConnected
	c.mu.Unlock()
	c.ch.EnableReading()
	if c.tls != nil {
		c.tls.raw.signalReadable() // harmless if handshake hasn't started yet
		c.tls.Start()
		go c.pumpTLSPlaintext()
	}
}

func (c *Connection) touchActive() { c.lastActive.Store(time.Now()) }

// LastActive returns the timestamp of the most recent byte delivery.
func (c *Connection) LastActive() time.Time { return c.lastActive.Load().(time.Time) }

// ---- plain I/O path ----

func (c *Connection) handleRead() {
	c.loop.assertInLoopThread()
	for {
		n, err := c.input.ReadFromFD(c.fd)
		if err == nil && n == 0 {
			c.handleClose()
			return
		}
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				break
			}
			c.handleError()
			return
		}
	}
	c.afterReadCycle()
}

func (c *Connection) afterReadCycle() {
	if c.State() == StateConnected && c.input.ReadableBytes() > 0 {
		c.touchActive()
		if c.onMessage != nil {
			c.onMessage(c)
		}
	} else if c.State() != StateConnected {
		c.input.RetrieveAll()
	}
}

func (c *Connection) handleWrite() {
	c.loop.assertInLoopThread()
	if !c.ch.IsWriting() {
		return
	}
	n, err := unix.Write(c.fd, c.output.Peek())
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return
		}
		c.handleError()
		return
	}
	c.output.Retrieve(n)
	if c.output.ReadableBytes() == 0 {
		c.ch.DisableWriting()
		if c.State() == StateDisconnecting {
			c.shutdownInLoop()
		}
	}
}

// ---- TLS I/O path ----

// handleTLSHandshakeOrRead signals the bridge goroutine's blocking
// Read that the fd became readable; the actual TLS record processing
// happens off-loop in the bridge goroutine (see tlssession.go).
func (c *Connection) handleTLSHandshakeOrRead() {
	c.loop.assertInLoopThread()
	c.tls.raw.signalReadable()
}

func (c *Connection) handleTLSHandshakeOrWrite() {
	c.loop.assertInLoopThread()
	c.tls.raw.signalWritable()
}

// pumpTLSPlaintext runs off-loop (it blocks on channel receives) and
// feeds decrypted bytes back into the Connection's input buffer and
// message callback via QueueInLoop, preserving the single-writer
// invariant on Buffer.
func (c *Connection) pumpTLSPlaintext() {
	if err := <-c.tls.handshakeErr; err != nil {
		c.loop.RunInLoop(func() { c.handleClose() })
		return
	}
	c.loop.RunInLoop(func() {
		c.tlsState = TLSEstablished
	})

	for chunk := range c.tls.plaintextIn {
		data := chunk
		c.loop.QueueInLoop(func() {
			if c.State() != StateConnected {
				return
			}
			c.input.Append(data)
			c.afterReadCycle()
		})
	}
	// plaintextIn closed: peer EOF or TLS error.
	c.loop.RunInLoop(func() { c.handleClose() })
}

func (c *Connection) writeTLS(data []byte) {
	go func() {
		_, err := c.tls.WritePlaintext(data)
		if err != nil {
			c.loop.RunInLoop(func() { c.handleError() })
		}
	}()
}

// ---- public send/shutdown/force_close ----

// Send queues data for delivery, dispatching to the owner loop from
// any calling goroutine (spec.md §4.7).
func (c *Connection) Send(data []byte) {
	if c.loop.InLoopThread() {
		c.sendInLoop(data)
		return
	}
	cp := append([]byte(nil), data...)
	c.loop.QueueInLoop(func() { c.sendInLoop(cp) })
}

func (c *Connection) sendInLoop(data []byte) {
	if c.State() != StateConnected {
		return
	}
	if c.tls != nil {
		c.writeTLS(data)
		return
	}
	if !c.ch.IsWriting() && c.output.ReadableBytes() == 0 {
		n, err := unix.Write(c.fd, data)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				n = 0
			} else {
				c.handleError()
				return
			}
		}
		if n < len(data) {
			c.output.Append(data[n:])
			c.ch.EnableWriting()
		}
		return
	}
	c.output.Append(data)
	c.ch.EnableWriting()
}

// Shutdown requests a graceful half-close once pending writes drain.
func (c *Connection) Shutdown() {
	if c.loop.InLoopThread() {
		c.shutdownInLoop()
		return
	}
	c.loop.QueueInLoop(c.shutdownInLoop)
}

func (c *Connection) shutdownInLoop() {
	if c.State() != StateConnected && c.State() != StateDisconnecting {
		return
	}
	c.mu.Lock()
	c.state = StateDisconnecting
	c.mu.Unlock()

	if c.tls != nil {
		c.tlsState = TLSClosing
		go func() {
			c.tls.Shutdown()
			c.loop.RunInLoop(func() { unix.Shutdown(c.fd, unix.SHUT_WR) })
		}()
		return
	}
	if !c.ch.IsWriting() {
		unix.Shutdown(c.fd, unix.SHUT_WR)
	}
}

// ForceClose tears the connection down immediately.
func (c *Connection) ForceClose() {
	if c.loop.InLoopThread() {
		c.handleClose()
		return
	}
	c.loop.QueueInLoop(c.handleClose)
}

// handleClose is idempotent (spec.md §4.7): at most one transition to
// Disconnected and at most one invocation of the close callback.
func (c *Connection) handleClose() {
	c.mu.Lock()
	if c.state == StateDisconnected {
		c.mu.Unlock()
		return
	}
	c.state = StateDisconnected
	c.mu.Unlock()

	c.destroyed.Store(true)
	c.ch.DisableAll()
	c.ch.Remove()
	if c.idleTimerID != 0 {
		c.loop.CancelTimer(c.idleTimerID)
	}
	unix.Close(c.fd)
	if c.onClose != nil {
		c.onClose(c)
	}
}

func (c *Connection) handleError() {
	_ = apperr.Reactor(apperr.SocketIo, nil)
	c.handleClose()
}
