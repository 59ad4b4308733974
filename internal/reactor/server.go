package reactor

import "time"

// DefaultIdleTimeout is the per-connection idle timer spec.md §4.8 names.
const DefaultIdleTimeout = 60 * time.Second

// Server implements the dispatch half of spec.md §4.8: on each
// accepted descriptor it picks the next worker loop round-robin,
// builds the (optional) TLS session, and posts construction of the
// Connection to that loop.
type Server struct {
	mainLoop    *EventLoop
	pool        *EventLoopThreadPool
	acceptor    *Acceptor
	tls         *TLSContext
	idleTimeout time.Duration

	onMessage MessageCallback
}

// NewServer wires an Acceptor listening on port to loop, distributing
// across pool. tlsCtx is nil for plaintext servers.
func NewServer(loop *EventLoop, pool *EventLoopThreadPool, port int, tlsCtx *TLSContext) (*Server, error) {
	acc, err := NewAcceptor(loop, port)
	if err != nil {
		return nil, err
	}
	s := &Server{
		mainLoop:    loop,
		pool:        pool,
		acceptor:    acc,
		tls:         tlsCtx,
		idleTimeout: DefaultIdleTimeout,
	}
	acc.SetNewConnectionCallback(s.onAccept)
	return s, nil
}

// SetMessageCallback wires the application's per-message handler,
// invoked by the HTTP edge layer on its Connection.
func (s *Server) SetMessageCallback(f MessageCallback) { s.onMessage = f }

// Start arms the acceptor.
func (s *Server) Start() { s.acceptor.Listen() }

// Close releases the listening socket.
func (s *Server) Close() error { return s.acceptor.Close() }

func (s *Server) onAccept(fd int, peerAddr string) {
	worker := s.pool.NextLoop()

	var session *tlsSession
	if s.tls != nil {
		session = s.tls.NewSession(newRawConn(fd))
	}

	worker.QueueInLoop(func() {
		conn := NewConnection(worker, fd, peerAddr, session)
		conn.SetMessageCallback(s.onMessage)
		conn.SetCloseCallback(func(c *Connection) {
			worker.RemoveConnection(c.FD())
		})
		worker.AddConnection(fd, conn)
		conn.Established()
		s.onConnectionEstablished(conn, worker)
	})
}

// onConnectionEstablished arms the initial idle timer (spec.md §4.8);
// the application message callback is expected to cancel and re-arm it
// on each completed message.
func (s *Server) onConnectionEstablished(conn *Connection, loop *EventLoop) {
	id := loop.AddTimer(func() {
		conn.ForceClose()
	}, time.Now().Add(s.idleTimeout))
	conn.SetIdleTimerID(id)
}

// RefreshIdleTimer cancels conn's current idle timer and schedules a
// new one, the hook the HTTP layer calls on each completed request.
func (s *Server) RefreshIdleTimer(conn *Connection) {
	conn.Loop().CancelTimer(conn.IdleTimerID())
	id := conn.Loop().AddTimer(func() {
		conn.ForceClose()
	}, time.Now().Add(s.idleTimeout))
	conn.SetIdleTimerID(id)
}
