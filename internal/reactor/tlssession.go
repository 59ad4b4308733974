package reactor

import (
	"crypto/tls"
	"io"
	"net"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// crypto/tls exposes no non-blocking, step-by-step handshake/read/write
// primitives (unlike OpenSSL's SSL_accept/SSL_read/SSL_write, which the
// spec's WANT_READ/WANT_WRITE state machine is modeled on). The
// idiomatic Go substitute kept here is a dedicated per-connection
// goroutine driving a blocking *tls.Conn, bridged to the non-blocking
// reactor core through readReady/writeReady signals and plaintext
// channels: the goroutine *is* the handshake/read/write step-driver,
// rawConn.Read/Write block only until the loop's epoll-driven Channel
// says the fd is ready, never longer.
type rawConn struct {
	fd         int
	readReady  chan struct{}
	writeReady chan struct{}
}

func newRawConn(fd int) *rawConn {
	return &rawConn{
		fd:         fd,
		readReady:  make(chan struct{}, 1),
		writeReady: make(chan struct{}, 1),
	}
}

func (r *rawConn) signalReadable() {
	select {
	case r.readReady <- struct{}{}:
	default:
	}
}

func (r *rawConn) signalWritable() {
	select {
	case r.writeReady <- struct{}{}:
	default:
	}
}

func (r *rawConn) Read(p []byte) (int, error) {
	for {
		n, err := unix.Read(r.fd, p)
		if err == nil {
			if n == 0 {
				return 0, io.EOF
			}
			return n, nil
		}
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			<-r.readReady
			continue
		}
		return 0, err
	}
}

func (r *rawConn) Write(p []byte) (int, error) {
	total := 0
	for total < len(p) {
		n, err := unix.Write(r.fd, p[total:])
		if n > 0 {
			total += n
		}
		if err == nil {
			continue
		}
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			<-r.writeReady
			continue
		}
		return total, err
	}
	return total, nil
}

func (r *rawConn) Close() error                       { return nil } // fd lifecycle owned by Connection
func (r *rawConn) LocalAddr() net.Addr                { return nil }
func (r *rawConn) RemoteAddr() net.Addr               { return nil }
func (r *rawConn) SetDeadline(t time.Time) error      { return nil }
func (r *rawConn) SetReadDeadline(t time.Time) error  { return nil }
func (r *rawConn) SetWriteDeadline(t time.Time) error { return nil }

// tlsSubState mirrors spec.md §4.7's TLS sub-state machine.
type tlsSubState int

const (
	TLSHandshaking tlsSubState = iota
	TLSEstablished
	TLSClosing
)

// tlsSession pairs a *tls.Conn with its rawConn bridge and exposes the
// plaintext in/out channels a Connection pumps through its Buffers.
type tlsSession struct {
	conn  *tls.Conn
	raw   *rawConn
	state tlsSubState

	writeMu sync.Mutex

	plaintextIn  chan []byte
	writeErrs    chan error
	handshakeErr chan error
	closeDone    chan struct{}
}

func newTLSSession(conn *tls.Conn, raw *rawConn) *tlsSession {
	return &tlsSession{
		conn:         conn,
		raw:          raw,
		plaintextIn:  make(chan []byte, 64),
		writeErrs:    make(chan error, 1),
		handshakeErr: make(chan error, 1),
		closeDone:    make(chan struct{}),
		state:        TLSHandshaking,
	}
}

// Start launches the background goroutine that drives the handshake
// and then continuously pumps decrypted bytes into plaintextIn.
func (s *tlsSession) Start() {
	go func() {
		if err := s.conn.Handshake(); err != nil {
			s.handshakeErr <- err
			close(s.plaintextIn)
			return
		}
		s.state = TLSEstablished
		s.handshakeErr <- nil

		buf := make([]byte, 32*1024)
		for {
			n, err := s.conn.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				s.plaintextIn <- chunk
			}
			if err != nil {
				close(s.plaintextIn)
				return
			}
		}
	}()
}

// WritePlaintext encrypts and sends data; it may block the caller
// goroutine (not the reactor loop) until the bridge's write side is
// ready. crypto/tls.Conn forbids concurrent Write calls, and Connection
// spawns one goroutine per Send, so writeMu serializes them onto a
// single effective writer.
func (s *tlsSession) WritePlaintext(data []byte) (int, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.Write(data)
}

// Shutdown drives the TLS close_notify exchange.
func (s *tlsSession) Shutdown() error {
	return s.conn.Close()
}
