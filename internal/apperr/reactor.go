package apperr

// Reactor error codes (spec.md §7). AcceptWouldBlock is not a failure:
// it signals the acceptor's drain loop to stop for this readiness tick.
const (
	ReactorDomain = "reactor"

	AcceptWouldBlock Code = iota + 1
	PeerClosed
	SocketIo
	TlsWouldReadWrite
	TlsZeroReturn
	TlsSyscall
	TlsProtocol
	HandshakeFailed
)

func init() {
	registerDomain(ReactorDomain, map[Code]string{
		AcceptWouldBlock:  "accept would block",
		PeerClosed:        "peer closed connection",
		SocketIo:          "socket I/O error",
		TlsWouldReadWrite: "TLS operation would block",
		TlsZeroReturn:     "TLS peer sent close_notify",
		TlsSyscall:        "TLS underlying syscall failed",
		TlsProtocol:       "TLS protocol error",
		HandshakeFailed:   "TLS handshake failed",
	})
}

// Reactor wraps parent as a reactor-domain CodeError.
func Reactor(code Code, parent error) *CodeError {
	return New(ReactorDomain, code, parent)
}
