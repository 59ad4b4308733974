package reactor

import (
	"crypto/tls"
	"fmt"
)

// sessionIDContext is set on every TLSContext so the handshake can
// resume sessions across connections (spec.md §4.9); it must be
// non-empty and stable for the life of the context.
var sessionIDContext = [32]byte{'r', 'e', 'a', 'c', 't', 'o', 'r', 'k', 'v'}

// TLSContext implements spec.md §4.9: long-lived TLS configuration,
// configured once with a certificate and private key, producing
// per-connection session objects with accept-state set. Trimmed from
// the generality of a multi-cert/multi-CA config object (DESIGN.md)
// down to the single cert/key pair spec.md §6's [ssl] section names.
type TLSContext struct {
	config *tls.Config
}

// NewTLSContext loads certPath/keyPath and builds a server-side TLS context.
func NewTLSContext(certPath, keyPath string) (*TLSContext, error) {
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, fmt.Errorf("reactor: load TLS cert/key: %w", err)
	}
	cfg := &tls.Config{
		Certificates:           []tls.Certificate{cert},
		SessionTicketsDisabled: false,
		MinVersion:             tls.VersionTLS12,
	}
	cfg.SessionTicketKey = [32]byte(sessionIDContext)
	return &TLSContext{config: cfg}, nil
}

// NewSession produces a server-side TLS session bound to the raw
// transport conn, with accept-state set (crypto/tls.Server negotiates
// as the accepting side).
func (t *TLSContext) NewSession(raw *rawConn) *tlsSession {
	return newTLSSession(tls.Server(raw, t.config), raw)
}
