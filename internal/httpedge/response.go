package httpedge

import (
	"bytes"
	"fmt"
	"net/http"
)

// ServerHeader is sent on every response.
const ServerHeader = "reactorkv"

// Response is a buffered HTTP/1.1 response built by a handler and
// serialized onto a Connection's output Buffer.
type Response struct {
	Status  int
	Headers map[string]string
	Body    []byte
	// KeepAlive controls the Connection response header; handlers set
	// it false to request the peer close after this response.
	KeepAlive bool
}

// NewResponse returns a 200 OK, Keep-Alive response with no body.
func NewResponse() *Response {
	return &Response{Status: http.StatusOK, Headers: make(map[string]string), KeepAlive: true}
}

// SetBody sets the body; Serialize derives Content-Length from it.
func (r *Response) SetBody(b []byte) {
	r.Body = b
}

// Serialize renders the status line, headers, and body as the exact
// wire bytes spec.md §8 scenario 1 names.
func (r *Response) Serialize() []byte {
	var buf bytes.Buffer
	statusText := http.StatusText(r.Status)
	if statusText == "" {
		statusText = "Unknown"
	}
	fmt.Fprintf(&buf, "HTTP/1.1 %d %s\r\n", r.Status, statusText)
	fmt.Fprintf(&buf, "Server: %s\r\n", ServerHeader)
	fmt.Fprintf(&buf, "Content-Length: %d\r\n", len(r.Body))
	conn := "Keep-Alive"
	if !r.KeepAlive {
		conn = "close"
	}
	fmt.Fprintf(&buf, "Connection: %s\r\n", conn)
	for k, v := range r.Headers {
		fmt.Fprintf(&buf, "%s: %s\r\n", k, v)
	}
	buf.WriteString("\r\n")
	buf.Write(r.Body)
	return buf.Bytes()
}
