package httpedge

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// StaticHandler serves files under root, rejecting any request whose
// resolved path escapes root (spec.md §1's "path-safety checks",
// supplemented from the original server's traversal rejection).
type StaticHandler struct {
	root string
}

// NewStaticHandler returns a handler rooted at root (must exist).
func NewStaticHandler(root string) (*StaticHandler, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return &StaticHandler{root: abs}, nil
}

// Handle resolves req.Path under the root and serves the file, or a
// 403/404 response if the path escapes root or does not exist.
func (h *StaticHandler) Handle(req *Request) *Response {
	resolved, err := h.resolve(req.Path)
	if err != nil {
		return forbidden()
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return notFound()
		}
		return forbidden()
	}

	resp := NewResponse()
	resp.Headers["Content-Type"] = MIMEType(resolved)
	resp.SetBody(data)
	return resp
}

// resolve joins root with the requested path, cleans it, and rejects
// any result that escapes root (the `..`/root-escape check spec.md
// describes as the static handler's path-safety boundary).
func (h *StaticHandler) resolve(reqPath string) (string, error) {
	cleaned := filepath.Clean("/" + reqPath)
	full := filepath.Join(h.root, cleaned)
	if full != h.root && !strings.HasPrefix(full, h.root+string(filepath.Separator)) {
		return "", os.ErrPermission
	}
	return full, nil
}

func notFound() *Response {
	r := NewResponse()
	r.Status = http.StatusNotFound
	r.SetBody([]byte("not found"))
	return r
}

func forbidden() *Response {
	r := NewResponse()
	r.Status = http.StatusForbidden
	r.SetBody([]byte("forbidden"))
	return r
}
