package httpedge

import "strings"

// mimeTypes is the extension→content-type table, supplemented from
// the original C++ server's mime_types.cpp (spec.md §1 names a "MIME
// map" as an external collaborator without enumerating it).
var mimeTypes = map[string]string{
	".html": "text/html",
	".htm":  "text/html",
	".css":  "text/css",
	".js":   "application/javascript",
	".json": "application/json",
	".txt":  "text/plain",
	".xml":  "application/xml",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".ico":  "image/x-icon",
	".pdf":  "application/pdf",
	".gz":   "application/gzip",
	".wasm": "application/wasm",
}

const defaultMIMEType = "application/octet-stream"

// MIMEType returns the content-type for path's extension, falling
// back to application/octet-stream.
func MIMEType(path string) string {
	i := strings.LastIndexByte(path, '.')
	if i < 0 {
		return defaultMIMEType
	}
	if ct, ok := mimeTypes[strings.ToLower(path[i:])]; ok {
		return ct
	}
	return defaultMIMEType
}
