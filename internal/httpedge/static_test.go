package httpedge

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
)

func TestStaticHandlerServesFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hi"), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	h, err := NewStaticHandler(dir)
	if err != nil {
		t.Fatalf("NewStaticHandler: %v", err)
	}

	resp := h.Handle(&Request{Path: "/a.txt"})
	if resp.Status != http.StatusOK {
		t.Fatalf("Status = %d, want 200", resp.Status)
	}
	if string(resp.Body) != "hi" {
		t.Fatalf("Body = %q, want hi", resp.Body)
	}
	if resp.Headers["Content-Type"] != "text/plain" {
		t.Fatalf("Content-Type = %q, want text/plain", resp.Headers["Content-Type"])
	}
}

func TestStaticHandlerRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	h, err := NewStaticHandler(dir)
	if err != nil {
		t.Fatalf("NewStaticHandler: %v", err)
	}

	resp := h.Handle(&Request{Path: "/../../../etc/passwd"})
	if resp.Status == http.StatusOK {
		t.Fatal("expected traversal attempt to be rejected")
	}
}

func TestStaticHandlerMissingFile(t *testing.T) {
	dir := t.TempDir()
	h, err := NewStaticHandler(dir)
	if err != nil {
		t.Fatalf("NewStaticHandler: %v", err)
	}

	resp := h.Handle(&Request{Path: "/missing.txt"})
	if resp.Status != http.StatusNotFound {
		t.Fatalf("Status = %d, want 404", resp.Status)
	}
}
