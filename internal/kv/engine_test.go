package kv

import (
	"errors"
	"os"
	"testing"

	"github.com/trappedfunction/reactorkv/internal/apperr"
)

func TestPutGetDeleteRecovery(t *testing.T) {
	dir := t.TempDir()

	e, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := e.Put([]byte("k1"), []byte("v1")); err != nil {
		t.Fatalf("Put k1: %v", err)
	}
	if err := e.Put([]byte("k2"), []byte("v2")); err != nil {
		t.Fatalf("Put k2: %v", err)
	}
	if err := e.Put([]byte("k1"), []byte("v1_new")); err != nil {
		t.Fatalf("Put k1 again: %v", err)
	}
	if err := e.Delete([]byte("k2")); err != nil {
		t.Fatalf("Delete k2: %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	e2, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer e2.Close()

	v, err := e2.Get([]byte("k1"))
	if err != nil {
		t.Fatalf("Get k1: %v", err)
	}
	if string(v) != "v1_new" {
		t.Fatalf("Get k1 = %q, want v1_new", v)
	}

	_, err = e2.Get([]byte("k2"))
	if !errors.Is(err, apperr.KV(apperr.KeyNotFound, nil)) {
		t.Fatalf("Get k2 = %v, want KeyNotFound", err)
	}
}

func TestPutRejectsEmptyKey(t *testing.T) {
	e, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer e.Close()

	err = e.Put(nil, []byte("v"))
	if !errors.Is(err, apperr.KV(apperr.Invalid, nil)) {
		t.Fatalf("Put empty key = %v, want Invalid", err)
	}
}

func TestDeleteMissingKeyNotFound(t *testing.T) {
	e, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer e.Close()

	err = e.Delete([]byte("ghost"))
	if !errors.Is(err, apperr.KV(apperr.KeyNotFound, nil)) {
		t.Fatalf("Delete missing key = %v, want KeyNotFound", err)
	}
}

func TestTornTailRecovery(t *testing.T) {
	dir := t.TempDir()

	e, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := e.Put([]byte("k1"), []byte("v1")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := e.Put([]byte("k1"), []byte("v1_new")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	path := segmentPath(dir, 0)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		t.Fatalf("open segment for corruption: %v", err)
	}
	if _, err := f.Write([]byte{1, 2, 3, 4, 5, 6, 7}); err != nil {
		t.Fatalf("append torn bytes: %v", err)
	}
	f.Close()

	e2, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen after torn tail: %v", err)
	}

	v, err := e2.Get([]byte("k1"))
	if err != nil {
		t.Fatalf("Get k1 after torn tail: %v", err)
	}
	if string(v) != "v1_new" {
		t.Fatalf("Get k1 = %q, want v1_new", v)
	}

	if err := e2.Put([]byte("k3"), []byte("v3")); err != nil {
		t.Fatalf("Put k3 after recovery: %v", err)
	}
	if err := e2.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	e3, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen again: %v", err)
	}
	defer e3.Close()

	v3, err := e3.Get([]byte("k3"))
	if err != nil {
		t.Fatalf("Get k3: %v", err)
	}
	if string(v3) != "v3" {
		t.Fatalf("Get k3 = %q, want v3", v3)
	}
}

func TestReplayIsDeterministic(t *testing.T) {
	dir := t.TempDir()

	e, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for i := 0; i < 50; i++ {
		if err := e.Put([]byte{byte(i)}, []byte{byte(i), byte(i)}); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	if err := e.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	e1, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen 1: %v", err)
	}
	size1 := e1.Index().Size()
	e1.Close()

	e2, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen 2: %v", err)
	}
	size2 := e2.Index().Size()
	e2.Close()

	if size1 != size2 || size1 != 50 {
		t.Fatalf("replay not deterministic: size1=%d size2=%d want 50", size1, size2)
	}
}
