package httpedge

import "testing"

func TestRouterDispatchesNamedCapture(t *testing.T) {
	r := NewRouter()
	var gotID string
	err := r.Register("GET", "/users/:id", func(req *Request) *Response {
		gotID = req.Params["id"]
		resp := NewResponse()
		resp.SetBody([]byte("ok"))
		return resp
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	resp := r.Dispatch(&Request{Method: "GET", Path: "/users/42"})
	if resp == nil {
		t.Fatal("expected a match")
	}
	if gotID != "42" {
		t.Fatalf("captured id = %q, want 42", gotID)
	}
}

func TestRouterNoMatchReturnsNil(t *testing.T) {
	r := NewRouter()
	r.Register("GET", "/echo", func(req *Request) *Response { return NewResponse() })

	if resp := r.Dispatch(&Request{Method: "POST", Path: "/echo"}); resp != nil {
		t.Fatal("expected no match for wrong method")
	}
	if resp := r.Dispatch(&Request{Method: "GET", Path: "/missing"}); resp != nil {
		t.Fatal("expected no match for unregistered path")
	}
}

func TestRouterFreezeRejectsLateRegistration(t *testing.T) {
	r := NewRouter()
	r.Freeze()
	if err := r.Register("GET", "/late", func(req *Request) *Response { return nil }); err == nil {
		t.Fatal("expected error registering after Freeze")
	}
}
