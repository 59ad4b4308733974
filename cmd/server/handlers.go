package main

import (
	"net/http"

	"github.com/trappedfunction/reactorkv/internal/httpedge"
	"github.com/trappedfunction/reactorkv/internal/kv"
)

// defaultHandlers builds the "configuration-populated registry" of
// handler_name → HandlerFunc that [routes] entries bind to (spec.md §9).
func defaultHandlers(engine *kv.Engine) map[string]httpedge.HandlerFunc {
	return map[string]httpedge.HandlerFunc{
		"echo":     echoHandler,
		"kv_get":    kvGetHandler(engine),
		"kv_put":    kvPutHandler(engine),
		"kv_delete": kvDeleteHandler(engine),
	}
}

func echoHandler(req *httpedge.Request) *httpedge.Response {
	resp := httpedge.NewResponse()
	resp.SetBody([]byte("pong"))
	return resp
}

func kvGetHandler(engine *kv.Engine) httpedge.HandlerFunc {
	return func(req *httpedge.Request) *httpedge.Response {
		key := req.Params["key"]
		value, err := engine.Get([]byte(key))
		resp := httpedge.NewResponse()
		if err != nil {
			resp.Status = http.StatusNotFound
			resp.SetBody([]byte("not found"))
			return resp
		}
		resp.SetBody(value)
		return resp
	}
}

func kvPutHandler(engine *kv.Engine) httpedge.HandlerFunc {
	return func(req *httpedge.Request) *httpedge.Response {
		key := req.Params["key"]
		resp := httpedge.NewResponse()
		if err := engine.Put([]byte(key), req.Body); err != nil {
			resp.Status = http.StatusInternalServerError
			resp.SetBody([]byte(err.Error()))
			return resp
		}
		resp.SetBody([]byte("ok"))
		return resp
	}
}

func kvDeleteHandler(engine *kv.Engine) httpedge.HandlerFunc {
	return func(req *httpedge.Request) *httpedge.Response {
		key := req.Params["key"]
		resp := httpedge.NewResponse()
		if err := engine.Delete([]byte(key)); err != nil {
			resp.Status = http.StatusNotFound
			resp.SetBody([]byte("not found"))
			return resp
		}
		resp.SetBody([]byte("ok"))
		return resp
	}
}
