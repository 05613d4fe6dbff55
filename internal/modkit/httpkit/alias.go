// Package httpkit provides handler and routing helpers that alias the platform
// http package, so modules do not import internal/platform/net/http directly
package httpkit

import (
	"net/http"

	phttp "pixgeo/internal/platform/net/http"
	"pixgeo/internal/platform/net/http/bind"
)

type (
	// Envelope is the transport envelope type
	Envelope = phttp.Envelope

	// Page is the pagination metadata type
	Page = phttp.Page

	// Response is the HTTP response type
	Response = phttp.Response

	// Handler is the platform handler type
	Handler = phttp.Handler

	// Router is a re-export of the platform router seam
	Router = phttp.Router
)

// OK returns a 200 response
func OK(data any) Response { return phttp.OK(data) }

// Error returns a response that maps an error to status and envelope
func Error(err error) Response { return phttp.Error(err) }

// List returns a 200 response with items and pagination
func List(items any, total, limit, offset int) Response {
	return phttp.List(items, total, limit, offset)
}

// Get mounts a body-less handler under GET
func Get(r Router, path string, h func(*http.Request) (any, error)) {
	phttp.GetJSON(r, path, h)
}

// GetBound mounts a GET handler whose input T is bound from path and query
// parameters and validated before h runs
func GetBound[T any](r Router, path string, h func(*http.Request, T) (any, error)) {
	r.Get(path, phttp.Call(func(req *http.Request) (any, error) {
		in, err := bind.Request[T](req)
		if err != nil {
			return nil, err
		}
		return h(req, in)
	}))
}
