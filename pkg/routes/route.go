package routes

import "net/http"

// Route binds a method and pattern to a handler. MaxBody, when positive,
// caps the request body in bytes; reads beyond it fail.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
	MaxBody int64
}

func (r Route) handler() http.Handler {
	if r.MaxBody <= 0 {
		return r.Handler
	}
	return http.MaxBytesHandler(r.Handler, r.MaxBody)
}
