// Package middleware provides the HTTP middleware applied to mounted modules.
package middleware

import "net/http"

// Func wraps a handler with cross-cutting behavior.
type Func func(http.Handler) http.Handler

// System is an ordered middleware stack. The first Func added is the
// outermost wrapper.
type System interface {
	Use(mws ...Func)
	Apply(handler http.Handler) http.Handler
}

type stack []Func

// New creates a System holding mws in order.
func New(mws ...Func) System {
	s := make(stack, 0, len(mws))
	return s.with(mws)
}

func (s *stack) with(mws []Func) *stack {
	*s = append(*s, mws...)
	return s
}

func (s *stack) Use(mws ...Func) {
	s.with(mws)
}

func (s *stack) Apply(handler http.Handler) http.Handler {
	for i := len(*s) - 1; i >= 0; i-- {
		handler = (*s)[i](handler)
	}
	return handler
}
