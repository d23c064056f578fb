// Package routes declares HTTP routes as nested groups and registers them
// on a ServeMux using method-qualified patterns.
package routes

import "net/http"

// Group is a set of routes sharing a path prefix. Children inherit the
// accumulated prefix.
type Group struct {
	Prefix   string
	Routes   []Route
	Children []Group
}

// Register adds every route in groups to mux as "METHOD prefix+pattern".
func Register(mux *http.ServeMux, groups ...Group) {
	for _, g := range groups {
		g.register(mux, "")
	}
}

// Patterns lists the registered pattern of every route in groups, in
// registration order.
func Patterns(groups ...Group) []string {
	var out []string
	for _, g := range groups {
		g.walk("", func(pattern string, _ Route) {
			out = append(out, pattern)
		})
	}
	return out
}

func (g Group) register(mux *http.ServeMux, parent string) {
	g.walk(parent, func(pattern string, r Route) {
		mux.Handle(pattern, r.handler())
	})
}

func (g Group) walk(parent string, fn func(pattern string, r Route)) {
	prefix := parent + g.Prefix
	for _, r := range g.Routes {
		fn(r.Method+" "+prefix+r.Pattern, r)
	}
	for _, child := range g.Children {
		child.walk(prefix, fn)
	}
}
