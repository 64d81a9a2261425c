// Package routes declares HTTP route groups and registers them on a ServeMux.
package routes

import "net/http"

// Route binds a method and pattern to a handler.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
}

// Group represents a collection of routes under a common URL prefix.
// Middleware applies to every route in the group and its children,
// outermost first.
type Group struct {
	Prefix      string
	Description string
	Middleware  []func(http.Handler) http.Handler
	Routes      []Route
	Children    []Group
}

// Register mounts every group under basePath on mux.
func Register(mux *http.ServeMux, basePath string, groups ...Group) {
	for _, g := range groups {
		register(mux, basePath, nil, g)
	}
}

func register(mux *http.ServeMux, prefix string, inherited []func(http.Handler) http.Handler, g Group) {
	prefix += g.Prefix
	stack := append(append([]func(http.Handler) http.Handler{}, inherited...), g.Middleware...)

	for _, r := range g.Routes {
		var h http.Handler = r.Handler
		for i := len(stack) - 1; i >= 0; i-- {
			h = stack[i](h)
		}
		mux.Handle(r.Method+" "+prefix+r.Pattern, h)
	}

	for _, child := range g.Children {
		register(mux, prefix, stack, child)
	}
}
