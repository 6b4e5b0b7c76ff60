// Package router models the client-side navigation surface: a route table
// with auth metadata, path-pattern matching, and a synchronous guard that
// forces unauthenticated sessions to the login view.
package router

import (
	"fmt"
	"strings"
	"sync"

	"driftline/internal/models"
	"driftline/internal/remote"
)

// LoginPath is the only view reachable without a session.
const LoginPath = "/login"

// Route is one entry of the navigation surface. Segments starting with ':'
// capture path parameters.
type Route struct {
	Path         string
	Name         string
	RequiresAuth bool
}

// Params are the captured path parameters of a match.
type Params map[string]string

// Match is a resolved navigation target.
type Match struct {
	Route  *Route
	Path   string
	Params Params
}

// IdentityFunc reports the current session identity, or nil.
type IdentityFunc func() *remote.Identity

// Router resolves paths against the route table and tracks the current view.
type Router struct {
	identity IdentityFunc

	mu      sync.RWMutex
	routes  []Route
	current Match
}

// New builds the application route table. identity supplies the session
// state the guard consults on every navigation.
func New(identity IdentityFunc) *Router {
	return &Router{
		identity: identity,
		routes: []Route{
			{Path: "/", Name: "dashboard", RequiresAuth: true},
			{Path: "/login", Name: "login"},
			{Path: "/accounts/settings", Name: "settings", RequiresAuth: true},
			{Path: "/:name/", Name: "my_posts", RequiresAuth: true},
			{Path: "/profile/:name", Name: "profile", RequiresAuth: true},
		},
	}
}

// Resolve matches a path against the route table in declaration order.
// It returns a NOT_FOUND error for paths outside the navigation surface.
func (r *Router) Resolve(path string) (*Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	segments := splitPath(path)
	for i := range r.routes {
		route := &r.routes[i]
		params, ok := matchPattern(splitPath(route.Path), segments)
		if !ok {
			continue
		}
		return &Match{Route: route, Path: path, Params: params}, nil
	}
	return nil, models.NewNotFoundError("Route", path)
}

// Push navigates to path. The guard runs first: when the resolved route
// requires authentication and no session identity is present, navigation is
// redirected to the login view instead. Returns the match actually applied.
func (r *Router) Push(path string) (*Match, error) {
	match, err := r.Resolve(path)
	if err != nil {
		return nil, err
	}

	if match.Route.RequiresAuth && r.identity() == nil {
		match, err = r.Resolve(LoginPath)
		if err != nil {
			return nil, err
		}
	}

	r.mu.Lock()
	r.current = *match
	r.mu.Unlock()
	return match, nil
}

// PushNamed navigates to the named route with the given parameters.
func (r *Router) PushNamed(name string, params Params) (*Match, error) {
	r.mu.RLock()
	var route *Route
	for i := range r.routes {
		if r.routes[i].Name == name {
			route = &r.routes[i]
			break
		}
	}
	r.mu.RUnlock()

	if route == nil {
		return nil, models.NewNotFoundError("Route", name)
	}

	path, err := buildPath(route.Path, params)
	if err != nil {
		return nil, err
	}
	return r.Push(path)
}

// Current returns the current match. The zero Match means nothing has been
// navigated to yet.
func (r *Router) Current() Match {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func matchPattern(pattern, segments []string) (Params, bool) {
	if len(pattern) != len(segments) {
		return nil, false
	}
	params := Params{}
	for i, p := range pattern {
		if strings.HasPrefix(p, ":") {
			params[p[1:]] = segments[i]
			continue
		}
		if p != segments[i] {
			return nil, false
		}
	}
	return params, true
}

func buildPath(pattern string, params Params) (string, error) {
	segments := splitPath(pattern)
	out := make([]string, 0, len(segments))
	for _, seg := range segments {
		if strings.HasPrefix(seg, ":") {
			val, ok := params[seg[1:]]
			if ok && val != "" {
				out = append(out, val)
				continue
			}
			return "", models.NewValidationError(fmt.Sprintf("missing route parameter %q", seg[1:]))
		}
		out = append(out, seg)
	}
	return "/" + strings.Join(out, "/"), nil
}
