package httpcore

import (
	"context"
	"strings"
	"sync"
)

// MatchFunc reports whether a Handler wants to claim req. Implementations
// may stash captures or other derived state into req.Attrs — the LIFO
// registry guarantees the matching MatchFunc runs immediately before the
// corresponding ProcessFunc, so attributes set here are visible there.
type MatchFunc func(req *Request) bool

// ProcessFunc produces the Response for a claimed request.
type ProcessFunc func(ctx context.Context, req *Request) (*Response, error)

// Handler pairs a predicate with the logic that serves matching
// requests, per spec.md §7.
type Handler struct {
	Name    string
	Match   MatchFunc
	Process ProcessFunc

	// PathMatch, when set, reports whether h recognizes req's path
	// regardless of method. It lets Resolve distinguish "no handler
	// recognizes this path at all" (501 Not Implemented) from "a
	// handler recognizes this path but rejected this method" (405
	// Method Not Allowed), per spec.md §4.3. Handlers built from
	// MethodPrefix should pair it with PathPrefix(prefix); handlers
	// with bespoke Match funcs that don't care about the distinction
	// may leave it nil.
	PathMatch MatchFunc
}

// Registry holds the ordered set of registered handlers and resolves a
// request to exactly one of them. Handlers are tried most-recently-
// registered first (LIFO), so a later registration can shadow an
// earlier, more general one — mirroring the override-by-reregistration
// behavior the WebDAV service layers on top of a catch-all default.
type Registry struct {
	mu       sync.RWMutex
	handlers []*Handler
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds h so it is tried before all previously-registered
// handlers.
func (r *Registry) Register(h *Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = append(r.handlers, nil)
	copy(r.handlers[1:], r.handlers)
	r.handlers[0] = h
}

// Resolve returns the first (most-recently-registered) handler whose
// MatchFunc claims req. pathRecognized reports whether some handler's
// PathMatch recognized req's path even though no handler claimed the
// request outright — the caller uses this to choose between 405
// (path known, method rejected) and 501 (path unknown) when h is nil.
func (r *Registry) Resolve(req *Request) (h *Handler, pathRecognized bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, cand := range r.handlers {
		if cand.Match(req) {
			return cand, true
		}
		if cand.PathMatch != nil && cand.PathMatch(req) {
			pathRecognized = true
		}
	}
	return nil, pathRecognized
}

// MethodPrefix returns a MatchFunc that claims requests whose method is
// in methods (case-sensitive, per RFC 7230) and whose path has the given
// prefix. An empty methods list matches any method.
func MethodPrefix(prefix string, methods ...string) MatchFunc {
	return func(req *Request) bool {
		if !strings.HasPrefix(req.Path, prefix) {
			return false
		}
		if len(methods) == 0 {
			return true
		}
		for _, m := range methods {
			if req.Method == m {
				return true
			}
		}
		return false
	}
}

// Any is a MatchFunc that claims every request — used for a final
// catch-all handler registered first (so it is tried last).
func Any(*Request) bool { return true }

// PathPrefix returns a MatchFunc that claims any request whose path has
// the given prefix, regardless of method. It's meant for a Handler's
// PathMatch field, paired with a method-checking Match built from
// MethodPrefix or a bespoke predicate.
func PathPrefix(prefix string) MatchFunc {
	return func(req *Request) bool {
		return strings.HasPrefix(req.Path, prefix)
	}
}
