package webdav

import (
	"github.com/rs/zerolog"

	"github.com/lanterndav/lantern/httpcore"
)

// Service is the WebDAV Class 1 service: a Policy-confined filesystem
// exposed under a path prefix, registered onto an httpcore.Registry.
type Service struct {
	Prefix string
	Policy *Policy
	// UploadTempDir is where PUT spools request bodies before they are
	// committed to their final path. Empty means os.TempDir().
	UploadTempDir string
	log           zerolog.Logger
}

// New builds a Service rooted at policy.Root and serving under prefix
// (e.g. "/dav"). Prefix must not end in "/".
func New(prefix string, policy *Policy, log zerolog.Logger) *Service {
	return &Service{Prefix: prefix, Policy: policy, log: log}
}

// Register wires the service's method handlers into reg, most specific
// method-dispatch last so it is tried first (LIFO registry semantics).
func (s *Service) Register(reg *httpcore.Registry) {
	methods := []struct {
		name    string
		process httpcore.ProcessFunc
	}{
		{"OPTIONS", s.handleOptions},
		{"GET", s.handleGet},
		{"HEAD", s.handleHead},
		{"DELETE", s.handleDelete},
		{"COPY", s.handleCopy},
		{"MOVE", s.handleMove},
		{"PROPFIND", s.handlePropfind},
	}

	pathMatch := httpcore.PathPrefix(s.Prefix)
	for _, m := range methods {
		method := m.name
		reg.Register(&httpcore.Handler{
			Name:      "webdav." + method,
			Match:     httpcore.MethodPrefix(s.Prefix, method),
			PathMatch: pathMatch,
			Process:   m.process,
		})
	}

	// PUT and MKCOL each get their own Match so they can assign the
	// request's body sink before ReadBody runs, per spec.md §7's
	// Match-before-ReadBody ordering.
	putMatch := httpcore.MethodPrefix(s.Prefix, "PUT")
	reg.Register(&httpcore.Handler{
		Name: "webdav.PUT",
		Match: func(req *httpcore.Request) bool {
			if !putMatch(req) {
				return false
			}
			req.Body = &httpcore.TempFileSink{Dir: s.UploadTempDir}
			return true
		},
		PathMatch: pathMatch,
		Process:   s.handlePut,
	})

	mkcolMatch := httpcore.MethodPrefix(s.Prefix, "MKCOL")
	reg.Register(&httpcore.Handler{
		Name: "webdav.MKCOL",
		Match: func(req *httpcore.Request) bool {
			if !mkcolMatch(req) {
				return false
			}
			req.Body = rejectingBodySink{}
			return true
		},
		PathMatch: pathMatch,
		Process:   s.handleMkcol,
	})
}

// relativePath strips the service prefix from a request's path, leaving
// the path relative to the WebDAV root.
func (s *Service) relativePath(req *httpcore.Request) string {
	rel := req.Path[len(s.Prefix):]
	if rel == "" {
		rel = "/"
	}
	return rel
}
