package webdav

import (
	"context"
	"os"
	"path/filepath"

	"github.com/lanterndav/lantern/httpcore"
)

// rejectingBodySink fails the exchange as soon as any byte arrives,
// used for methods that must not carry a body (MKCOL, per the teacher's
// ocdav handler, which rejects extended-MKCOL request bodies).
type rejectingBodySink struct{}

func (rejectingBodySink) Open() error { return nil }
func (rejectingBodySink) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	return 0, httpcore.NewStatusError(415, "request body not supported for this method")
}
func (rejectingBodySink) Close() error { return nil }

// handleMkcol creates a collection. A body present on the request is
// rejected by rejectingBodySink (assigned in Register) before this
// handler ever runs — this library doesn't support extended MKCOL
// (RFC 5689) request bodies.
func (s *Service) handleMkcol(ctx context.Context, req *httpcore.Request) (*httpcore.Response, error) {
	full, err := s.Policy.ResolveCreate(s.relativePath(req), true)
	if err != nil {
		return nil, err
	}

	parent := filepath.Dir(full)
	info, err := os.Stat(parent)
	if err != nil || !info.IsDir() {
		return nil, errConflict
	}

	// Matching createDirectory(withIntermediateDirectories: false)'s
	// opaque failure on an existing target: os.Mkdir on an existing path
	// surfaces as a generic 500, not a 409 or 405.
	if err := os.Mkdir(full, 0755); err != nil {
		return nil, httpcore.WrapStatusError(500, "failed to create collection", err)
	}

	return httpcore.NewResponse(201, httpcore.EmptyBody{}), nil
}
