package webdav

import (
	"context"
	"os"

	"github.com/lanterndav/lantern/httpcore"
)

// handleDelete removes a file or, recursively, a collection.
func (s *Service) handleDelete(ctx context.Context, req *httpcore.Request) (*httpcore.Response, error) {
	full, err := s.Policy.Resolve(s.relativePath(req))
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(full)
	if err != nil {
		return nil, errNotFound
	}
	if !s.Policy.Visible(info.Name(), info.IsDir()) {
		return nil, errDenied
	}

	if err := os.RemoveAll(full); err != nil {
		return nil, httpcore.WrapStatusError(500, "failed to delete resource", err)
	}

	return httpcore.NewResponse(204, httpcore.EmptyBody{}), nil
}
