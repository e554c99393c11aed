package webdav

import (
	"context"

	"github.com/lanterndav/lantern/httpcore"
)

// handleHead reuses handleGet's logic — the connection engine already
// suppresses the body for HEAD responses, so the handlers need not
// duplicate each other.
func (s *Service) handleHead(ctx context.Context, req *httpcore.Request) (*httpcore.Response, error) {
	return s.handleGet(ctx, req)
}
