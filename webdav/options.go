package webdav

import (
	"context"

	"github.com/lanterndav/lantern/httpcore"
)

// handleOptions answers the Class 1 capability set: no locking (Class
// 2), hence "DAV: 1" only.
func (s *Service) handleOptions(ctx context.Context, req *httpcore.Request) (*httpcore.Response, error) {
	resp := httpcore.NewResponse(200, httpcore.EmptyBody{})
	resp.Header.Set("Allow", "OPTIONS, GET, HEAD, PUT, DELETE, MKCOL, COPY, MOVE, PROPFIND")
	resp.Header.Set("DAV", "1")
	resp.Header.Set("MS-Author-Via", "DAV")
	return resp, nil
}
