package webdav

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/lanterndav/lantern/httpcore"
)

// handlePut writes a file's content. The request body has already been
// spooled to a temp file by the PUT Match function (webdav.go); this
// handler's job is only to validate the destination and move the spool
// into place, per spec.md §6 — MKCOL-style "parent must exist" applies
// here too (409 if the parent collection is missing).
func (s *Service) handlePut(ctx context.Context, req *httpcore.Request) (*httpcore.Response, error) {
	full, err := s.Policy.ResolveCreate(s.relativePath(req), false)
	if err != nil {
		return nil, err
	}

	if info, statErr := os.Stat(filepath.Dir(full)); statErr != nil || !info.IsDir() {
		return nil, errConflict
	}
	if info, statErr := os.Stat(full); statErr == nil && info.IsDir() {
		return nil, httpcore.NewStatusError(409, "target is a collection")
	}

	sink, ok := req.Body.(*httpcore.TempFileSink)
	if !ok {
		return nil, httpcore.ErrInternal
	}

	existed := false
	if _, err := os.Stat(full); err == nil {
		existed = true
	}

	if err := commitSpool(sink.Path(), full); err != nil {
		return nil, httpcore.WrapStatusError(500, "failed to store file", err)
	}

	status := 201
	if existed {
		status = 204
	}
	return httpcore.NewResponse(status, httpcore.EmptyBody{}), nil
}

// commitSpool moves src to dst, falling back to a copy-then-remove when
// the spool directory and destination live on different filesystems
// (os.Rename fails with EXDEV in that case).
func commitSpool(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	os.Remove(src)
	return nil
}
