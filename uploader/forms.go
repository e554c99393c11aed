package uploader

import (
	"context"
	"os"
	"path/filepath"

	"github.com/lanterndav/lantern/httpcore"
)

func (s *Service) formValues(req *httpcore.Request) (map[string][]string, error) {
	sink, ok := req.Body.(*httpcore.URLEncodedSink)
	if !ok {
		return nil, httpcore.ErrInternal
	}
	return map[string][]string(sink.Values()), nil
}

// handleDelete removes the path named by the "path" form field.
func (s *Service) handleDelete(ctx context.Context, req *httpcore.Request) (*httpcore.Response, error) {
	vals, err := s.formValues(req)
	if err != nil {
		return nil, err
	}
	full, err := s.Policy.Resolve(first(vals["path"]))
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(full)
	if err != nil {
		return nil, httpcore.NewStatusError(404, "path not found")
	}
	if !s.Policy.Visible(info.Name(), info.IsDir()) {
		return nil, httpcore.NewStatusError(403, "path denied by policy")
	}
	if err := os.RemoveAll(full); err != nil {
		return nil, httpcore.WrapStatusError(500, "failed to delete path", err)
	}
	return httpcore.NewResponse(204, httpcore.EmptyBody{}), nil
}

// handleMove relocates oldPath to newPath.
func (s *Service) handleMove(ctx context.Context, req *httpcore.Request) (*httpcore.Response, error) {
	vals, err := s.formValues(req)
	if err != nil {
		return nil, err
	}
	oldFull, err := s.Policy.Resolve(first(vals["oldPath"]))
	if err != nil {
		return nil, err
	}
	oldInfo, err := os.Stat(oldFull)
	if err != nil {
		return nil, httpcore.NewStatusError(404, "path not found")
	}
	if !s.Policy.Visible(oldInfo.Name(), oldInfo.IsDir()) {
		return nil, httpcore.NewStatusError(403, "path denied by policy")
	}
	newFull, err := s.Policy.ResolveCreate(first(vals["newPath"]), oldInfo.IsDir())
	if err != nil {
		return nil, err
	}
	if parent, err := os.Stat(filepath.Dir(newFull)); err != nil || !parent.IsDir() {
		return nil, httpcore.NewStatusError(409, "destination directory does not exist")
	}
	if err := os.Rename(oldFull, newFull); err != nil {
		return nil, httpcore.WrapStatusError(500, "failed to move path", err)
	}
	return httpcore.NewResponse(204, httpcore.EmptyBody{}), nil
}

// handleCreate makes a new directory at the "path" form field.
func (s *Service) handleCreate(ctx context.Context, req *httpcore.Request) (*httpcore.Response, error) {
	vals, err := s.formValues(req)
	if err != nil {
		return nil, err
	}
	full, err := s.Policy.ResolveCreate(first(vals["path"]), true)
	if err != nil {
		return nil, err
	}
	if parent, err := os.Stat(filepath.Dir(full)); err != nil || !parent.IsDir() {
		return nil, httpcore.NewStatusError(409, "parent directory does not exist")
	}
	if err := os.Mkdir(full, 0755); err != nil {
		return nil, httpcore.WrapStatusError(500, "failed to create directory", err)
	}
	return httpcore.NewResponse(201, httpcore.EmptyBody{}), nil
}

func first(vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}
