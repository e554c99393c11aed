package uploader

import (
	"context"
	"encoding/json"
	"os"
	"path"

	"github.com/lanterndav/lantern/httpcore"
)

// listEntry is one row of the GET /list JSON array, per spec.md §6:
// {name, path, size?} — size omitted for directories.
type listEntry struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Size *int64 `json:"size,omitempty"`
}

func (s *Service) handleList(ctx context.Context, req *httpcore.Request) (*httpcore.Response, error) {
	rel := req.Query.Get("path")
	full, err := s.Policy.Resolve(rel)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(full)
	if err != nil {
		return nil, httpcore.NewStatusError(404, "path not found")
	}

	out := make([]listEntry, 0, len(entries))
	for _, e := range entries {
		if !s.Policy.Visible(e.Name(), e.IsDir()) {
			continue
		}
		entry := listEntry{Name: e.Name(), Path: path.Join(rel, e.Name())}
		if !e.IsDir() {
			if info, err := e.Info(); err == nil {
				size := info.Size()
				entry.Size = &size
			}
		}
		out = append(out, entry)
	}

	body, err := json.Marshal(out)
	if err != nil {
		return nil, httpcore.WrapStatusError(500, "failed to render listing", err)
	}
	resp := httpcore.NewResponse(200, httpcore.BytesBody{Data: body})
	resp.Header.Set("Content-Type", "application/json; charset=utf-8")
	return resp, nil
}
