package uploader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lanterndav/lantern/httpcore"
)

func (s *Service) handleDownload(ctx context.Context, req *httpcore.Request) (*httpcore.Response, error) {
	rel := req.Query.Get("path")
	full, err := s.Policy.Resolve(rel)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		return nil, httpcore.NewStatusError(404, "file not found")
	}
	if !s.Policy.Visible(info.Name(), false) {
		return nil, httpcore.NewStatusError(403, "file type not permitted")
	}

	resp := httpcore.NewResponse(200, httpcore.FileRangeBody{Path: full, Start: 0, Length: info.Size()})
	resp.Header.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filepath.Base(full)))
	resp.Header.Set("Content-Type", "application/octet-stream")
	return resp, nil
}
