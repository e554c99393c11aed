package uploader

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/lanterndav/lantern/httpcore"
)

// handleUpload accepts one or more files into the directory named by the
// "path" form field, auto-renaming "name.ext" to "name (N).ext" on
// collision and rejecting policy-filtered extensions with 403, per
// spec.md §6.
func (s *Service) handleUpload(ctx context.Context, req *httpcore.Request) (*httpcore.Response, error) {
	sink, ok := req.Body.(*httpcore.MultipartSink)
	if !ok {
		return nil, httpcore.ErrInternal
	}

	pathPart, _ := sink.Part("path")
	destDir, err := s.Policy.Resolve(string(pathPart.Data))
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(destDir); err != nil || !info.IsDir() {
		return nil, httpcore.NewStatusError(409, "destination directory does not exist")
	}

	var saved []string
	for _, part := range sink.Parts() {
		if part.Name != "files[]" || part.FileName == "" {
			continue
		}
		if !s.Policy.Visible(part.FileName, false) {
			return nil, httpcore.NewStatusError(403, "file type not permitted")
		}

		name := uniqueName(destDir, part.FileName)
		target := filepath.Join(destDir, name)
		if err := commitSpool(part.FilePath, target); err != nil {
			return nil, httpcore.WrapStatusError(500, "failed to save uploaded file", err)
		}
		saved = append(saved, name)
	}

	resp := httpcore.NewResponse(201, httpcore.BytesBody{Data: []byte(strings.Join(saved, "\n"))})
	resp.Header.Set("Content-Type", "text/plain; charset=utf-8")
	return resp, nil
}

// commitSpool moves src to dst, falling back to a copy-then-remove when
// the spool directory and destination live on different filesystems
// (os.Rename fails with EXDEV in that case) — mirrors
// webdav.commitSpool for the uploader's own spooled multipart parts.
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
	return os.Remove(src)
}

// uniqueName returns name if it doesn't already exist in dir, otherwise
// "base (N).ext" for the smallest N that doesn't collide.
func uniqueName(dir, name string) string {
	if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
		return name
	}
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s (%d)%s", base, n, ext)
		if _, err := os.Stat(filepath.Join(dir, candidate)); err != nil {
			return candidate
		}
	}
}
