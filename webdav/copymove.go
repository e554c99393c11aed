package webdav

import (
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/lanterndav/lantern/httpcore"
)

// handleCopy duplicates a file or collection (recursively) to the
// Destination header's path.
func (s *Service) handleCopy(ctx context.Context, req *httpcore.Request) (*httpcore.Response, error) {
	return s.copyOrMove(req, false)
}

// handleMove relocates a file or collection to the Destination header's
// path.
func (s *Service) handleMove(ctx context.Context, req *httpcore.Request) (*httpcore.Response, error) {
	return s.copyOrMove(req, true)
}

func (s *Service) copyOrMove(req *httpcore.Request, move bool) (*httpcore.Response, error) {
	srcFull, err := s.Policy.Resolve(s.relativePath(req))
	if err != nil {
		return nil, err
	}
	srcInfo, err := os.Stat(srcFull)
	if err != nil {
		return nil, errNotFound
	}
	if !s.Policy.Visible(srcInfo.Name(), srcInfo.IsDir()) {
		return nil, errDenied
	}

	destPath, err := s.extractDestination(req)
	if err != nil {
		return nil, err
	}
	destFull, err := s.Policy.ResolveCreate(destPath, srcInfo.IsDir())
	if err != nil {
		return nil, err
	}

	if parent, err := os.Stat(filepath.Dir(destFull)); err != nil || !parent.IsDir() {
		return nil, errConflict
	}

	_, destErr := os.Stat(destFull)
	destExists := destErr == nil
	overwrite := !strings.EqualFold(req.Header.GetDefault("Overwrite", "T"), "F")
	if destExists && !overwrite {
		return nil, errExists
	}
	if destExists {
		os.RemoveAll(destFull)
	}

	if move {
		if err := os.Rename(srcFull, destFull); err != nil {
			if err := copyTree(srcFull, destFull); err != nil {
				return nil, httpcore.WrapStatusError(500, "failed to move resource", err)
			}
			os.RemoveAll(srcFull)
		}
	} else {
		if err := copyTree(srcFull, destFull); err != nil {
			return nil, httpcore.WrapStatusError(500, "failed to copy resource", err)
		}
	}

	status := 201
	if destExists {
		status = 204
	}
	return httpcore.NewResponse(status, httpcore.EmptyBody{}), nil
}

// extractDestination parses the Destination header into a path relative
// to this service's WebDAV root, accepting either an absolute URL or a
// bare path, per RFC 4918 §9.8.3.
func (s *Service) extractDestination(req *httpcore.Request) (string, error) {
	raw, ok := req.Header.Get("Destination")
	if !ok || raw == "" {
		return "", httpcore.NewStatusError(400, "missing Destination header")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", httpcore.NewStatusError(400, "invalid Destination header")
	}
	p := u.Path
	if !strings.HasPrefix(p, s.Prefix) {
		return "", httpcore.NewStatusError(502, "destination outside this service")
	}
	return p[len(s.Prefix):], nil
}

func copyTree(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return copyFile(src, dst, info)
	}

	if err := os.MkdirAll(dst, info.Mode()); err != nil {
		return err
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := copyTree(filepath.Join(src, e.Name()), filepath.Join(dst, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string, info os.FileInfo) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
