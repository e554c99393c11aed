package webdav

import (
	"context"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/lanterndav/lantern/httpcore"
)

const isoDateLayout = "2006-01-02T15:04:05Z"

// handlePropfind answers PROPFIND, per spec.md §4.6: Depth required (0,
// 1, or infinity), 400 if missing; target missing is 404; success is a
// 207 Multi-Status DAV: response enumerating the target (Depth:0) or the
// target plus immediate non-filtered children (Depth:1).
func (s *Service) handlePropfind(ctx context.Context, req *httpcore.Request) (*httpcore.Response, error) {
	depthHeader, ok := req.Header.Get("Depth")
	if !ok {
		return nil, httpcore.NewStatusError(400, "missing Depth header")
	}
	depth := strings.TrimSpace(depthHeader)
	if depth != "0" && depth != "1" && depth != "infinity" {
		return nil, httpcore.NewStatusError(400, "invalid Depth header")
	}

	relPath := s.relativePath(req)
	full, err := s.Policy.Resolve(relPath)
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

	ms := newMultistatus()
	href := s.hrefFor(relPath, info.IsDir())
	ms.Responses = append(ms.Responses, s.responseFor(href, info))

	if info.IsDir() && depth != "0" {
		if err := s.appendChildren(ms, relPath, full, depth == "infinity"); err != nil {
			return nil, httpcore.WrapStatusError(500, "failed to list collection", err)
		}
	}

	body, err := ms.Marshal()
	if err != nil {
		return nil, httpcore.WrapStatusError(500, "failed to render propfind response", err)
	}

	resp := httpcore.NewResponse(207, httpcore.BytesBody{Data: body})
	resp.Header.Set("Content-Type", "application/xml; charset=utf-8")
	return resp, nil
}

func (s *Service) appendChildren(ms *multistatusXML, relPath, full string, recurse bool) error {
	entries, err := os.ReadDir(full)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !s.Policy.Visible(e.Name(), e.IsDir()) {
			continue
		}
		childRel := path.Join(relPath, e.Name())
		childFull := full + string(os.PathSeparator) + e.Name()

		info, err := e.Info()
		if err != nil {
			continue
		}
		href := s.hrefFor(childRel, info.IsDir())
		ms.Responses = append(ms.Responses, s.responseFor(href, info))

		if recurse && info.IsDir() {
			s.appendChildren(ms, childRel, childFull, true)
		}
	}
	return nil
}

// hrefFor builds the href for a path relative to the WebDAV root,
// trailing-slashed for collections per RFC 4918 convention.
func (s *Service) hrefFor(relPath string, isDir bool) string {
	href := s.Prefix + path.Clean("/"+relPath)
	if isDir && !strings.HasSuffix(href, "/") {
		href += "/"
	}
	return href
}

func (s *Service) responseFor(href string, info os.FileInfo) responseXML {
	prop := propXML{
		DisplayName:  info.Name(),
		LastModified: httpcore.FormatDate(info.ModTime()),
		CreationDate: info.ModTime().UTC().Format(isoDateLayout),
		ETag:         etagFor(info),
	}

	if info.IsDir() {
		prop.ResourceType = &resourceTypeXML{Collection: &struct{}{}}
	} else {
		length := info.Size()
		prop.ContentLength = &length
		prop.ContentType = contentTypeFor(info.Name())
	}

	return responseXML{
		Href: href,
		Propstat: propstatXML{
			Prop:   prop,
			Status: "HTTP/1.1 " + strconv.Itoa(200) + " " + httpcore.ReasonPhrase(200),
		},
	}
}
