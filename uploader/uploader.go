// Package uploader implements the browser-facing HTML upload front-end
// spec.md §6 specifies as an out-of-scope-but-contracted collaborator:
// a templated index page plus small JSON/form endpoints that reuse the
// WebDAV root's policy and path resolution.
package uploader

import (
	"github.com/rs/zerolog"

	"github.com/lanterndav/lantern/httpcore"
	"github.com/lanterndav/lantern/webdav"
)

// Service answers the uploader's HTTP surface against the same rooted
// filesystem a webdav.Service exposes.
type Service struct {
	Prefix        string
	Policy        *webdav.Policy
	UploadTempDir string
	log           zerolog.Logger
}

// New builds a Service. prefix is typically "" (mounted at the server
// root) or a path like "/ui".
func New(prefix string, policy *webdav.Policy, log zerolog.Logger) *Service {
	return &Service{Prefix: prefix, Policy: policy, log: log}
}

// Register wires the uploader's routes into reg.
func (s *Service) Register(reg *httpcore.Registry) {
	reg.Register(&httpcore.Handler{
		Name:      "uploader.index",
		Match:     exactMatch(s.Prefix+"/", "GET"),
		PathMatch: exactPath(s.Prefix + "/"),
		Process:   s.handleIndex,
	})
	reg.Register(&httpcore.Handler{
		Name:      "uploader.list",
		Match:     exactMatch(s.Prefix+"/list", "GET"),
		PathMatch: exactPath(s.Prefix + "/list"),
		Process:   s.handleList,
	})
	reg.Register(&httpcore.Handler{
		Name:      "uploader.download",
		Match:     exactMatch(s.Prefix+"/download", "GET"),
		PathMatch: exactPath(s.Prefix + "/download"),
		Process:   s.handleDownload,
	})
	reg.Register(&httpcore.Handler{
		Name: "uploader.upload",
		Match: func(req *httpcore.Request) bool {
			if !exactMatch(s.Prefix+"/upload", "POST")(req) {
				return false
			}
			boundary, _ := req.ContentType.Param("boundary")
			req.Body = &httpcore.MultipartSink{Boundary: boundary, MaxBytes: maxUploadBytes, TempDir: s.UploadTempDir}
			return true
		},
		PathMatch: exactPath(s.Prefix + "/upload"),
		Process:   s.handleUpload,
	})
	reg.Register(&httpcore.Handler{
		Name:      "uploader.delete",
		Match:     formMatch(s.Prefix + "/delete"),
		PathMatch: exactPath(s.Prefix + "/delete"),
		Process:   s.handleDelete,
	})
	reg.Register(&httpcore.Handler{
		Name:      "uploader.move",
		Match:     formMatch(s.Prefix + "/move"),
		PathMatch: exactPath(s.Prefix + "/move"),
		Process:   s.handleMove,
	})
	reg.Register(&httpcore.Handler{
		Name:      "uploader.create",
		Match:     formMatch(s.Prefix + "/create"),
		PathMatch: exactPath(s.Prefix + "/create"),
		Process:   s.handleCreate,
	})
}

// maxUploadBytes bounds a single multipart upload request.
const maxUploadBytes = 256 * 1024 * 1024

func exactMatch(p, method string) httpcore.MatchFunc {
	return func(req *httpcore.Request) bool {
		return req.Method == method && req.Path == p
	}
}

// exactPath is the method-agnostic counterpart of exactMatch, meant for
// a Handler's PathMatch field.
func exactPath(p string) httpcore.MatchFunc {
	return func(req *httpcore.Request) bool {
		return req.Path == p
	}
}

// formMatch claims a POST to p and assigns a URLEncodedSink so the
// handler can read decoded form fields.
func formMatch(p string) httpcore.MatchFunc {
	return func(req *httpcore.Request) bool {
		if req.Method != "POST" || req.Path != p {
			return false
		}
		req.Body = &httpcore.URLEncodedSink{MaxBytes: 64 * 1024}
		return true
	}
}
