package webdav

import (
	"mime"
	"path"
)

// contentTypeFor guesses a response Content-Type from a file's
// extension. No corpus example ever pulls in a dedicated mime-sniffing
// library for this — the teacher's own pkg/mime.go wraps an
// out-of-pack, unverified module — so this resolves to the standard
// library's extension table, the one deliberate stdlib fallback this
// package takes (see DESIGN.md).
func contentTypeFor(name string) string {
	ext := path.Ext(name)
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
