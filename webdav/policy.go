// Package webdav implements RFC 4918 Class 1 WebDAV (no locking,
// properties beyond the live set, or ACLs) on top of httpcore.
package webdav

import (
	"path"
	"strings"
)

// Policy confines WebDAV operations to a root directory and filters out
// items by extension or hidden-file convention, per spec.md §3/§6.
type Policy struct {
	Root string

	// HiddenPrefixes names leading filename substrings treated as
	// hidden (e.g. "."), excluded from PROPFIND listings and rejected
	// outright by Resolve, for every operation, when any component of
	// the request path carries one.
	HiddenPrefixes []string

	// AllowedExtensions is a nullable, case-insensitive allow-set of
	// file extensions (without the leading dot). A nil set allows every
	// extension; a non-nil set denies any extension not present in it.
	// Names with no extension (directories, extensionless files) are
	// never filtered by this rule.
	AllowedExtensions map[string]bool
}

// NewPolicy builds a Policy rooted at root with a default hidden-dotfile
// rule and no extension restriction.
func NewPolicy(root string) *Policy {
	return &Policy{
		Root:           root,
		HiddenPrefixes: []string{"."},
	}
}

// Resolve maps a request path (already url-decoded, leading "/") to an
// absolute filesystem path confined under Root. It rejects paths that
// would escape Root via ".." and paths with any component denied by the
// hidden-prefix rule. It does not apply the extension filter: that depends on
// whether the target is a file or a directory, which this method
// cannot know for a path that may or may not already exist. Callers
// either already know the kind of resource they're about to create
// (see ResolveCreate) or learn it from a subsequent stat and then call
// Visible themselves.
func (p *Policy) Resolve(reqPath string) (string, error) {
	if rel := path.Clean(strings.TrimLeft(reqPath, "/")); rel == ".." || strings.HasPrefix(rel, "../") {
		return "", errOutsideRoot
	}
	clean := path.Clean("/" + reqPath)

	for _, seg := range strings.Split(clean, "/") {
		if seg != "" && p.isHidden(seg) {
			return "", errDenied
		}
	}

	full := p.Root + clean
	return full, nil
}

// ResolveCreate is Resolve plus the extension filter, applied
// immediately since the caller already knows the kind of resource it
// is about to bring into existence: isDir true for a collection (e.g.
// MKCOL), false for a file (e.g. PUT). Directories are never filtered
// by extension, per spec.md §4.6.
func (p *Policy) ResolveCreate(reqPath string, isDir bool) (string, error) {
	full, err := p.Resolve(reqPath)
	if err != nil {
		return "", err
	}
	if !isDir && !p.extensionAllowed(path.Base(full)) {
		return "", errDenied
	}
	return full, nil
}

func (p *Policy) isHidden(name string) bool {
	for _, prefix := range p.HiddenPrefixes {
		if prefix != "" && strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

func (p *Policy) extensionAllowed(name string) bool {
	if p.AllowedExtensions == nil {
		return true
	}
	ext := strings.TrimPrefix(path.Ext(name), ".")
	if ext == "" {
		return true
	}
	return p.AllowedExtensions[strings.ToLower(ext)]
}

// Visible reports whether a directory entry, or an already-resolved
// existing target, should be exposed by a listing or accepted as an
// operation's target. The extension filter applies only to files —
// directories are never filtered by extension, per spec.md §4.6.
func (p *Policy) Visible(name string, isDir bool) bool {
	if p.isHidden(name) {
		return false
	}
	if isDir {
		return true
	}
	return p.extensionAllowed(name)
}
