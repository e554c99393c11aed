package webdav

import "github.com/lanterndav/lantern/httpcore"

var (
	errOutsideRoot = httpcore.NewStatusError(403, "path escapes webdav root")
	errDenied      = httpcore.NewStatusError(403, "path denied by policy")
	errNotFound    = httpcore.NewStatusError(404, "resource not found")
	errConflict    = httpcore.NewStatusError(409, "parent collection does not exist")
	errExists      = httpcore.NewStatusError(412, "destination exists")
)
