package webdav

import (
	"fmt"
	"os"
)

// etagFor derives a weak entity tag from a file's size and modification
// time — cheap to compute and stable across GETs between writes, which
// is all Class 1's conditional-request support needs.
func etagFor(info os.FileInfo) string {
	return fmt.Sprintf(`"%x-%x"`, info.Size(), info.ModTime().UnixNano())
}
