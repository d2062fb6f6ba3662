package templates

import (
	"embed"
	"io/fs"
)

//go:embed layouts partials pages
var files embed.FS

// FS returns the page templates compiled into the binary.
func FS() fs.FS {
	return files
}
