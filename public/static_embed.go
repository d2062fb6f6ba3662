package public

import (
	"embed"
	"io/fs"
)

//go:embed assets/*
var static embed.FS

// AssetsFS returns the stylesheet and images served under /assets/.
func AssetsFS() (fs.FS, error) {
	return fs.Sub(static, "assets")
}
