// Package webfs provides the embedded web UI.
package webfs

import (
	"embed"
	"io/fs"
)

//go:embed all:static
var content embed.FS

// FS returns the static files rooted at the UI directory.
func FS() fs.FS {
	sub, err := fs.Sub(content, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
