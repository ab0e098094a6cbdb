// Package client provides the embedded browser assets for the signup wizard.
package client

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed src/*.js src/*.css
var assets embed.FS

// Assets returns the embedded filesystem containing the client files.
func Assets() fs.FS {
	fsys, err := fs.Sub(assets, "src")
	if err != nil {
		panic(err)
	}
	return fsys
}

// Handler serves the embedded assets. Mount it with the prefix stripped.
func Handler() http.Handler {
	return http.FileServer(http.FS(Assets()))
}

// GetFile returns the contents of an embedded file.
func GetFile(name string) ([]byte, error) {
	return assets.ReadFile("src/" + name)
}
