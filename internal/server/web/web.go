// Package web holds the HTML pages and static assets compiled into the server.
package web

import (
	"embed"
	"fmt"
	"io/fs"
)

//go:embed pages/*.html
var pages embed.FS

//go:embed static/*.css static/*.js
var static embed.FS

// Page returns the contents of a page under pages/, e.g. "login.html".
func Page(name string) ([]byte, error) {
	data, err := pages.ReadFile("pages/" + name)
	if err != nil {
		return nil, fmt.Errorf("page %s: %w", name, err)
	}
	return data, nil
}

// Static returns the asset tree served under /static/.
func Static() fs.FS {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		// fs.Sub only fails on an invalid path literal.
		panic(err)
	}
	return sub
}
