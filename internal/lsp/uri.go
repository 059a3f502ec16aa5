package lsp

import (
	"net/url"
	"path/filepath"
	"strings"
)

// URIToPath returns the local path named by a file URI. A bare path is
// accepted as is; any other scheme, or a URI that does not parse, gives "".
func URIToPath(uri string) string {
	u, err := url.Parse(uri)
	switch {
	case uri == "" || err != nil:
		return ""
	case u.Scheme == "":
		return absolute(uri)
	case u.Scheme != "file":
		return ""
	}
	p := u.Path
	// file:///C:/x carries the drive after the leading slash.
	if len(p) >= 3 && p[0] == '/' && p[2] == ':' {
		p = p[1:]
	}
	return absolute(filepath.FromSlash(p))
}

// PathToURI returns the file URI of path, made absolute first.
func PathToURI(path string) string {
	if path == "" {
		return ""
	}
	p := filepath.ToSlash(absolute(path))
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return (&url.URL{Scheme: "file", Path: p}).String()
}

func absolute(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
