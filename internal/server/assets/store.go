// Package assets serves the static files of the admin dashboard, either
// from a local directory or from an S3 bucket through presigned URLs.
package assets

import (
	"context"
	"net/http"
	"path"
	"strings"

	"github.com/dmitrijs2005/skeleton/internal/filex"
	"github.com/dmitrijs2005/skeleton/internal/server/config"
)

const indexFile = "index.html"

// Store serves the dashboard asset called name.
type Store interface {
	ServeAsset(w http.ResponseWriter, r *http.Request, name string)
}

// New returns an S3Store when a bucket is configured and a LocalStore
// over the dashboard directory, created if missing, otherwise.
func New(ctx context.Context, cfg *config.Config) (Store, error) {
	if cfg.S3Bucket != "" {
		return NewS3Store(ctx, cfg)
	}
	root, err := filex.EnsureDir(cfg.DashboardPath)
	if err != nil {
		return nil, err
	}
	return NewLocalStore(root), nil
}

// NewPublic returns a LocalStore over the public files directory, created
// if missing.
func NewPublic(cfg *config.Config) (Store, error) {
	root, err := filex.EnsureDir(cfg.PublicPath)
	if err != nil {
		return nil, err
	}
	return NewLocalStore(root), nil
}

// cleanName maps a request path onto an object name inside the store.
// Traversal segments are resolved against the root and the empty name
// becomes the index file.
func cleanName(name string) string {
	name = strings.TrimPrefix(path.Clean("/"+name), "/")
	if name == "" {
		return indexFile
	}
	return name
}

// LocalStore serves assets from a directory.
type LocalStore struct {
	files http.Handler
}

func NewLocalStore(root string) *LocalStore {
	return &LocalStore{files: http.FileServer(http.Dir(root))}
}

func (s *LocalStore) ServeAsset(w http.ResponseWriter, r *http.Request, name string) {
	name = cleanName(name)
	if name == indexFile {
		// FileServer redirects explicit index.html requests to the directory
		name = ""
	}

	r2 := r.Clone(r.Context())
	r2.URL.Path = "/" + name
	r2.URL.RawPath = ""
	s.files.ServeHTTP(w, r2)
}
