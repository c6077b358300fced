// Package web serves the browser front end: the root redirect and the static
// HTML, CSS and JavaScript assets.
package web

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/medflow/medstock/internal/auth/middleware"
	"github.com/medflow/medstock/pkg/errors"
	"github.com/medflow/medstock/pkg/httputil"
	"github.com/medflow/medstock/pkg/logger"
)

// Pages serves files from a static directory
type Pages struct {
	dir    string
	logger *logger.Logger
}

// NewPages creates a page server rooted at dir
func NewPages(dir string, log *logger.Logger) *Pages {
	if _, err := os.Stat(dir); err != nil {
		log.Warn().Err(err).Str("dir", dir).Msg("static directory not readable")
	}

	return &Pages{
		dir:    dir,
		logger: log,
	}
}

// RegisterRoutes mounts the root redirect and the static catch-all.
// Register it after every API route.
func (p *Pages) RegisterRoutes(r chi.Router) {
	r.Get("/", p.Root)
	r.Get("/*", p.Static)
	r.Head("/*", p.Static)
}

// Root sends visitors to the login page
func (p *Pages) Root(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, middleware.LoginPage, http.StatusFound)
}

// Static serves a file. Unknown API paths get a JSON 404 and directories are never listed.
func (p *Pages) Static(w http.ResponseWriter, r *http.Request) {
	if httputil.IsAPIRequest(r) {
		httputil.Error(w, errors.NotFound("route"))
		return
	}

	name := filepath.Join(p.dir, filepath.FromSlash(path.Clean("/"+r.URL.Path)))
	info, err := os.Stat(name)
	if err != nil || info.IsDir() || strings.HasPrefix(info.Name(), ".") {
		http.NotFound(w, r)
		return
	}

	f, err := os.Open(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	// index.html is served by name, never redirected to its directory
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}
