package server

import (
	"io/fs"
	"net/http"
	"strings"

	"github.com/bikinibottom/spongeplay/internal/httputil"
)

// spaFileServer serves the front-end bundle. Unknown paths fall back to
// index.html so client-side routes resolve; unknown API paths stay 404.
type spaFileServer struct {
	files http.Handler
	fsys  fs.FS
}

func newSPAFileServer(fsys fs.FS) *spaFileServer {
	return &spaFileServer{files: http.FileServer(http.FS(fsys)), fsys: fsys}
}

func (s *spaFileServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		httputil.WriteError(w, http.StatusNotFound, "not found")
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/")
	if name == "" {
		name = "index.html"
	}
	if _, err := fs.Stat(s.fsys, name); err != nil {
		r.URL.Path = "/"
		name = "index.html"
	}

	if strings.HasPrefix(name, "assets/") {
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	} else {
		w.Header().Set("Cache-Control", "no-cache")
	}
	s.files.ServeHTTP(w, r)
}
