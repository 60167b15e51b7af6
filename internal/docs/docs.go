package docs

import (
	"bytes"
	_ "embed"
	"html/template"
	"net/http"
	"time"

	"github.com/bikinibottom/spongeplay/internal/httputil"
)

//go:embed openapi.yaml
var specYAML []byte

var loadedAt = time.Now()

func HandleSpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	http.ServeContent(w, r, "openapi.yaml", loadedAt, bytes.NewReader(specYAML))
}

// HandleDocs serves the API reference page. The reference bundle comes from
// the CDN; the only inline script carries the request nonce.
func HandleDocs(w http.ResponseWriter, r *http.Request) {
	nonce := httputil.NonceFromContext(r.Context())
	if nonce == "" {
		nonce = httputil.GenerateNonce()
	}
	w.Header().Set("Content-Security-Policy",
		"default-src 'self'; "+
			"script-src 'self' https://cdn.jsdelivr.net 'nonce-"+nonce+"'; "+
			"style-src 'self' https://cdn.jsdelivr.net 'unsafe-inline'; "+
			"font-src 'self' https://cdn.jsdelivr.net data:; "+
			"img-src 'self' data:; connect-src 'self'; frame-ancestors 'self';")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = docsTemplate.Execute(w, struct{ Nonce string }{nonce})
}

var docsTemplate = template.Must(template.New("docs").Parse(`<!DOCTYPE html>
<html><head>
  <title>Spongeplay API Reference</title>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
</head><body>
  <script id="api-reference" nonce="{{.Nonce}}" data-url="/api/docs/openapi.yaml"></script>
  <script src="https://cdn.jsdelivr.net/npm/@scalar/api-reference"></script>
</body></html>`))
