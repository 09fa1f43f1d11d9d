// Package docs serves the OpenAPI document of the SlideCue HTTP API and a
// reference page that renders it.
package docs

import (
	_ "embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/slidecue/slidecue/internal/httputil"
)

const (
	SpecPath     = "/api/docs/openapi.yaml"
	referenceCDN = "https://cdn.jsdelivr.net"
)

//go:embed openapi.yaml
var specYAML []byte

var pageTemplate = template.Must(template.New("docs").Parse(`<!DOCTYPE html>
<html lang="en"><head>
  <title>SlideCue API Reference</title>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
</head><body>
  <script id="api-reference" data-url="{{.SpecURL}}"></script>
  <script nonce="{{.Nonce}}" src="` + referenceCDN + `/npm/@scalar/api-reference"></script>
</body></html>`))

func HandleSpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.Header().Set("Cache-Control", "public, max-age=300")
	_, _ = w.Write(specYAML)
}

// HandleDocs replaces the viewer CSP: the reference UI loads from the CDN
// and injects its own styles.
func HandleDocs(w http.ResponseWriter, r *http.Request) {
	nonce := httputil.NonceFromContext(r.Context())
	if nonce == "" {
		nonce = httputil.GenerateNonce()
	}

	w.Header().Set("Content-Security-Policy",
		"default-src 'self'; "+
			"script-src 'self' "+referenceCDN+" "+httputil.NonceSource(nonce)+"; "+
			"style-src 'self' "+referenceCDN+" 'unsafe-inline'; "+
			"font-src 'self' "+referenceCDN+" data:; "+
			"img-src 'self' data:; connect-src 'self'; frame-ancestors 'self';")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	data := struct{ SpecURL, Nonce string }{SpecPath, nonce}
	if err := pageTemplate.Execute(w, data); err != nil {
		slog.Error("docs: render failed", "error", err)
	}
}
