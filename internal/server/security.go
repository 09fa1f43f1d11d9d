package server

import (
	"net/http"
	"strings"

	"github.com/slidecue/slidecue/internal/httputil"
)

type SecurityConfig struct {
	BaseURL         string
	StorageEndpoint string
	// AllowedFrameAncestors is a space-separated list of origins allowed to
	// embed the viewer, e.g. an LMS. Setting it drops X-Frame-Options.
	AllowedFrameAncestors string
}

// contentSecurityPolicy builds the CSP for one response. Slide images and
// their presigned URLs come from the storage endpoint.
func contentSecurityPolicy(cfg SecurityConfig, nonce string) string {
	storage := ""
	if cfg.StorageEndpoint != "" {
		storage = " " + cfg.StorageEndpoint
	}
	frameAncestors := "'self'"
	if extra := strings.TrimSpace(cfg.AllowedFrameAncestors); extra != "" {
		frameAncestors += " " + extra
	}
	inline := httputil.NonceSource(nonce)

	directives := []string{
		"default-src 'self'",
		"img-src 'self' data:" + storage,
		"script-src 'self' " + inline,
		"style-src 'self' " + inline,
		"connect-src 'self'" + storage,
		"frame-ancestors " + frameAncestors,
	}
	return strings.Join(directives, "; ") + ";"
}

func securityHeaders(cfg SecurityConfig) func(http.Handler) http.Handler {
	strictTransport := strings.HasPrefix(cfg.BaseURL, "https://")
	frameOptions := strings.TrimSpace(cfg.AllowedFrameAncestors) == ""

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			nonce := httputil.GenerateNonce()

			h := w.Header()
			h.Set("Referrer-Policy", "no-referrer")
			h.Set("X-Content-Type-Options", "nosniff")
			if frameOptions {
				h.Set("X-Frame-Options", "SAMEORIGIN")
			}
			h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=(), display-capture=()")
			h.Set("Content-Security-Policy", contentSecurityPolicy(cfg, nonce))
			if strictTransport {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			next.ServeHTTP(w, r.WithContext(httputil.ContextWithNonce(r.Context(), nonce)))
		})
	}
}
