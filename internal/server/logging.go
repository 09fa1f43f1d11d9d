package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/mssola/useragent"
	"github.com/slidecue/slidecue/internal/geoip"
	"github.com/slidecue/slidecue/internal/ratelimit"
)

// GeoLocator resolves a client IP to a coarse location. *geoip.Resolver
// satisfies it.
type GeoLocator interface {
	Lookup(ip string) geoip.Location
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func slogMiddleware(geo GeoLocator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/api/health" {
				next.ServeHTTP(w, r)
				return
			}

			recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			start := time.Now()

			next.ServeHTTP(recorder, r)

			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", recorder.statusCode,
				"duration_ms", time.Since(start).Milliseconds(),
				"remote_addr", r.RemoteAddr,
			}
			if raw := r.UserAgent(); raw != "" {
				ua := useragent.New(raw)
				browser, _ := ua.Browser()
				attrs = append(attrs, "browser", browser, "os", ua.OS(), "bot", ua.Bot())
			}
			if geo != nil {
				loc := geo.Lookup(ratelimit.ClientIP(r))
				if loc.Country != "" {
					attrs = append(attrs, "country", loc.Country)
				}
				if loc.City != "" {
					attrs = append(attrs, "city", loc.City)
				}
			}
			slog.Info("http request", attrs...)
		})
	}
}
