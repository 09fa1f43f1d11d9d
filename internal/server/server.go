package server

import (
	"context"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/slidecue/slidecue/internal/auth"
	"github.com/slidecue/slidecue/internal/database"
	"github.com/slidecue/slidecue/internal/docs"
	"github.com/slidecue/slidecue/internal/email"
	"github.com/slidecue/slidecue/internal/httputil"
	"github.com/slidecue/slidecue/internal/ratelimit"
	"github.com/slidecue/slidecue/internal/session"
	"github.com/slidecue/slidecue/internal/validate"
	"github.com/slidecue/slidecue/internal/viewer"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Config struct {
	DB                    database.DBTX
	Pinger                Pinger
	Storage               session.ObjectStorage
	Mailer                email.Sender
	GeoIP                 GeoLocator
	StaticFS              fs.FS
	JWTSecret             string
	BaseURL               string
	S3PublicEndpoint      string
	AllowedFrameAncestors string
	MaxScriptBytes        int64
}

type Server struct {
	router         chi.Router
	pinger         Pinger
	jwtSecret      string
	staticFS       fs.FS
	relayHandler   *email.RelayHandler
	sessionHandler *session.Handler
}

func New(cfg Config) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(slogMiddleware(cfg.GeoIP))
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders(SecurityConfig{
		BaseURL:               cfg.BaseURL,
		StorageEndpoint:       cfg.S3PublicEndpoint,
		AllowedFrameAncestors: cfg.AllowedFrameAncestors,
	}))

	staticFS := cfg.StaticFS
	if staticFS == nil {
		staticFS = viewer.StaticFS()
	}

	s := &Server{router: r, pinger: cfg.Pinger, jwtSecret: cfg.JWTSecret, staticFS: staticFS}

	if cfg.Mailer != nil {
		s.relayHandler = email.NewRelayHandler(cfg.Mailer)
	}

	if cfg.DB != nil {
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:8080"
		}
		s.sessionHandler = session.NewHandler(cfg.DB, cfg.Storage, baseURL, cfg.MaxScriptBytes)
	}

	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Get("/api/health", s.handleHealth)
	s.router.Get("/api/limits", s.handleLimits)
	s.router.Get("/api/docs", docs.HandleDocs)
	s.router.Get(docs.SpecPath, docs.HandleSpec)
	s.router.Handle("/static/*", http.StripPrefix("/static", newStaticFileServer(s.staticFS)))

	if s.relayHandler != nil {
		emailLimiter := ratelimit.NewLimiter(0.2, 5)
		s.router.With(emailLimiter.Middleware).Post("/api/email", s.relayHandler.ServeHTTP)
	}

	if s.sessionHandler != nil {
		requireOperator := auth.Middleware(s.jwtSecret)
		apiLimiter := ratelimit.NewLimiter(5, 20)

		s.router.Route("/api/sessions", func(r chi.Router) {
			r.Use(apiLimiter.Middleware)
			r.With(requireOperator).Post("/", s.sessionHandler.Create)
			r.Get("/{id}", s.sessionHandler.Get)
			r.With(requireOperator).Delete("/{id}", s.sessionHandler.Delete)
			r.With(requireOperator).Post("/{id}/images", s.sessionHandler.ImageUploadURL)
			r.Get("/{id}/slides/{n}", s.sessionHandler.Slide)
		})
		s.router.Route("/api/transcripts", func(r chi.Router) {
			r.Use(apiLimiter.Middleware)
			r.Get("/", s.sessionHandler.ListTranscripts)
			r.With(requireOperator).Post("/", s.sessionHandler.CreateTranscript)
			r.Get("/{id}", s.sessionHandler.GetTranscript)
			r.With(requireOperator).Put("/{id}", s.sessionHandler.UpdateTranscript)
		})
		s.router.Get("/session/{id}", s.sessionHandler.Page)
		s.router.Get("/download/{id}", s.sessionHandler.Download)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.pinger != nil {
		if err := s.pinger.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unhealthy","error":"database unreachable"}`))
			return
		}
	}
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleLimits(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, validate.FieldLimits())
}
