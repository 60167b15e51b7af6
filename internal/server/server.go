package server

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/bikinibottom/spongeplay/internal/auth"
	"github.com/bikinibottom/spongeplay/internal/board"
	"github.com/bikinibottom/spongeplay/internal/docs"
	"github.com/bikinibottom/spongeplay/internal/httputil"
	"github.com/bikinibottom/spongeplay/internal/parser"
	"github.com/bikinibottom/spongeplay/internal/player"
	"github.com/bikinibottom/spongeplay/internal/ratelimit"
	"github.com/bikinibottom/spongeplay/internal/storage"
	"github.com/bikinibottom/spongeplay/internal/validate"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Config struct {
	Backend        storage.Backend
	Notifier       board.Notifier
	Regions        board.RegionResolver
	Registry       *parser.Registry
	Gate           *auth.Gate
	SessionSecret  string
	SessionTTL     time.Duration
	WebFS          fs.FS
	BaseURL        string
	FrameAncestors string
	LoginLimit     RateLimit
	WriteLimit     RateLimit
}

// RateLimit is a per-client token bucket. A zero value selects the route's default.
type RateLimit struct {
	RequestsPerSecond float64
	Burst             int
}

func (l RateLimit) orDefault(rps float64, burst int) RateLimit {
	if l.RequestsPerSecond <= 0 {
		return RateLimit{RequestsPerSecond: rps, Burst: burst}
	}
	return l
}

type Server struct {
	router        chi.Router
	pinger        Pinger
	board         *board.Board
	authHandler   *auth.Handler
	boardHandler  *board.Handler
	playerHandler *player.Handler
	webFS         fs.FS
	limiters      []*ratelimit.Limiter
	loginLimit    RateLimit
	writeLimit    RateLimit
}

func New(cfg Config) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(slogMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders(SecurityConfig{
		BaseURL:               cfg.BaseURL,
		AllowedFrameAncestors: cfg.FrameAncestors,
	}))
	r.Use(gziphandler.GzipHandler)

	s := &Server{
		router:     r,
		webFS:      cfg.WebFS,
		loginLimit: cfg.LoginLimit.orDefault(0.5, 5),
		writeLimit: cfg.WriteLimit.orDefault(2, 10),
	}

	registry := cfg.Registry
	if registry == nil {
		registry = parser.Builtin
	}
	s.playerHandler = player.NewHandler(registry)

	secret := cfg.SessionSecret
	if secret == "" {
		slog.Warn("server: no session secret configured, sessions will not survive a restart")
		secret = httputil.GenerateNonce() + httputil.GenerateNonce()
	}
	secureCookies := strings.HasPrefix(cfg.BaseURL, "https://")
	s.authHandler = auth.NewHandler(cfg.Gate, secret, cfg.SessionTTL, secureCookies)

	if cfg.Backend != nil {
		s.pinger = cfg.Backend
		s.board = board.New(cfg.Backend, cfg.Notifier)
		s.boardHandler = board.NewHandler(s.board, cfg.Regions)
	}

	s.routes(cfg.Gate != nil)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close stops the rate limiters and waits for queued board events.
func (s *Server) Close() {
	for _, l := range s.limiters {
		l.Stop()
	}
	if s.board != nil {
		s.board.Wait()
	}
}

func (s *Server) newLimiter(limit RateLimit) *ratelimit.Limiter {
	l := ratelimit.NewLimiter(limit.RequestsPerSecond, limit.Burst)
	s.limiters = append(s.limiters, l)
	return l
}

func (s *Server) routes(adminEnabled bool) {
	s.router.Get("/api/health", s.handleHealth)
	s.router.Get("/api/limits", s.handleLimits)
	s.router.Get("/api/docs", docs.HandleDocs)
	s.router.Get("/api/docs/openapi.yaml", docs.HandleSpec)

	s.router.Get("/api/parsers", s.playerHandler.ListParsers)
	s.router.Get("/api/normalize", s.playerHandler.Normalize)
	s.router.Post("/api/play", s.playerHandler.Play)
	s.router.Get("/play", s.playerHandler.PlayPage)

	s.router.Group(func(r chi.Router) {
		r.Use(s.authHandler.Middleware)

		r.Route("/api/admin", func(r chi.Router) {
			if adminEnabled {
				loginLimiter := s.newLimiter(s.loginLimit)
				r.With(loginLimiter.Middleware).Post("/login", s.authHandler.Login)
			}
			r.Post("/logout", s.authHandler.Logout)
			r.Get("/session", s.authHandler.Session)
		})

		if s.boardHandler == nil {
			return
		}

		writeLimiter := s.newLimiter(s.writeLimit)
		r.Get("/api/announcements", s.boardHandler.ListAnnouncements)
		r.With(auth.RequireAdmin).Post("/api/announcements", s.boardHandler.PostAnnouncement)
		r.With(auth.RequireAdmin).Delete("/api/announcements/{index}", s.boardHandler.DeleteAnnouncement)

		r.Get("/api/comments", s.boardHandler.ListComments)
		r.With(writeLimiter.Middleware).Post("/api/comments", s.boardHandler.PostComment)
		r.With(writeLimiter.Middleware).Post("/api/comments/{index}/like", s.boardHandler.LikeComment)
		r.With(auth.RequireAdmin).Delete("/api/comments/{index}", s.boardHandler.DeleteComment)

		r.Get("/api/stats", s.boardHandler.Stats)
	})

	if s.webFS != nil {
		spa := newSPAFileServer(s.webFS)
		s.router.NotFound(spa.ServeHTTP)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.pinger != nil {
		if err := s.pinger.Ping(r.Context()); err != nil {
			slog.Error("server: health check failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unhealthy","error":"storage unreachable"}`))
			return
		}
	}
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleLimits(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, validate.FieldLimits())
}
