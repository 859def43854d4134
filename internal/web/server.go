// Package web serves the interactive dashboard: HTML pages, chart images,
// downloads and a small JSON API, all computed from the caller's session.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/KaramelBytes/edadash/internal/marketing"
	"github.com/KaramelBytes/edadash/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

// CookieName is the session cookie.
const CookieName = "edadash_session"

// Config holds dashboard settings.
type Config struct {
	Host string
	Port int
	// DisplaySample bounds the rows drawn into chart images.
	DisplaySample int
	Seed          int64
	Marketing     marketing.Options
	// SweepEvery is the idle session sweep interval; 0 uses one minute.
	SweepEvery time.Duration
	// AllowedOrigins for /api; empty allows any origin.
	AllowedOrigins []string
	// Quiet disables the request logger.
	Quiet bool
}

// Addr returns host:port.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Server is the dashboard HTTP server.
type Server struct {
	cfg    Config
	store  *session.Store
	pages  map[string]*template.Template
	router chi.Router
	now    func() time.Time
}

// NewServer parses the embedded templates and builds the router.
func NewServer(cfg Config, store *session.Store) (*Server, error) {
	pages, err := parsePages()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	s := &Server{cfg: cfg, store: store, pages: pages, now: time.Now}
	s.router = s.routes()
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if !s.cfg.Quiet {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(s.withSession)

		r.Get("/", s.handleIndex)
		r.Get("/fraud", s.handleFraud)
		r.Get("/fraud/chart/{name}.png", s.handleFraudChart)
		r.Get("/fraud/export/{kind}", s.handleFraudExport)
		r.Get("/marketing", s.handleMarketing)
		r.Get("/marketing/chart/{name}.png", s.handleMarketingChart)
		r.Get("/marketing/export/{kind}", s.handleMarketingExport)
		r.Get("/overview/{dataset}", s.handleOverview)

		r.Route("/api", func(r chi.Router) {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins: s.allowedOrigins(),
				AllowedMethods: []string{"GET", "OPTIONS"},
				AllowedHeaders: []string{"Accept", "Content-Type"},
				MaxAge:         300,
			}))
			r.Get("/status", s.handleAPIStatus)
			r.Get("/fraud", s.handleAPIFraud)
			r.Get("/marketing", s.handleAPIMarketing)
		})
	})
	return r
}

func (s *Server) allowedOrigins() []string {
	if len(s.cfg.AllowedOrigins) == 0 {
		return []string{"*"}
	}
	return s.cfg.AllowedOrigins
}

// Run serves until ctx is cancelled, then shuts down gracefully. Idle
// sessions are swept in the background while the server runs.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go s.sweep(sweepCtx)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[Server] listening on http://%s", ln.Addr())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}
	log.Printf("[Server] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) sweep(ctx context.Context) {
	every := s.cfg.SweepEvery
	if every <= 0 {
		every = time.Minute
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := s.store.Sweep(); n > 0 {
				log.Printf("[Server] expired %d idle sessions", n)
			}
		}
	}
}

type ctxKey struct{}

// withSession attaches the caller's session, creating one and setting the
// cookie on first contact.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(CookieName); err == nil {
			id = c.Value
		}
		sess, created := s.store.GetOrCreate(id)
		if created {
			http.SetCookie(w, &http.Cookie{
				Name:     CookieName,
				Value:    sess.ID,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, sess)))
	})
}

func sessionFrom(r *http.Request) *session.Session {
	s, _ := r.Context().Value(ctxKey{}).(*session.Session)
	return s
}
