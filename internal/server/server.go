// Package server serves mdmx pages together with a demo htmx endpoint.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"regexp"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/open-cli-collective/mdmx/pkg/mdmx"
)

//go:embed pages/*.mdmx
var embeddedPages embed.FS

// pageExts are tried in order when resolving a page name.
var pageExts = []string{".mdmx", ".md"}

var pageName = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ErrPageNotFound is returned when no source file exists for a page.
var ErrPageNotFound = errors.New("page not found")

// Config configures a Server.
type Config struct {
	Addr    string
	HTMXSrc string

	// PagesDir is served instead of the embedded demo pages when set.
	PagesDir string

	// Watch recompiles pages when files under PagesDir change.
	Watch bool

	Compiler *mdmx.Compiler
	Logger   *slog.Logger
}

// Server renders mdmx pages into an htmx-enabled HTML shell.
type Server struct {
	addr     string
	pagesDir string
	pages    fs.FS
	htmxSrc  string
	watch    bool
	compiler *mdmx.Compiler
	logger   *slog.Logger

	mu    sync.RWMutex
	cache map[string]template.HTML
}

// New creates a server from cfg.
func New(cfg Config) *Server {
	s := &Server{
		addr:     cfg.Addr,
		pagesDir: cfg.PagesDir,
		htmxSrc:  cfg.HTMXSrc,
		watch:    cfg.Watch && cfg.PagesDir != "",
		compiler: cfg.Compiler,
		logger:   cfg.Logger,
		cache:    make(map[string]template.HTML),
	}
	if s.compiler == nil {
		s.compiler = mdmx.NewCompiler()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if cfg.PagesDir != "" {
		s.pages = os.DirFS(cfg.PagesDir)
	} else {
		s.pages, _ = fs.Sub(embeddedPages, "pages")
	}
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/p/{name}", s.handlePage)
	r.Post("/api/greet", s.handleGreet)
	r.Get("/health", s.handleHealth)

	return r
}

// Serve listens on the configured address until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.watch {
		eg.Go(func() error {
			return s.watchPages(egctx)
		})
	}

	eg.Go(func() error {
		s.logger.Info("serving mdmx pages", "addr", s.addr, "pages", s.source())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

func (s *Server) source() string {
	if s.pagesDir == "" {
		return "embedded"
	}
	return s.pagesDir
}

// Render compiles the named page, caching the result.
func (s *Server) Render(name string) (template.HTML, error) {
	s.mu.RLock()
	body, ok := s.cache[name]
	s.mu.RUnlock()
	if ok {
		return body, nil
	}

	src, err := s.readPage(name)
	if err != nil {
		return "", err
	}

	out, err := s.compiler.Compile(src)
	if err != nil {
		return "", fmt.Errorf("failed to compile page %s: %w", name, err)
	}
	body = template.HTML(out) //nolint:gosec // G203: compiled from local page sources

	s.mu.Lock()
	s.cache[name] = body
	s.mu.Unlock()
	return body, nil
}

// Invalidate drops every cached page.
func (s *Server) Invalidate() {
	s.mu.Lock()
	s.cache = make(map[string]template.HTML)
	s.mu.Unlock()
}

func (s *Server) readPage(name string) ([]byte, error) {
	if !pageName.MatchString(name) {
		return nil, ErrPageNotFound
	}
	for _, ext := range pageExts {
		data, err := fs.ReadFile(s.pages, name+ext)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read page %s: %w", name, err)
		}
	}
	return nil, ErrPageNotFound
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
