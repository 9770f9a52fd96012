package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"ledger/internal/core"
	"ledger/internal/ledger"
	"ledger/internal/log"
	"ledger/internal/middleware/ratelimit"
	"ledger/internal/middleware/security"
	"ledger/internal/middleware/trace"
	"ledger/internal/view"
	appweb "ledger/web"
)

// Ledger is the part of ledger.Service the handlers drive.
type Ledger interface {
	Snapshot() ledger.Snapshot
	Add(ctx context.Context, t core.Transaction) (ledger.Snapshot, error)
	Delete(ctx context.Context, ref ledger.Ref) (ledger.Snapshot, bool, error)
	Edit(ctx context.Context, ref ledger.Ref) (core.Draft, ledger.Snapshot, bool, error)
}

// ReportBuilder renders the PDF statement. The bool reports a cache hit.
type ReportBuilder interface {
	Build(snap ledger.Snapshot, c ledger.Criteria) ([]byte, bool, error)
}

// Options wires a Server. Reports, Ping and Limiter are optional.
type Options struct {
	Addr     string
	Ledger   Ledger
	Renderer *view.Renderer
	Reports  ReportBuilder
	Ping     func(ctx context.Context) error
	Limiter  *ratelimit.Limiter
	Logger   *log.Logger
}

type Server struct {
	http.Server
	templates *template.Template
	ledger    Ledger
	renderer  *view.Renderer
	reports   ReportBuilder
	ping      func(ctx context.Context) error
	logger    *log.Logger

	traceMiddleware *trace.Middleware
	rateLimiter     *ratelimit.Limiter
	clientIP        *security.ClientIP
	appMetrics      *appMetrics

	shutdownOnce sync.Once
}

// NewServer parses the embedded templates and mounts every route.
func NewServer(opts Options) (*Server, error) {
	if opts.Ledger == nil {
		return nil, errors.New("http: ledger is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	renderer := opts.Renderer
	if renderer == nil {
		renderer = view.NewRenderer(view.NewFormatter("", ""), nil)
	}
	limiter := opts.Limiter
	if limiter == nil {
		limiter = ratelimit.NewLimiter(ratelimit.DefaultConfig())
	}

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		templates:   t,
		ledger:      opts.Ledger,
		renderer:    renderer,
		reports:     opts.Reports,
		ping:        opts.Ping,
		logger:      logger.WithComponent(log.ComponentHTTP),
		rateLimiter: limiter,
		clientIP:    security.NewClientIP(),
		appMetrics:  newAppMetrics(),
	}
	s.traceMiddleware = trace.NewMiddleware(logger, s.clientIP.Extract)

	mux := http.NewServeMux()

	sub, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}
	static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
	mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))

	limited := s.rateLimiter.Middleware(s.clientIP.Extract, s.onRateLimited)

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /ui/ledger", s.handleLedgerPartial)
	mux.Handle("POST /transactions", limited(http.HandlerFunc(s.handleAddTransaction)))
	mux.Handle("POST /transactions/delete", limited(http.HandlerFunc(s.handleDeleteTransaction)))
	mux.Handle("POST /transactions/edit", limited(http.HandlerFunc(s.handleEditTransaction)))
	mux.HandleFunc("POST /theme", s.handleToggleTheme)
	mux.HandleFunc("GET /api/transactions", s.handleAPITransactions)
	mux.HandleFunc("GET /report.pdf", s.handleReport)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.traceMiddleware.Middleware(headers.Middleware(mux)),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.clientIP.Extract(r),
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Too many changes in a short time, wait a minute").Write(w)
}

// page is what the templates execute against. OOB marks fragments that
// htmx swaps out of band.
type page struct {
	view.Model
	OOB bool
}

func (s *Server) project(r *http.Request, snap ledger.Snapshot, c ledger.Criteria, draft core.Draft) (page, error) {
	m, err := s.renderer.Project(snap, c, draft)
	if err != nil {
		return page{}, err
	}
	m.Theme = themeFromRequest(r)
	return page{Model: m}, nil
}

func (s *Server) execute(name string, data page) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("execute %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// respond renders template name and writes it, or a 500 fragment when
// rendering fails.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, b *HTMXResponseBuilder, name string, data page) {
	body, err := s.execute(name, data)
	if err != nil {
		log.FromContext(r.Context()).LogError(r.Context(), "Template execution failed", err, log.OpRender,
			log.NewFields().WithComponent(log.ComponentTemplate))
		InternalServerError("Could not render the page").Write(w)
		return
	}
	b.BodyHTML(body).Write(w)
}
