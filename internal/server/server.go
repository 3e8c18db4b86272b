// Package server exposes form schemas as multi-step HTML registration pages
// and a JSON registration API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-formflow/internal/submissions"
	"github.com/goliatone/go-formflow/pkg/metrics"
	pkgopenapi "github.com/goliatone/go-formflow/pkg/openapi"
	"github.com/goliatone/go-formflow/pkg/render"
	"github.com/goliatone/go-formflow/pkg/renderers/vanilla"
	"github.com/goliatone/go-formflow/pkg/schemastore"
)

// SessionHeader carries the attendee identity on JSON registrations.
const SessionHeader = "X-Formflow-Session"

// attendeeCookie identifies a browser across form sessions so a second
// registration for the same event can be rejected.
const attendeeCookie = "formflow_attendee"

// Registrations persists accepted registrations.
type Registrations interface {
	Save(ctx context.Context, form, session string, values map[string]any) (submissions.Record, error)
	Exists(ctx context.Context, form, session string) (bool, error)
	List(ctx context.Context, form string) ([]submissions.Record, error)
}

// PageRenderer draws form partitions and standalone messages.
type PageRenderer interface {
	render.Renderer
	RenderMessage(title, message string) ([]byte, error)
}

// Deps are the collaborators of the server. Schemas and Registrations are
// required.
type Deps struct {
	Schemas       *schemastore.Store
	Registrations Registrations
	Renderer      PageRenderer
	Metrics       *metrics.Collector
	Logger        zerolog.Logger
	Info          pkgopenapi.Info

	// MaxUploadBytes bounds multipart request bodies. Zero means 32 MiB.
	MaxUploadBytes int64
	// SessionTTL evicts idle sessions. Zero keeps them forever.
	SessionTTL time.Duration
	// MetricsPath mounts the Prometheus handler when Metrics is set.
	MetricsPath string
}

// Server is the HTTP application.
type Server struct {
	deps     Deps
	logger   zerolog.Logger
	sessions *sessionRegistry
	router   chi.Router
}

// New wires the routes.
func New(deps Deps) (*Server, error) {
	if deps.Schemas == nil {
		return nil, errors.New("server: schema store is required")
	}
	if deps.Registrations == nil {
		return nil, errors.New("server: registration store is required")
	}
	if deps.Renderer == nil {
		renderer, err := vanilla.New(vanilla.WithPage(vanilla.Page{}), vanilla.WithLogger(deps.Logger))
		if err != nil {
			return nil, fmt.Errorf("server: default renderer: %w", err)
		}
		deps.Renderer = renderer
	}
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = 32 << 20
	}
	if deps.MetricsPath == "" {
		deps.MetricsPath = "/metrics"
	}

	var onCount func(int)
	if deps.Metrics != nil {
		m := deps.Metrics
		onCount = func(n int) { m.ActiveSessions.Set(float64(n)) }
		m.SchemasLoaded.Set(float64(len(deps.Schemas.Names())))
		deps.Schemas.OnChange(m.SchemasChanged)
		deps.Schemas.OnError(m.SchemaReloadFailed)
	}

	s := &Server{
		deps:     deps,
		logger:   deps.Logger,
		sessions: newSessionRegistry(deps.SessionTTL, onCount),
	}
	s.router = s.routes()
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(newLoggingMiddleware(s.logger))
	r.Use(middleware.Recoverer)
	if s.deps.Metrics != nil {
		r.Use(s.deps.Metrics.Middleware)
		r.Handle(s.deps.MetricsPath, promhttp.Handler())
	}

	r.Get("/healthz", s.handleHealth)
	r.Get("/openapi.json", s.handleOpenAPI)
	r.Handle("/assets/*", http.StripPrefix("/assets/", http.FileServer(http.FS(vanilla.AssetsFS()))))

	r.Route("/forms", func(r chi.Router) {
		r.Get("/", s.handleListForms)
		r.Route("/{form}", func(r chi.Router) {
			r.Get("/schema", s.handleSchema)
			r.Post("/sessions", s.handleCreateSession)
			r.Post("/registrations", s.handleRegister)
		})
	})
	r.Get("/sessions/{session}", s.handleShowSession)
	r.Post("/sessions/{session}", s.handleUpdateSession)
	r.Get("/submissions/{form}", s.handleListSubmissions)

	return r
}

func newLoggingMiddleware(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			if r.URL.Path == "/healthz" || strings.HasPrefix(r.URL.Path, "/assets/") {
				return
			}

			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("http request")
		})
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
