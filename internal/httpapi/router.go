package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"CanonCurator/internal/classifier"
	"CanonCurator/internal/scoring"
	"CanonCurator/internal/usecase"
)

// Reports is the read side the API serves.
type Reports interface {
	CurationQueue(ctx context.Context) (scoring.CurationQueueReport, error)
	TopicCoverage(ctx context.Context) (scoring.TopicCoverageReport, error)
	Domains(ctx context.Context) ([]scoring.DomainBreakdown, error)
	SourceAudit(ctx context.Context) (classifier.AuditReport, error)
	AuthorPriority(ctx context.Context, authorID string) (scoring.Priority, bool, error)
}

// RequestRecorder receives one observation per served request.
type RequestRecorder interface {
	RecordHTTPRequest(method, route, status string, elapsed time.Duration)
}

// Router builds the reporting HTTP surface.
type Router struct {
	reports Reports
	metrics http.Handler
	rec     RequestRecorder
	logger  *slog.Logger
}

// NewRouter wires handlers. metrics and rec may be nil.
func NewRouter(reports Reports, metrics http.Handler, rec RequestRecorder, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Router{reports: reports, metrics: metrics, rec: rec, logger: logger}
}

// Setup configures middleware and routes.
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(rt.observe)

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if rt.metrics != nil {
		router.Method(http.MethodGet, "/metrics", rt.metrics)
	}

	router.Route("/api", func(r chi.Router) {
		r.Get("/curation-queue", rt.curationQueue)
		r.Get("/topic-coverage", rt.topicCoverage)
		r.Get("/domains", rt.domains)
		r.Get("/source-audit", rt.sourceAudit)
		r.Get("/classify", rt.classify)
		r.Get("/authors/{authorID}/priority", rt.authorPriority)
	})

	return router
}

func (rt *Router) curationQueue(w http.ResponseWriter, r *http.Request) {
	report, err := rt.reports.CurationQueue(r.Context())
	rt.respond(w, r, report, err)
}

func (rt *Router) topicCoverage(w http.ResponseWriter, r *http.Request) {
	report, err := rt.reports.TopicCoverage(r.Context())
	rt.respond(w, r, report, err)
}

func (rt *Router) domains(w http.ResponseWriter, r *http.Request) {
	report, err := rt.reports.Domains(r.Context())
	rt.respond(w, r, map[string]any{"domains": report}, err)
}

func (rt *Router) sourceAudit(w http.ResponseWriter, r *http.Request) {
	report, err := rt.reports.SourceAudit(r.Context())
	rt.respond(w, r, report, err)
}

func (rt *Router) classify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("url") == "" && q.Get("title") == "" {
		writeError(w, http.StatusBadRequest, "url or title query parameter is required")
		return
	}
	writeJSON(w, http.StatusOK, classifier.Classify(q.Get("url"), q.Get("title")))
}

func (rt *Router) authorPriority(w http.ResponseWriter, r *http.Request) {
	authorID := chi.URLParam(r, "authorID")
	priority, found, err := rt.reports.AuthorPriority(r.Context(), authorID)
	if err == nil && !found {
		writeError(w, http.StatusNotFound, "author not found")
		return
	}
	rt.respond(w, r, priority, err)
}

func (rt *Router) respond(w http.ResponseWriter, r *http.Request, body any, err error) {
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, usecase.ErrRepositoryUnavailable) {
			status = http.StatusServiceUnavailable
		}
		rt.logger.Error("report request failed",
			"path", r.URL.Path,
			"request_id", chimiddleware.GetReqID(r.Context()),
			"error", err,
		)
		writeError(w, status, http.StatusText(status))
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func (rt *Router) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)

		if rt.rec != nil {
			rt.rec.RecordHTTPRequest(r.Method, route, strconv.Itoa(status), elapsed)
		}
		rt.logger.Debug("http request",
			"method", r.Method,
			"route", route,
			"status", status,
			"duration", elapsed,
			"request_id", chimiddleware.GetReqID(r.Context()),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
