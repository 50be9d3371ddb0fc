package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/snow-ghost/rewriter/core"
	"github.com/snow-ghost/rewriter/engine"
	"github.com/snow-ghost/rewriter/pkg/logging"
	"github.com/snow-ghost/rewriter/pkg/metrics"
	"github.com/snow-ghost/rewriter/pkg/tracing"
)

// Server represents the HTTP server
type Server struct {
	port    string
	logger  *logging.Logger
	router  *http.ServeMux
	engine  *engine.Engine
	metrics *metrics.Metrics
	tracer  *tracing.Tracer
}

// NewServer creates a new HTTP server around an engine. Metrics may be nil
// when the caller does not want Prometheus collectors registered.
func NewServer(port string, eng *engine.Engine, m *metrics.Metrics, logger *logging.Logger) *Server {
	s := &Server{
		port:    port,
		logger:  logger,
		router:  http.NewServeMux(),
		engine:  eng,
		metrics: m,
		tracer:  tracing.Global("rewriter/http"),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all the HTTP routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/healthz", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	v1 := http.NewServeMux()
	v1.HandleFunc("/snippets", s.handleAddSnippet)
	v1.HandleFunc("/snippets/search", s.handleSearchSnippets)
	s.router.Handle("/api/v1/", http.StripPrefix("/api/v1", v1))

	v2 := http.NewServeMux()
	v2.HandleFunc("/mutate", s.handleMutate)
	v2.HandleFunc("/collections", s.handleAddCollection)
	s.router.Handle("/api/v2/", http.StripPrefix("/api/v2", v2))
}

// Handler returns the root handler, for tests and custom servers.
func (s *Server) Handler() http.Handler {
	return s.withRequestLogging(s.router)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "port", s.port)
	return http.ListenAndServe(":"+s.port, s.Handler())
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withRequestLogging opens a span per request, so handler-side spans become
// its children, and logs every completed request with its outcome.
func (s *Server) withRequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx, span := s.tracer.StartSpan(r.Context(), "http.request")
		defer span.End()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		var extra []any
		if traceID := tracing.GetTraceID(ctx); traceID != "" {
			extra = append(extra, "trace_id", traceID, "span_id", tracing.GetSpanID(ctx))
		}
		s.logger.LogRequest(r.Method, r.URL.Path, rec.status, time.Since(start), extra...)
	})
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","service":"rewriter","snippets":%d,"collections":%d,"timestamp":"%s"}`,
		s.engine.SnippetCount(), s.engine.CollectionCount(), time.Now().Format(time.RFC3339))
}

// searchRequest asks for snippets near a description.
type searchRequest struct {
	Description string `json:"description"`
	Language    string `json:"language"`
	Limit       int    `json:"limit,omitempty"`
}

type snippetHit struct {
	ID          int     `json:"id"`
	Score       float64 `json:"score"`
	Description string  `json:"description"`
	Language    string  `json:"language"`
	Body        string  `json:"body"`
}

type searchResponse struct {
	Hits []snippetHit `json:"hits"`
}

// handleSearchSnippets handles description-driven snippet retrieval.
func (s *Server) handleSearchSnippets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	start := time.Now()

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "Invalid JSON", "INVALID_JSON", http.StatusBadRequest)
		s.record("snippets_search", "error", start)
		return
	}
	if req.Limit <= 0 {
		req.Limit = 1
	}

	hits, err := s.engine.SearchSnippets(r.Context(), req.Description, req.Language, req.Limit)
	if err != nil {
		s.writeEngineError(w, err)
		s.record("snippets_search", "error", start)
		return
	}

	resp := searchResponse{Hits: make([]snippetHit, 0, len(hits))}
	for _, h := range hits {
		resp.Hits = append(resp.Hits, snippetHit{
			ID:          h.ID,
			Score:       h.Score,
			Description: h.Value.Description,
			Language:    h.Value.Language,
			Body:        h.Value.Body,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
	s.record("snippets_search", "ok", start)
}

type addSnippetRequest struct {
	Description string `json:"description"`
	Language    string `json:"language"`
	Body        string `json:"body"`
}

type addResponse struct {
	ID int `json:"id"`
}

// handleAddSnippet appends a snippet to its language namespace.
func (s *Server) handleAddSnippet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	start := time.Now()

	var req addSnippetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "Invalid JSON", "INVALID_JSON", http.StatusBadRequest)
		s.record("snippets_add", "error", start)
		return
	}

	id, err := s.engine.AddSnippet(r.Context(), core.Snippet{
		Description: req.Description,
		Language:    req.Language,
		Body:        req.Body,
	})
	if err != nil {
		s.writeEngineError(w, err)
		s.record("snippets_add", "error", start)
		return
	}
	if s.metrics != nil {
		s.metrics.SnippetsIndexed.Set(float64(s.engine.SnippetCount()))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(addResponse{ID: id})
	s.record("snippets_add", "ok", start)
}

// templateSegment is a one-key object: literal or capture.
type templateSegment struct {
	Literal *string `json:"literal,omitempty"`
	Capture *string `json:"capture,omitempty"`
}

type ruleBody struct {
	Expression string            `json:"expression"`
	Template   []templateSegment `json:"template"`
}

type addCollectionRequest struct {
	Description string     `json:"description"`
	Language    string     `json:"language,omitempty"`
	Rules       []ruleBody `json:"rules"`
}

// handleAddCollection validates and indexes a mutation collection.
func (s *Server) handleAddCollection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	start := time.Now()

	var req addCollectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "Invalid JSON", "INVALID_JSON", http.StatusBadRequest)
		s.record("collections_add", "error", start)
		return
	}

	collection := core.MutationCollection{
		Description: req.Description,
		Language:    req.Language,
	}
	for i, rb := range req.Rules {
		rule := core.MutationRule{Expression: rb.Expression}
		for _, seg := range rb.Template {
			switch {
			case seg.Literal != nil && seg.Capture == nil:
				rule.Template = append(rule.Template, core.Literal(*seg.Literal))
			case seg.Capture != nil && seg.Literal == nil:
				rule.Template = append(rule.Template, core.CaptureRef(*seg.Capture))
			default:
				s.writeError(w,
					fmt.Sprintf("rule %d: template segment needs exactly one of literal or capture", i),
					"INVALID_RULE", http.StatusBadRequest)
				s.record("collections_add", "error", start)
				return
			}
		}
		collection.Rules = append(collection.Rules, rule)
	}

	id, err := s.engine.AddMutationCollection(r.Context(), collection)
	if err != nil {
		s.writeEngineError(w, err)
		s.record("collections_add", "error", start)
		return
	}
	if s.metrics != nil {
		s.metrics.CollectionsIndexed.Set(float64(s.engine.CollectionCount()))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(addResponse{ID: id})
	s.record("collections_add", "ok", start)
}

type mutateRequest struct {
	Description string `json:"description"`
	Language    string `json:"language"`
	Body        string `json:"body"`
}

type mutateResponse struct {
	Body string `json:"body"`
}

// handleMutate handles the single-substitution rewrite operation.
func (s *Server) handleMutate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	start := time.Now()

	var req mutateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "Invalid JSON", "INVALID_JSON", http.StatusBadRequest)
		s.record("mutate", "error", start)
		return
	}

	out, err := s.engine.Mutate(r.Context(), req.Description, req.Language, req.Body)
	if err != nil {
		s.writeEngineError(w, err)
		s.record("mutate", "error", start)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(mutateResponse{Body: out})
	s.record("mutate", "ok", start)
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// writeEngineError maps engine error kinds to HTTP statuses.
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrConfigInvalid):
		s.writeError(w, err.Error(), "CONFIG_INVALID", http.StatusBadRequest)
	case errors.Is(err, core.ErrUnsupportedLanguage):
		s.writeError(w, err.Error(), "UNSUPPORTED_LANGUAGE", http.StatusBadRequest)
	case errors.Is(err, core.ErrSyntaxInvalid):
		s.writeError(w, err.Error(), "SYNTAX_INVALID", http.StatusUnprocessableEntity)
	case errors.Is(err, core.ErrNoCollectionMatch):
		s.writeError(w, err.Error(), "NO_COLLECTION", http.StatusNotFound)
	case errors.Is(err, core.ErrNoMatch):
		s.writeError(w, err.Error(), "NO_MATCH", http.StatusNotFound)
	case errors.Is(err, core.ErrBackendUnavailable):
		s.writeError(w, err.Error(), "BACKEND_UNAVAILABLE", http.StatusServiceUnavailable)
	default:
		s.logger.Error("request failed", "error", err)
		s.writeError(w, "Internal error", "INTERNAL", http.StatusInternalServerError)
	}
}

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, message, code string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(errorResponse{Error: message, Code: code})
}

func (s *Server) record(operation, status string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordRequest(operation, status, time.Since(start))
}
