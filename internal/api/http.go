package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/heysubinoy/pyazkv/internal/router"
	"github.com/heysubinoy/pyazkv/pkg/kv"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// Server exposes the router over HTTP.
type Server struct {
	Router *router.Router
	logger *slog.Logger
}

// NewServer creates a new HTTP server over r.
func NewServer(r *router.Router, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{Router: r, logger: logger}
}

// RegisterRoutes registers all KV handlers under /api on m.
func (s *Server) RegisterRoutes(m *mux.Router) {
	m.Use(s.requestLogger)

	api := m.PathPrefix("/api").Subrouter()
	api.HandleFunc("/repository", s.handleSave).Methods(http.MethodPost)
	api.HandleFunc("/repository/{key}", s.handleGet).Methods(http.MethodGet)
	api.HandleFunc("/repository/{key}", s.handleDelete).Methods(http.MethodDelete)
}

type saveRequest struct {
	Key   *string `json:"key"`
	Value *string `json:"value"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// handleSave handles POST /api/repository.
// Expects: {"key": "foo", "value": "bar"}
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Key == nil || *req.Key == "" {
		writeError(w, http.StatusBadRequest, "Missing key field")
		return
	}
	if req.Value == nil {
		writeError(w, http.StatusBadRequest, "Missing value field")
		return
	}

	res, err := s.Router.HandleSave(r.Context(), *req.Key, *req.Value)
	if err != nil {
		s.writeRouterError(w, *req.Key, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleGet handles GET /api/repository/{key}.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	res, err := s.Router.HandleGet(r.Context(), key)
	if err != nil {
		s.writeRouterError(w, key, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleDelete handles DELETE /api/repository/{key}.
// Returns the removed value with "is_deleted": true.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	res, err := s.Router.HandleDelete(r.Context(), key)
	if err != nil {
		s.writeRouterError(w, key, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) writeRouterError(w http.ResponseWriter, key string, err error) {
	switch kv.Classify(err) {
	case kv.KindNotFound:
		writeError(w, http.StatusNotFound, "Key '"+key+"' not found")
	case kv.KindMalformed:
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("request failed", "key", key, "error", err)
		writeError(w, http.StatusServiceUnavailable, "Storage backend unavailable")
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, errorResponse{Detail: detail})
}

// statusRecorder captures the response code for the access log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// requestLogger tags each request with an id and logs its outcome.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		s.logger.Info("http request",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}
