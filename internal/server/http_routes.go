package server

import (
	"net/http"
	"strings"
	"time"

	"resumepilot/internal/llm"

	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// Handler returns the fully wrapped HTTP handler
func (s *Server) Handler() http.Handler {
	mux := s.setupRoutes()
	return s.Observability.HTTPMiddleware()(s.requestIDMiddleware(s.accessLogMiddleware(mux)))
}

// setupRoutes configures all HTTP routes and middleware
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	protected := func(h http.HandlerFunc) http.HandlerFunc {
		return s.rateLimitMiddleware()(s.authMiddleware(s.requestSizeLimitMiddleware()(h)))
	}

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /stats", s.statsHandler)
	mux.HandleFunc("GET /providers", protected(s.providersHandler))

	mux.HandleFunc("POST /generate", protected(taskHandler(s, s.Service.Generate)))
	mux.HandleFunc("POST /bullets", protected(taskHandler(s, s.Service.RewriteBullets)))
	mux.HandleFunc("POST /cover-letter", protected(taskHandler(s, s.Service.WriteCoverLetter)))
	mux.HandleFunc("POST /projects", protected(taskHandler(s, s.Service.SuggestProjects)))
	mux.HandleFunc("POST /email", protected(taskHandler(s, s.Service.DraftEmail)))
	mux.HandleFunc("POST /bio", protected(taskHandler(s, s.Service.WriteSocialBio)))

	if h := s.Observability.PrometheusHandler(); h != nil && !s.Observability.ServesPrometheusSeparately() {
		mux.Handle("GET "+s.Observability.PrometheusEndpoint(), h)
	}

	return mux
}

// requestIDMiddleware propagates or assigns a request id. The id is echoed
// in the response and carried by generation logs and results.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(llm.WithRequestID(r.Context(), id)))
	})
}

// accessLogMiddleware logs one line per request with its final status
func (s *Server) accessLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		s.Logger.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapper.statusCode,
			"duration", time.Since(start).String(),
			"request_id", llm.RequestIDFromContext(r.Context()))
	})
}

// responseWrapper wraps http.ResponseWriter to capture status code
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// authMiddleware provides API key authentication
func (s *Server) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Skip authentication if no API keys are configured
		if !s.authEnabled() {
			next(w, r)
			return
		}

		apiKey := apiKeyFromRequest(r)
		if apiKey == "" {
			s.Logger.Info("Authentication failed: missing API key",
				"endpoint", r.URL.Path,
				"client_ip", r.RemoteAddr)
			writeErrorResponse(w, "Missing API key", "X-API-Key header or Authorization Bearer token required", http.StatusUnauthorized)
			return
		}

		// Validate API key
		if !s.validKey(apiKey) {
			s.Logger.Info("Authentication failed: invalid API key",
				"endpoint", r.URL.Path,
				"client_ip", r.RemoteAddr,
				"api_key_prefix", maskAPIKey(apiKey))
			writeErrorResponse(w, "Invalid API key", "Unauthorized access", http.StatusUnauthorized)
			return
		}

		s.Logger.Debug("API authentication successful",
			"endpoint", r.URL.Path,
			"client_ip", r.RemoteAddr,
			"api_key_prefix", maskAPIKey(apiKey))

		next(w, r)
	}
}

// apiKeyFromRequest reads X-API-Key, falling back to a Bearer token
func apiKeyFromRequest(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	if key, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return key
	}
	return ""
}

// requestSizeLimitMiddleware limits the size of incoming requests
func (s *Server) requestSizeLimitMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if s.MaxRequestSize > 0 {
				// Limit the request body size
				r.Body = http.MaxBytesReader(w, r.Body, s.MaxRequestSize)
			}

			next(w, r)
		}
	}
}

// maskAPIKey masks an API key for logging (shows only first 8 characters)
func maskAPIKey(apiKey string) string {
	if len(apiKey) <= 8 {
		return "****"
	}
	return apiKey[:8] + "****"
}
