package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"resumepilot/internal/types"
)

// Health status values
const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

// healthHandler reports provider health. With ?probe=true each provider's
// model is checked, bounded by the health check timeout.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	probe := r.URL.Query().Get("probe") == "true"

	ctx := r.Context()
	if timeout := s.AppConfig.Observability.HealthCheck.Timeout; probe && timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	listing := s.Service.Providers(ctx, probe)
	status := providersStatus(listing)

	response := map[string]any{
		"status":    status,
		"service":   "resumepilot",
		"version":   s.Version,
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
		"providers": listing.Providers,
		"order":     listing.Order,
	}

	// Check certificate status if certificate reloading is active
	if certStatus := s.checkCertificateHealth(); certStatus != nil {
		response["certificates"] = certStatus
		if healthy, _ := certStatus["healthy"].(bool); !healthy {
			status = statusDegraded
			response["status"] = status
		}
	}

	code := http.StatusOK
	if status == statusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, response)
}

// providersStatus is unhealthy only when no provider is registered. Failed
// probes and open breakers degrade the status; the next request may still
// succeed on any registered provider.
func providersStatus(listing types.ProviderListing) string {
	healthy := 0
	for _, p := range listing.Providers {
		if p.Healthy {
			healthy++
		}
	}
	switch {
	case len(listing.Providers) == 0:
		return statusUnhealthy
	case healthy < len(listing.Providers):
		return statusDegraded
	default:
		return statusHealthy
	}
}

// checkCertificateHealth checks the health of TLS certificates
func (s *Server) checkCertificateHealth() map[string]any {
	if s.Certificates == nil {
		return nil
	}

	certStatus := make(map[string]any)

	timeToExpiry, err := s.Certificates.TimeToExpiry()
	if err != nil {
		certStatus["healthy"] = false
		certStatus["error"] = fmt.Sprintf("Failed to check certificate expiry: %v", err)
		return certStatus
	}

	// Consider certificates unhealthy if they expire within 24 hours
	criticalThreshold := 24 * time.Hour
	warningThreshold := 7 * 24 * time.Hour

	certStatus["time_to_expiry_hours"] = int(timeToExpiry.Hours())

	switch {
	case timeToExpiry <= 0:
		certStatus["healthy"] = false
		certStatus["status"] = "expired"
	case timeToExpiry <= criticalThreshold:
		certStatus["healthy"] = false
		certStatus["status"] = "critical"
	case timeToExpiry <= warningThreshold:
		certStatus["healthy"] = true
		certStatus["status"] = "warning"
	default:
		certStatus["healthy"] = true
		certStatus["status"] = "ok"
	}

	certStatus["auto_reload"] = s.Certificates.Status()
	return certStatus
}

// providersHandler lists providers in fallback order
func (s *Server) providersHandler(w http.ResponseWriter, r *http.Request) {
	probe := r.URL.Query().Get("probe") == "true"
	writeJSON(w, http.StatusOK, s.Service.Providers(r.Context(), probe))
}

// statsHandler provides server statistics including rate limiting info
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	listing := s.Service.Providers(r.Context(), false)
	providerStats := make(map[string]any, len(listing.Providers))
	for _, p := range listing.Providers {
		providerStats[p.Name] = p.Stats
	}

	response := map[string]any{
		"service": "resumepilot",
		"version": s.Version,
		"uptime":  time.Since(s.startedAt).Round(time.Second).String(),
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
			"api_auth_enabled":       s.authEnabled(),
		},
		"providers": providerStats,
	}

	// Add rate limiting stats if enabled
	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{
			"enabled": false,
		}
	}

	// Add configuration info
	if s.RateLimit != nil {
		response["rate_limit_config"] = map[string]any{
			"enabled":          s.RateLimit.Enabled,
			"requests_per_min": s.RateLimit.RequestsPerMin,
			"burst_capacity":   s.RateLimit.BurstCapacity,
			"by_ip":            s.RateLimit.ByIP,
			"by_api_key":       s.RateLimit.ByAPIKey,
		}
	}

	if s.PromptWatcher != nil {
		response["prompt_reload"] = map[string]any{
			"running": s.PromptWatcher.IsRunning(),
			"files":   s.PromptWatcher.Files(),
		}
	}

	writeJSON(w, http.StatusOK, response)
}

// parseJSONRequest parses JSON request body into the provided struct
func parseJSONRequest(r *http.Request, v any) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return fmt.Errorf("content-type must be application/json")
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return fmt.Errorf("request body too large (limit is %d bytes)", maxBytesErr.Limit)
		}
		return fmt.Errorf("failed to read request body: %w", err)
	}
	defer func() { _ = r.Body.Close() }()

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}

	return nil
}

// writeErrorResponse writes a standardized error response
func writeErrorResponse(w http.ResponseWriter, error, message string, statusCode int) {
	writeJSON(w, statusCode, ErrorResponse{
		Error:     error,
		Message:   message,
		RequestID: w.Header().Get(requestIDHeader),
	})
}

// writeJSON writes v as the JSON response body
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	// Headers are already sent, so an encode error cannot be reported
	_ = json.NewEncoder(w).Encode(v)
}
