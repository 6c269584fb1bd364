package llm

import (
	"context"
	"errors"
	"net"
	"net/http"

	"resumepilot/internal/llm/transport"

	"github.com/sony/gobreaker/v2"
	"google.golang.org/api/googleapi"
)

// IsTransient reports whether err looks like a temporary provider condition
// (rate limiting, overload, network trouble, an open breaker). It only feeds
// logs and metrics; the generator never retries.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var statusErr *transport.StatusError
	if errors.As(err, &statusErr) {
		return transientStatus(statusErr.StatusCode)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return transientStatus(apiErr.Code)
	}

	return false
}

func transientStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	// Anthropic reports overload as 529.
	return code == 529
}
