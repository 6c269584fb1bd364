package server

import (
	"context"
	"fmt"
	"strings"
)

// displayServerInfo shows server configuration information
func (s *Server) displayServerInfo(ctx context.Context) {
	s.displayEndpoints()
	s.displayProviders(ctx)
	s.displayAuthInfo()
	s.displayRequestLimitInfo()
	s.displayRateLimitInfo()
}

// displayEndpoints shows available API endpoints
func (s *Server) displayEndpoints() {
	fmt.Println("Available endpoints:")
	fmt.Println("  GET  /health        - Health check (?probe=true checks each model)")
	fmt.Println("  GET  /stats         - Server statistics")
	fmt.Println("  GET  /providers     - Providers in fallback order (requires API key)")
	fmt.Println("  POST /generate      - Raw prompt (requires API key)")
	fmt.Println("  POST /bullets       - Rewrite resume bullets (requires API key)")
	fmt.Println("  POST /cover-letter  - Write a cover letter (requires API key)")
	fmt.Println("  POST /projects      - Suggest portfolio projects (requires API key)")
	fmt.Println("  POST /email         - Draft a job-search email (requires API key)")
	fmt.Println("  POST /bio           - Write a profile bio (requires API key)")
}

// displayProviders shows the fallback order
func (s *Server) displayProviders(ctx context.Context) {
	order := s.Service.Providers(ctx, false).Order
	if len(order) == 0 {
		fmt.Println("Providers: NONE configured, generation requests will fail with 503")
		return
	}
	fmt.Printf("Providers (fallback order): %s\n", strings.Join(order, " -> "))
}

// displayAuthInfo shows authentication configuration
func (s *Server) displayAuthInfo() {
	if s.authEnabled() {
		fmt.Printf("API authentication: ENABLED (%d keys configured)\n", len(s.keys))
		fmt.Println("Include 'X-API-Key: <your-key>' header in requests to generation endpoints")
	} else {
		fmt.Println("API authentication: DISABLED (no API keys configured)")
		fmt.Println("WARNING: API endpoints are publicly accessible!")
	}
}

// displayRequestLimitInfo shows request size limit configuration
func (s *Server) displayRequestLimitInfo() {
	if s.MaxRequestSize > 0 {
		fmt.Printf("Request size limit: %d bytes (%.1f MB)\n", s.MaxRequestSize, float64(s.MaxRequestSize)/(1024*1024))
	} else {
		fmt.Println("Request size limit: DISABLED")
		fmt.Println("WARNING: No request size limits configured!")
	}
}

// displayRateLimitInfo shows rate limiting configuration
func (s *Server) displayRateLimitInfo() {
	if s.RateLimit != nil && s.RateLimit.Enabled {
		fmt.Printf("Rate limiting: ENABLED (%d requests/min, burst: %d)\n",
			s.RateLimit.RequestsPerMin, s.RateLimit.BurstCapacity)
		if s.RateLimit.ByAPIKey {
			fmt.Println("  - Per API key rate limiting enabled")
		}
		if s.RateLimit.ByIP {
			fmt.Println("  - Per IP address rate limiting enabled")
		}
	} else {
		fmt.Println("Rate limiting: DISABLED")
		fmt.Println("WARNING: No rate limiting configured!")
	}
}
