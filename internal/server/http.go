package server

import (
	"time"

	"resumepilot/internal/ai"
	"resumepilot/internal/config"
	"resumepilot/internal/errors"
	"resumepilot/internal/observability"
	"resumepilot/internal/watch"
)

// ErrorResponse is the JSON body written for every failed request
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	Message   string `json:"message,omitempty"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// ServerConfig carries the listener, TLS and request-guard settings of a Server
type ServerConfig struct {
	Host           string
	Port           string
	Version        string
	TLSConfig      config.TLSConfig
	APIKeys        []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxRequestSize int64
	RateLimit      *config.RateLimitConfig
}

// Server exposes the generation tasks over HTTP
type Server struct {
	ServerConfig

	AppConfig *config.Config
	Logger    *errors.Logger

	// Service and Observability are built by Start unless set beforehand
	Service       *ai.Service
	Observability *observability.ObservabilityManager

	RateLimiter   *RateLimiter
	Certificates  *CertReloader
	PromptWatcher *watch.FileWatcher

	keys      map[string]struct{}
	startedAt time.Time
}

// ServerConfigFromConfig copies the server section of cfg
func ServerConfigFromConfig(cfg *config.Config, version string) ServerConfig {
	s := cfg.Server
	return ServerConfig{
		Host:           s.Host,
		Port:           s.Port,
		Version:        version,
		TLSConfig:      s.TLS,
		APIKeys:        s.APIKeys,
		ReadTimeout:    s.ReadTimeout,
		WriteTimeout:   s.WriteTimeout,
		IdleTimeout:    s.IdleTimeout,
		MaxRequestSize: s.MaxRequestSize,
		RateLimit:      &cfg.Server.RateLimit,
	}
}

// NewServer returns a Server that is ready for Handler or Start
func NewServer(appCfg *config.Config, cfg ServerConfig, logger *errors.Logger) *Server {
	if logger == nil {
		logger = errors.NewNopLogger()
	}

	keys := make(map[string]struct{}, len(cfg.APIKeys))
	for _, k := range cfg.APIKeys {
		if k != "" {
			keys[k] = struct{}{}
		}
	}

	s := &Server{
		ServerConfig: cfg,
		AppConfig:    appCfg,
		Logger:       logger,
		keys:         keys,
		startedAt:    time.Now(),
	}
	if rl := cfg.RateLimit; rl != nil && rl.Enabled {
		s.RateLimiter = NewRateLimiter(rl.RequestsPerMin, rl.BurstCapacity, logger)
	}
	return s
}

// authEnabled reports whether requests must carry an API key
func (s *Server) authEnabled() bool {
	return len(s.keys) > 0
}

func (s *Server) validKey(key string) bool {
	_, ok := s.keys[key]
	return ok
}
