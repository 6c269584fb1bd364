package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"resumepilot/internal/ai"
	"resumepilot/internal/llm"
	"resumepilot/internal/llm/providers"
	"resumepilot/internal/observability"
	"resumepilot/internal/watch"
)

// Start starts the HTTP server with all configured components and blocks
// until ctx is cancelled or the listener fails
func (s *Server) Start(ctx context.Context) error {
	om, err := s.initializeObservability()
	if err != nil {
		return err
	}
	defer s.shutdownObservability(om)
	s.Observability = om

	if s.Service == nil {
		s.Service = s.buildService()
	}

	if err := s.startPromptWatcher(); err != nil {
		return err
	}

	httpServer := s.setupHTTPServer()

	if err := s.configureTLS(httpServer); err != nil {
		return err
	}

	s.displayServerInfo(ctx)

	return s.startWithGracefulShutdown(ctx, httpServer)
}

// initializeObservability sets up observability components
func (s *Server) initializeObservability() (*observability.ObservabilityManager, error) {
	obsConfig := observability.GetObservabilityConfig(s.AppConfig, s.Version)

	om, err := observability.NewObservabilityManager(obsConfig, observability.WithLogger(s.Logger))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}

	return om, nil
}

// buildService wires the provider chain to the task service with metrics
func (s *Server) buildService() *ai.Service {
	generator := providers.NewGenerator(s.AppConfig, s.Logger, llm.WithRecorder(s.Observability))
	return ai.NewService(s.AppConfig, generator, s.Logger, ai.WithTaskRecorder(s.Observability))
}

// startPromptWatcher reloads prompt files on change when enabled
func (s *Server) startPromptWatcher() error {
	store := s.AppConfig.Prompts()
	if !s.AppConfig.App.WatchPrompts || store.Len() == 0 {
		return nil
	}

	s.PromptWatcher = watch.New("prompts", store.Files(), time.Second, func() {
		err := store.Reload()
		s.Observability.RecordReload(context.Background(), "prompts", err == nil)
		if err != nil {
			s.Logger.LogError(err, "Failed to reload prompt files; keeping previous prompts")
			return
		}
		s.Logger.Info("Prompt files reloaded", "count", store.Len())
	}, s.Logger)

	if err := s.PromptWatcher.Start(); err != nil {
		return fmt.Errorf("failed to watch prompt files: %w", err)
	}
	return nil
}

// shutdownObservability handles observability cleanup
func (s *Server) shutdownObservability(om *observability.ObservabilityManager) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := om.Shutdown(ctx); err != nil {
		s.Logger.LogError(err, "Failed to shutdown observability")
	}
}

// setupHTTPServer creates and configures the HTTP server
func (s *Server) setupHTTPServer() *http.Server {
	addr := fmt.Sprintf("%s:%s", s.Host, s.Port)

	return &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.ReadTimeout,
		WriteTimeout:      s.WriteTimeout,
		IdleTimeout:       s.IdleTimeout,
	}
}

// startWithGracefulShutdown starts the HTTP server and handles graceful shutdown
func (s *Server) startWithGracefulShutdown(ctx context.Context, server *http.Server) error {
	// Channel to receive server errors
	serverErrors := make(chan error, 1)

	go func() {
		s.Logger.Info("Starting HTTP server",
			"address", server.Addr,
			"tls_enabled", server.TLSConfig != nil)

		var err error
		if server.TLSConfig != nil {
			// Certificates come from TLSConfig.GetCertificate
			err = server.ListenAndServeTLS("", "")
		} else {
			err = server.ListenAndServe()
		}

		if err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	// Wait for either cancellation or server error
	select {
	case err := <-serverErrors:
		s.stopBackground()
		return fmt.Errorf("server failed to start: %w", err)
	case <-ctx.Done():
		s.Logger.Info("Received shutdown signal, starting graceful shutdown")
		return s.performGracefulShutdown(server)
	}
}

// performGracefulShutdown handles the graceful shutdown process
func (s *Server) performGracefulShutdown(server *http.Server) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.stopBackground()

	s.Logger.Info("Shutting down HTTP server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.Logger.LogError(err, "Failed to shutdown server gracefully, forcing close")
		return server.Close()
	}

	s.Logger.Info("Server shutdown completed successfully")
	return nil
}

// stopBackground stops watchers and the rate limiter cleanup loop
func (s *Server) stopBackground() {
	if s.Certificates != nil {
		if err := s.Certificates.Stop(); err != nil {
			s.Logger.LogError(err, "Failed to stop certificate watcher")
		}
	}
	if s.PromptWatcher != nil {
		if err := s.PromptWatcher.Stop(); err != nil {
			s.Logger.LogError(err, "Failed to stop prompt watcher")
		}
	}
	if s.RateLimiter != nil {
		s.RateLimiter.Close()
		s.Logger.Info("Rate limiter cleaned up")
	}
}
