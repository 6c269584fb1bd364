package server

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"sync"
	"time"

	"resumepilot/internal/errors"
	"resumepilot/internal/watch"
)

// CertReloader serves the current server certificate and swaps it when the
// certificate files change on disk.
type CertReloader struct {
	mu sync.RWMutex

	certFile string
	keyFile  string

	cert     *tls.Certificate
	notAfter time.Time

	watcher *watch.FileWatcher
	logger  *errors.Logger

	reloadCount    int64
	failureCount   int64
	lastReloadTime time.Time
	lastError      string
}

// NewCertReloader loads the key pair once; a load failure is returned
func NewCertReloader(certFile, keyFile string, logger *errors.Logger) (*CertReloader, error) {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	cr := &CertReloader{certFile: certFile, keyFile: keyFile, logger: logger}
	if err := cr.load(); err != nil {
		return nil, err
	}
	return cr, nil
}

func (cr *CertReloader) load() error {
	cert, err := tls.LoadX509KeyPair(cr.certFile, cr.keyFile)
	if err != nil {
		return fmt.Errorf("failed to load server cert/key from files: %w", err)
	}

	leaf := cert.Leaf
	if leaf == nil {
		leaf, err = x509.ParseCertificate(cert.Certificate[0])
		if err != nil {
			return fmt.Errorf("failed to parse server certificate: %w", err)
		}
	}

	cr.mu.Lock()
	cr.cert = &cert
	cr.notAfter = leaf.NotAfter
	cr.mu.Unlock()
	return nil
}

// Reload re-reads the key pair. On failure the previous certificate stays
// in use.
func (cr *CertReloader) Reload() error {
	err := cr.load()

	cr.mu.Lock()
	cr.reloadCount++
	cr.lastReloadTime = time.Now()
	if err != nil {
		cr.failureCount++
		cr.lastError = err.Error()
	} else {
		cr.lastError = ""
	}
	cr.mu.Unlock()

	return err
}

// GetCertificate implements tls.Config.GetCertificate
func (cr *CertReloader) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	cr.mu.RLock()
	defer cr.mu.RUnlock()
	if cr.cert == nil {
		return nil, fmt.Errorf("no server certificate loaded")
	}
	return cr.cert, nil
}

// TimeToExpiry returns how long the current certificate remains valid
func (cr *CertReloader) TimeToExpiry() (time.Duration, error) {
	cr.mu.RLock()
	defer cr.mu.RUnlock()
	if cr.cert == nil {
		return 0, fmt.Errorf("no server certificate loaded")
	}
	return time.Until(cr.notAfter), nil
}

// Watch reloads the certificate whenever its files change. onReload, if
// set, is told whether each reload worked.
func (cr *CertReloader) Watch(debounce time.Duration, onReload func(success bool)) error {
	cr.watcher = watch.New("tls", []string{cr.certFile, cr.keyFile}, debounce, func() {
		err := cr.Reload()
		if err != nil {
			cr.logger.LogError(err, "Failed to reload TLS certificates")
		} else {
			cr.logger.Info("TLS certificates reloaded successfully")
		}
		if onReload != nil {
			onReload(err == nil)
		}
	}, cr.logger)
	return cr.watcher.Start()
}

// Stop stops watching the certificate files
func (cr *CertReloader) Stop() error {
	if cr.watcher == nil {
		return nil
	}
	return cr.watcher.Stop()
}

// Status summarizes reload activity for the health endpoint
func (cr *CertReloader) Status() map[string]any {
	cr.mu.RLock()
	defer cr.mu.RUnlock()

	status := map[string]any{
		"enabled":       cr.watcher != nil,
		"reload_count":  cr.reloadCount,
		"failure_count": cr.failureCount,
	}
	if cr.watcher != nil {
		status["running"] = cr.watcher.IsRunning()
		status["watched_files"] = cr.watcher.Files()
	}
	if !cr.lastReloadTime.IsZero() {
		status["last_reload_time"] = cr.lastReloadTime
	}
	if cr.lastError != "" {
		status["last_error"] = cr.lastError
	}
	return status
}
