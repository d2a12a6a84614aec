// Package server runs the store's HTTP/2 listeners: a cleartext (h2c)
// listener always, and a TLS (h2-only) listener when certificates are
// configured. Both share one handler and shut down together on signal.
package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/cuemby/kvstore/pkg/log"
)

// Frame and stream limits tuned for a request/response body protocol,
// not streaming: a single large PUT/GET body should consume most of a
// stream's flow-control window without forcing many small frames.
const (
	maxFrameSize            = 256 * 1024
	maxConcurrentStreams    = 500
	initialStreamWindowSize = 1024 * 1024
	maxSendBufSize          = 2 * 1024 * 1024
)

// shutdownDrainTimeout bounds how long each listener's Shutdown call
// may block waiting for in-flight requests to finish.
const shutdownDrainTimeout = 5 * time.Second

// Flusher is implemented by the store so Run can force data to disk
// before the process exits.
type Flusher interface {
	Flush() error
}

// Zeroer is implemented by the auth checker so Run can wipe the bearer
// token from memory once no more requests will be served.
type Zeroer interface {
	Zero()
}

// Config describes where Server should listen and what it should do
// at shutdown.
type Config struct {
	BindAddr string
	Port     int
	SSLPort  int
	SSLCert  string
	SSLKey   string

	// Store and Auth are flushed/zeroed, respectively, after every
	// listener has drained. Either may be nil.
	Store Flusher
	Auth  Zeroer
}

// Server owns the cleartext and (optional) TLS listeners, stopping
// both together on SIGINT/SIGTERM.
type Server struct {
	handler http.Handler
	cfg     Config
}

// New returns a Server that dispatches every request to handler.
func New(handler http.Handler, cfg Config) *Server {
	return &Server{handler: handler, cfg: cfg}
}

func newH2Server() *http2.Server {
	return &http2.Server{
		MaxReadFrameSize:             maxFrameSize,
		MaxConcurrentStreams:         maxConcurrentStreams,
		MaxUploadBufferPerStream:     initialStreamWindowSize,
		MaxUploadBufferPerConnection: maxSendBufSize,
	}
}

// Run starts every configured listener and blocks until it receives
// SIGINT/SIGTERM or a listener fails, then drains each listener within
// shutdownDrainTimeout, flushes the store, and zeroes the auth token
// before returning.
func (s *Server) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var servers []*http.Server
	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	h2s := newH2Server()
	cleartext := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.cfg.BindAddr, s.cfg.Port),
		Handler: h2c.NewHandler(s.handler, h2s),
	}
	servers = append(servers, cleartext)

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info(fmt.Sprintf("HTTP/2 (h2c) server listening on %s", cleartext.Addr))
		if err := cleartext.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("h2c server: %w", err)
		}
	}()

	if s.cfg.SSLCert != "" && s.cfg.SSLKey != "" {
		tlsConfig, err := loadTLSConfig(s.cfg.SSLCert, s.cfg.SSLKey)
		if err != nil {
			return err
		}
		tlsServer := &http.Server{
			Addr:      fmt.Sprintf("%s:%d", s.cfg.BindAddr, s.cfg.SSLPort),
			Handler:   s.handler,
			TLSConfig: tlsConfig,
		}
		if err := http2.ConfigureServer(tlsServer, h2s); err != nil {
			return fmt.Errorf("configure TLS server for http2: %w", err)
		}
		servers = append(servers, tlsServer)

		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Info(fmt.Sprintf("HTTPS (h2) server listening on %s", tlsServer.Addr))
			if err := tlsServer.ListenAndServeTLS("", ""); err != nil && err != http.ErrServerClosed {
				errCh <- fmt.Errorf("h2 server: %w", err)
			}
		}()
	} else {
		log.Info("TLS disabled, serving h2c only")
	}

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, draining connections")
	case err := <-errCh:
		log.Errorf("listener failed", err)
	}

	for _, srv := range servers {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownDrainTimeout)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("listener shutdown error", err)
		}
		cancel()
	}
	wg.Wait()

	if s.cfg.Store != nil {
		if err := s.cfg.Store.Flush(); err != nil {
			log.Errorf("store flush on shutdown failed", err)
		} else {
			log.Info("store flushed, shutdown complete")
		}
	}
	if s.cfg.Auth != nil {
		s.cfg.Auth.Zero()
	}

	return nil
}

// loadTLSConfig loads a certificate/key pair and restricts negotiation
// to h2, since this listener is only ever reached over HTTP/2.
func loadTLSConfig(certPath, keyPath string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, fmt.Errorf("load TLS certificate: %w", err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS13,
		NextProtos:   []string{"h2"},
	}, nil
}
