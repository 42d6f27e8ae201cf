package bridge

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/muurk/rfxcom/internal/discovery"
	"github.com/muurk/rfxcom/internal/logging"
	"github.com/muurk/rfxcom/internal/metrics"
	"github.com/muurk/rfxcom/internal/protocol"
	"github.com/muurk/rfxcom/internal/transceiver"
)

const shutdownTimeout = 10 * time.Second

// Config holds the bridge configuration
type Config struct {
	Addr      string // Listen address (e.g., ":8080")
	CertPath  string // TLS certificate; TLS is off when empty
	KeyPath   string // TLS private key
	Advertise bool   // Register the bridge over mDNS
	Name      string // mDNS instance name
	Version   string // Reported by /healthz and in the mDNS TXT record
}

// ErrTransceiverClosed is returned by Start when the bridged connection ends
var ErrTransceiverClosed = errors.New("bridge: transceiver connection closed")

// Resolver maps a device alias to its id and unit
type Resolver func(target string) (id string, unit int, found bool)

// Option configures a Server
type Option func(*Server)

// WithMetrics serves reg on /metrics and counts bridge clients in m
func WithMetrics(reg *prometheus.Registry, m *metrics.DriverMetrics) Option {
	return func(s *Server) {
		s.registry = reg
		s.metrics = m
	}
}

// WithResolver lets /command requests name devices by alias
func WithResolver(r Resolver) Option {
	return func(s *Server) { s.resolve = r }
}

// Server exposes one transceiver over HTTP and websockets
type Server struct {
	config    Config
	tx        *transceiver.Transceiver
	hub       *Hub
	registry  *prometheus.Registry
	metrics   *metrics.DriverMetrics
	resolve   Resolver
	tlsConfig *tls.Config

	httpServer *http.Server
	listener   net.Listener
	mdns       *zeroconf.Server
	wg         sync.WaitGroup
}

// New creates a bridge for tx and subscribes it to tx's events
func New(config Config, tx *transceiver.Transceiver, opts ...Option) (*Server, error) {
	s := &Server{config: config, tx: tx}
	for _, opt := range opts {
		opt(s)
	}
	s.hub = NewHub(s.metrics)

	if config.CertPath != "" || config.KeyPath != "" {
		tlsConfig, err := NewTLSConfig(config.CertPath, config.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
		s.tlsConfig = tlsConfig
	}

	tx.OnEvent(func(evt protocol.Event) {
		s.hub.Broadcast(EventEnvelope(evt))
	})
	tx.OnDiagnostic(func(d transceiver.Diagnostic) {
		s.hub.Broadcast(DiagnosticEnvelope(d))
	})

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler returns the bridge routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/events", s.serveEvents)
	mux.HandleFunc("/command", s.serveCommand)
	mux.HandleFunc("/healthz", s.serveHealth)
	if s.registry != nil {
		mux.Handle("/metrics", metrics.Handler(s.registry))
	}
	return withLogging(mux)
}

// Hub returns the event fan-out
func (s *Server) Hub() *Hub {
	return s.hub
}

// Listen binds the listen address. Start calls it when needed.
func (s *Server) Listen() error {
	listener, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}
	if s.tlsConfig != nil {
		listener = tls.NewListener(listener, s.tlsConfig)
	}
	s.listener = listener
	return nil
}

// Addr returns the bound address, or nil before Listen
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Start serves until ctx is cancelled, SIGINT/SIGTERM arrives, the
// transceiver connection ends or the listener fails, then shuts down
// gracefully
func (s *Server) Start(ctx context.Context) error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	logging.Info("Starting rfxcom event bridge",
		zap.String("addr", s.listener.Addr().String()),
		zap.Any("tls_info", GetTLSInfo(s.tlsConfig)),
	)

	if s.config.Advertise {
		if err := s.advertise(); err != nil {
			// The bridge still works when addressed directly
			logging.Warn("mDNS advertisement failed", zap.Error(err))
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.httpServer.Serve(s.listener)
	}()

	var result error
	select {
	case <-sigChan:
		logging.Info("Shutdown signal received, stopping bridge...")
	case <-ctx.Done():
		logging.Info("Context cancelled, stopping bridge...")
	case <-s.tx.Done():
		logging.Warn("Transceiver connection ended, stopping bridge...")
		result = ErrTransceiverClosed
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return result
}

func (s *Server) advertise() error {
	port := 0
	if tcp, ok := s.listener.Addr().(*net.TCPAddr); ok {
		port = tcp.Port
	}

	server, err := discovery.Advertise(s.config.Name, port, map[string]string{
		"version": s.config.Version,
		"tls":     strconv.FormatBool(s.tlsConfig != nil),
	})
	if err != nil {
		return err
	}
	s.mdns = server

	logging.Info("Bridge advertised over mDNS",
		zap.String("instance", s.config.Name),
		zap.String("service", discovery.ServiceType),
		zap.Int("port", port),
	)
	return nil
}

// Shutdown gracefully shuts down the bridge
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down bridge...")

	if s.mdns != nil {
		s.mdns.Shutdown()
		s.mdns = nil
	}

	// Hijacked websocket connections are not tracked by http.Server
	s.hub.CloseAll()

	err := s.httpServer.Shutdown(ctx)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("All bridge connections closed gracefully")
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, forcing close")
	}

	logging.Sync()
	return err
}
