// Package server runs the long-lived `weekcal serve` process: the feed endpoint,
// the metrics endpoint and periodic calendar sync.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/julianstephens/weekcal/internal/config"
	"github.com/julianstephens/weekcal/internal/feed"
	"github.com/julianstephens/weekcal/internal/logger"
	"github.com/julianstephens/weekcal/internal/metrics"
	"github.com/julianstephens/weekcal/internal/models"
)

const (
	shutdownTimeout = 5 * time.Second
	pruneSchedule   = "@daily"
)

// Syncer refreshes every enabled calendar source.
type Syncer interface {
	SyncAll(ctx context.Context) ([]models.SyncOutcome, error)
}

// Pruner removes expired feed tokens.
type Pruner interface {
	PruneExpired(ctx context.Context) (int, error)
}

type Server struct {
	cfg     config.ServerConfig
	syncer  Syncer
	pruner  Pruner
	feed    *feed.Handler
	metrics *metrics.Collector

	cron *cron.Cron
	// background tracks work started outside the cron so shutdown can wait for it.
	background sync.WaitGroup
}

func New(cfg config.ServerConfig, syncer Syncer, pruner Pruner, feedHandler *feed.Handler, m *metrics.Collector) *Server {
	return &Server{
		cfg:     cfg,
		syncer:  syncer,
		pruner:  pruner,
		feed:    feedHandler,
		metrics: m,
	}
}

// Handler returns the HTTP routes served by the process.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.feed.Register(mux)
	if s.cfg.Metrics.Enabled && s.metrics != nil {
		mux.Handle("GET "+s.cfg.Metrics.Path, s.metrics.Handler())
	}
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}

// Run listens on cfg.Listen until ctx ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Listen, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if err := s.startScheduler(ctx); err != nil {
		ln.Close()
		return err
	}
	defer s.stopScheduler()
	defer s.background.Wait()

	if s.cfg.Sync.OnStart {
		s.background.Add(1)
		go func() {
			defer s.background.Done()
			s.syncOnce(ctx)
		}()
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	logger.Info("Server listening", "addr", ln.Addr().String(), "base_url", s.cfg.BaseURL)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn("Server shutdown error", "error", err)
		return err
	}
	logger.Info("Server stopped")
	return nil
}

func (s *Server) startScheduler(ctx context.Context) error {
	s.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	if s.cfg.Sync.Schedule != "" {
		if _, err := s.cron.AddFunc(s.cfg.Sync.Schedule, func() { s.syncOnce(ctx) }); err != nil {
			return fmt.Errorf("invalid sync schedule %q: %w", s.cfg.Sync.Schedule, err)
		}
	}
	if s.pruner != nil {
		if _, err := s.cron.AddFunc(pruneSchedule, func() { s.pruneOnce(ctx) }); err != nil {
			return fmt.Errorf("failed to schedule token pruning: %w", err)
		}
	}
	s.cron.Start()
	return nil
}

func (s *Server) stopScheduler() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

func (s *Server) syncOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	outcomes, err := s.syncer.SyncAll(ctx)
	if err != nil {
		logger.Error("Scheduled sync failed", "error", err)
		return
	}
	failed := 0
	for _, o := range outcomes {
		if !o.Skipped && o.Status == models.FetchStatusError {
			failed++
		}
	}
	logger.Info("Scheduled sync finished", "sources", len(outcomes), "failed", failed)
}

func (s *Server) pruneOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.pruner.PruneExpired(ctx); err != nil {
		logger.Warn("Token pruning failed", "error", err)
	}
}
