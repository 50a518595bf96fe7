// Package cleanup enforces incident retention so the in-memory store
// cannot grow without bound.
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/codeready-toolchain/inquest/pkg/config"
	"github.com/codeready-toolchain/inquest/pkg/store"
)

// Service periodically prunes terminal incidents past their retention age
// and trims the store to its record cap, oldest first. Active incidents
// are never touched.
type Service struct {
	config    *config.RetentionConfig
	incidents *store.Store

	cancel context.CancelFunc
	done   chan struct{}
	logger *slog.Logger
}

// NewService creates a new cleanup service.
func NewService(cfg *config.RetentionConfig, incidents *store.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		config:    cfg,
		incidents: incidents,
		logger:    logger,
	}
}

// Start launches the background cleanup loop.
// Calling Start on an already-running service is a no-op.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	s.logger.Info("Cleanup service started",
		"max_age", s.config.MaxAge,
		"max_records", s.config.MaxRecords,
		"interval", s.config.SweepInterval)
}

// Stop signals the cleanup loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil
	s.logger.Info("Cleanup service stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.sweep()

	ticker := time.NewTicker(s.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Service) sweep() {
	removed := s.incidents.Prune(s.config.MaxAge, s.config.MaxRecords)
	if removed > 0 {
		s.logger.Info("Retention: pruned incidents", "count", removed)
	}
}
