package sweeper

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"

	"github.com/stokvelhub/pool-ledger/internal/adapter"
	"github.com/stokvelhub/pool-ledger/internal/auditstore"
	"github.com/stokvelhub/pool-ledger/internal/domain"
	"github.com/stokvelhub/pool-ledger/internal/eventstore"
	"github.com/stokvelhub/pool-ledger/internal/logger"
	"github.com/stokvelhub/pool-ledger/internal/messaging"
	"github.com/stokvelhub/pool-ledger/internal/verify"
)

// IntegritySweeperConfig holds configuration for the integrity sweeper
type IntegritySweeperConfig struct {
	WorkerPoolSize int           // Concurrent partition verifications
	QueueSize      int           // Pending verifications per cycle
	SweepInterval  time.Duration // Time between sweep cycles
}

// integritySweeper replays every pool chain plus the global audit chain
// on a fixed interval and raises alerts for proven violations. It only
// ever reads; a violation is reported, never repaired.
type integritySweeper struct {
	config    *IntegritySweeperConfig
	events    *eventstore.Store
	audits    *auditstore.Store
	verifier  *verify.Verifier
	publisher messaging.Publisher
	clock     adapter.Clock
	running   atomic.Bool
	stopChan  chan struct{}
	stoppedCh chan struct{}
}

// NewIntegritySweeper creates a new integrity sweeper
func NewIntegritySweeper(
	config *IntegritySweeperConfig,
	events *eventstore.Store,
	audits *auditstore.Store,
	verifier *verify.Verifier,
	publisher messaging.Publisher,
	clock adapter.Clock,
) Sweeper {
	return &integritySweeper{
		config:    config,
		events:    events,
		audits:    audits,
		verifier:  verifier,
		publisher: publisher,
		clock:     clock,
		stopChan:  make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Start begins the sweeper's main loop
func (s *integritySweeper) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("sweeper already running")
	}
	defer func() {
		s.running.Store(false)
		close(s.stoppedCh)
	}()

	logger.Info("Starting integrity sweeper",
		zap.Int("worker_pool_size", s.config.WorkerPoolSize),
		zap.Duration("sweep_interval", s.config.SweepInterval),
	)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Integrity sweeper stopping due to context cancellation", zap.Error(ctx.Err()))
			return nil
		case <-s.stopChan:
			logger.Info("Integrity sweeper stop requested")
			return nil
		default:
			if err := s.runSweepCycle(ctx); err != nil {
				if !errors.Is(err, context.Canceled) {
					logger.Error(err)
				}
			}
			if !s.sleep(ctx, s.config.SweepInterval) {
				return nil
			}
		}
	}
}

// Stop gracefully stops the sweeper with timeout support
func (s *integritySweeper) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil // Already stopped
	}

	logger.Info("Stopping integrity sweeper")
	close(s.stopChan)

	select {
	case <-s.stoppedCh:
		logger.Info("Integrity sweeper stopped gracefully")
		return nil
	case <-ctx.Done():
		logger.Warn("Integrity sweeper stop interrupted by context timeout")
		return ctx.Err()
	}
}

// runSweepCycle verifies every partition once
func (s *integritySweeper) runSweepCycle(ctx context.Context) error {
	startTime := s.clock.Now()
	logger.Info("Starting sweep cycle")

	poolIDs, err := s.events.PoolIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list partitions: %w", err)
	}

	var validated, violated, failed atomic.Int32

	// Fresh pool per cycle because StopAndWait is terminal in pond v2
	pool := pond.NewPool(
		s.config.WorkerPoolSize,
		pond.WithQueueSize(s.config.QueueSize),
		pond.WithContext(ctx),
	)

	for _, poolID := range poolIDs {
		pool.Submit(func() {
			s.verifyPartition(ctx, poolID, &validated, &violated, &failed)
		})
	}
	pool.Submit(func() {
		s.verifyAuditChain(ctx, &validated, &violated, &failed)
	})

	pool.StopAndWait()

	logger.Info("Sweep cycle complete",
		zap.Int("partitions", len(poolIDs)+1),
		zap.Int32("validated", validated.Load()),
		zap.Int32("violations", violated.Load()),
		zap.Int32("failures", failed.Load()),
		zap.Duration("duration", s.clock.Since(startTime)),
	)

	return nil
}

func (s *integritySweeper) verifyPartition(ctx context.Context, poolID string, validated, violated, failed *atomic.Int32) {
	records, err := s.events.Read(ctx, poolID, nil, nil)
	if err != nil {
		failed.Add(1)
		logger.Error(err, zap.String("pool_id", poolID))
		return
	}

	report := s.verifier.Events(records)
	s.tally(ctx, poolID, report, validated, violated, failed)
}

func (s *integritySweeper) verifyAuditChain(ctx context.Context, validated, violated, failed *atomic.Int32) {
	records, err := s.audits.Read(ctx)
	if err != nil {
		failed.Add(1)
		logger.Error(err)
		return
	}

	report := s.verifier.Audits(records)
	s.tally(ctx, domain.SystemPartition, report, validated, violated, failed)
}

func (s *integritySweeper) tally(ctx context.Context, partition string, report verify.Report, validated, violated, failed *atomic.Int32) {
	switch report.Status {
	case verify.StatusValidated, verify.StatusNotPerformed:
		validated.Add(1)
	case verify.StatusViolation:
		violated.Add(1)
		logger.Error(domain.ErrIntegrityViolation,
			zap.String("partition", partition),
			zap.String("offending_id", report.OffendingID),
			zap.String("expected", report.Expected),
			zap.String("computed", report.Computed),
		)
		if err := s.publisher.PublishAlert(ctx, partition, &report); err != nil {
			logger.Warn("integrity alert publish failed",
				zap.String("partition", partition), zap.Error(err))
		}
	case verify.StatusFailed:
		failed.Add(1)
		logger.Error(domain.ErrVerificationFailed,
			zap.String("partition", partition),
			zap.String("detail", report.Detail),
		)
	}
}

// sleep waits for the given duration, returning false if interrupted
func (s *integritySweeper) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	case <-s.stopChan:
		return false
	}
}
