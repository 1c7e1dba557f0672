package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/innovinitylabs/onchain-rug-sub004/internal/core/cursor"
	"github.com/innovinitylabs/onchain-rug-sub004/internal/core/domain"
	"github.com/innovinitylabs/onchain-rug-sub004/internal/metrics"
)

// SupplyReader reads the live mint count.
type SupplyReader interface {
	TotalSupply(ctx context.Context) (uint64, error)
}

// Lease is the best-effort single-runner lock around a batch run.
type Lease interface {
	AcquireLease(ctx context.Context, ct domain.ContractRef) (bool, error)
	ReleaseLease(ctx context.Context, ct domain.ContractRef) error
}

// RunHistory records completed run summaries. Persistence failures are logged
// and swallowed; history is observability, not control flow.
type RunHistory interface {
	Save(ctx context.Context, s *domain.RunSummary) error
}

// Scheduler walks the whole collection in cursor windows, one window per
// invocation. Externally triggered (cron hitting the batch endpoint), it does
// not tick on its own.
type Scheduler struct {
	contract    domain.ContractRef
	cursor      *cursor.Manager
	refresher   *Refresher
	supply      SupplyReader
	lease       Lease
	history     RunHistory
	concurrency int
	log         *slog.Logger
}

// NewScheduler creates a batch refresh scheduler.
func NewScheduler(
	contract domain.ContractRef,
	cur *cursor.Manager,
	refresher *Refresher,
	supply SupplyReader,
	lease Lease,
	history RunHistory,
	concurrency int,
) *Scheduler {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Scheduler{
		contract:    contract,
		cursor:      cur,
		refresher:   refresher,
		supply:      supply,
		lease:       lease,
		history:     history,
		concurrency: concurrency,
		log:         slog.Default().With("component", "scheduler", "contract", contract.String()),
	}
}

// Run executes one batch window. Overlapping triggers are collapsed by the
// lease: the second caller gets a skipped summary, not an error. The cursor
// advances unconditionally; failed tokens wait for the next lap.
func (s *Scheduler) Run(ctx context.Context) (*domain.RunSummary, error) {
	summary := &domain.RunSummary{
		RunID:     uuid.New().String(),
		Contract:  s.contract,
		StartedAt: time.Now().UTC(),
	}

	acquired, err := s.lease.AcquireLease(ctx, s.contract)
	if err != nil {
		// A broken lease store degrades to unguarded runs rather than
		// stopping the re-scan entirely.
		s.log.Warn("lease unavailable, running unguarded", "error", err)
	} else if !acquired {
		summary.Skipped = true
		summary.FinishedAt = time.Now().UTC()
		metrics.BatchRunsTotal.WithLabelValues("skipped").Inc()
		s.log.Info("batch run already in progress, skipping", "run", summary.RunID)
		return summary, nil
	}
	if acquired {
		defer func() {
			if err := s.lease.ReleaseLease(ctx, s.contract); err != nil {
				s.log.Warn("failed to release lease", "error", err)
			}
		}()
	}

	totalSupply, err := s.supply.TotalSupply(ctx)
	if err != nil {
		metrics.BatchRunsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("read total supply: %w", err)
	}
	summary.TotalSupply = totalSupply

	window, err := s.cursor.NextWindow(ctx, totalSupply)
	if err != nil {
		metrics.BatchRunsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	if window.Empty {
		summary.FinishedAt = time.Now().UTC()
		metrics.BatchRunsTotal.WithLabelValues("completed").Inc()
		s.log.Info("no minted tokens, nothing to refresh", "run", summary.RunID)
		s.record(ctx, summary)
		return summary, nil
	}

	summary.WindowStart = window.Start
	summary.WindowEnd = window.End

	var succeeded, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for id := window.Start; id <= window.End; id++ {
		g.Go(func() error {
			if _, err := s.refresher.Refresh(gctx, id, SourceBatch); err != nil {
				failed.Add(1)
				s.log.Warn("batch refresh failed", "run", summary.RunID, "token", id, "error", err)
				return nil
			}
			succeeded.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	summary.Succeeded = int(succeeded.Load())
	summary.Failed = int(failed.Load())
	summary.Processed = summary.Succeeded + summary.Failed

	if err := s.cursor.Advance(ctx, window); err != nil {
		metrics.BatchRunsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	summary.NextStart = window.Next
	nextWindow, err := s.cursor.NextWindow(ctx, totalSupply)
	if err == nil && !nextWindow.Empty {
		summary.NextEnd = nextWindow.End
	}

	summary.FinishedAt = time.Now().UTC()
	metrics.BatchRunsTotal.WithLabelValues("completed").Inc()
	s.log.Info("batch run completed",
		"run", summary.RunID,
		"window_start", summary.WindowStart,
		"window_end", summary.WindowEnd,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"next", summary.NextStart,
	)

	s.record(ctx, summary)
	return summary, nil
}

func (s *Scheduler) record(ctx context.Context, summary *domain.RunSummary) {
	if s.history == nil {
		return
	}
	if err := s.history.Save(ctx, summary); err != nil {
		s.log.Warn("failed to persist run summary", "run", summary.RunID, "error", err)
	}
}
