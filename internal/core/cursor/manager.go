package cursor

import (
	"context"
	"fmt"
	"time"

	"github.com/innovinitylabs/onchain-rug-sub004/internal/core/domain"
	"github.com/innovinitylabs/onchain-rug-sub004/internal/metrics"
)

// Repository is the persistence surface for the refresh offset.
// Implemented by the Redis client.
type Repository interface {
	GetCursor(ctx context.Context, ct domain.ContractRef) (uint64, error)
	SetCursor(ctx context.Context, ct domain.ContractRef, offset uint64) error
	DeleteCursor(ctx context.Context, ct domain.ContractRef) error
}

// Window is one batch scheduler slice: inclusive token id bounds.
type Window struct {
	Start uint64
	End   uint64
	// Next is the offset the cursor will hold after this window completes.
	// Zero means the scan wrapped back to the first token.
	Next uint64
	// Empty is true when the collection has no minted tokens yet.
	Empty bool
}

// Manager owns refresh cursor arithmetic. The cursor always advances after a
// run regardless of per-item failures; failed tokens are retried on the next
// full lap, not immediately.
type Manager struct {
	contract domain.ContractRef
	repo     Repository
	window   uint64
}

// NewManager creates a cursor manager for one contract with a fixed window size.
func NewManager(contract domain.ContractRef, repo Repository, windowSize uint64) *Manager {
	return &Manager{contract: contract, repo: repo, window: windowSize}
}

// Current returns the persisted cursor. A missing cursor reads as offset 0.
func (m *Manager) Current(ctx context.Context) (*domain.RefreshCursor, error) {
	offset, err := m.repo.GetCursor(ctx, m.contract)
	if err != nil {
		return nil, fmt.Errorf("load cursor: %w", err)
	}
	return &domain.RefreshCursor{
		Contract:   m.contract,
		Offset:     offset,
		WindowSize: m.window,
		UpdatedAt:  time.Now().UTC(),
	}, nil
}

// NextWindow computes the slice to process against the live total supply.
// A stale offset at or past the supply wraps to 0 before the window is cut,
// so a shrinking or re-deployed collection never produces an empty lap.
func (m *Manager) NextWindow(ctx context.Context, totalSupply uint64) (Window, error) {
	if totalSupply == 0 {
		return Window{Empty: true}, nil
	}

	offset, err := m.repo.GetCursor(ctx, m.contract)
	if err != nil {
		return Window{}, fmt.Errorf("load cursor: %w", err)
	}
	if offset >= totalSupply {
		offset = 0
	}

	end := offset + m.window - 1
	if end >= totalSupply {
		end = totalSupply - 1
	}

	next := end + 1
	if next >= totalSupply {
		next = 0
	}

	return Window{Start: offset, End: end, Next: next}, nil
}

// Advance persists the post-window offset. Called unconditionally after a run;
// per-item failures never hold the cursor back.
func (m *Manager) Advance(ctx context.Context, w Window) error {
	if err := m.repo.SetCursor(ctx, m.contract, w.Next); err != nil {
		return fmt.Errorf("advance cursor: %w", err)
	}
	metrics.BatchRunOffset.WithLabelValues(m.contract.String()).Set(float64(w.Next))
	return nil
}

// Reset removes the cursor so the next run starts from token 0.
func (m *Manager) Reset(ctx context.Context) error {
	if err := m.repo.DeleteCursor(ctx, m.contract); err != nil {
		return fmt.Errorf("reset cursor: %w", err)
	}
	metrics.BatchRunOffset.WithLabelValues(m.contract.String()).Set(0)
	return nil
}
