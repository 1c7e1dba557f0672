package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/innovinitylabs/onchain-rug-sub004/internal/core/domain"
)

// RunRepo persists batch refresh run summaries.
type RunRepo struct {
	db *DB
}

// NewRunRepo creates a new run-history repository.
func NewRunRepo(db *DB) *RunRepo {
	return &RunRepo{db: db}
}

type runRow struct {
	RunID       string    `db:"run_id"`
	ChainID     uint64    `db:"chain_id"`
	Contract    string    `db:"contract"`
	WindowStart uint64    `db:"window_start"`
	WindowEnd   uint64    `db:"window_end"`
	TotalSupply uint64    `db:"total_supply"`
	Processed   int       `db:"processed"`
	Succeeded   int       `db:"succeeded"`
	Failed      int       `db:"failed"`
	NextStart   uint64    `db:"next_start"`
	NextEnd     uint64    `db:"next_end"`
	Skipped     bool      `db:"skipped"`
	StartedAt   time.Time `db:"started_at"`
	FinishedAt  time.Time `db:"finished_at"`
}

// Save inserts one run summary.
func (r *RunRepo) Save(ctx context.Context, s *domain.RunSummary) error {
	const q = `
		INSERT INTO refresh_runs (
			run_id, chain_id, contract, window_start, window_end, total_supply,
			processed, succeeded, failed, next_start, next_end, skipped,
			started_at, finished_at
		) VALUES (
			:run_id, :chain_id, :contract, :window_start, :window_end, :total_supply,
			:processed, :succeeded, :failed, :next_start, :next_end, :skipped,
			:started_at, :finished_at
		)`

	_, err := r.db.NamedExecContext(ctx, q, runRow{
		RunID:       s.RunID,
		ChainID:     s.Contract.ChainID,
		Contract:    s.Contract.Address,
		WindowStart: s.WindowStart,
		WindowEnd:   s.WindowEnd,
		TotalSupply: s.TotalSupply,
		Processed:   s.Processed,
		Succeeded:   s.Succeeded,
		Failed:      s.Failed,
		NextStart:   s.NextStart,
		NextEnd:     s.NextEnd,
		Skipped:     s.Skipped,
		StartedAt:   s.StartedAt,
		FinishedAt:  s.FinishedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to save run summary: %w", err)
	}
	return nil
}

// Recent returns the latest run summaries for a contract, newest first.
func (r *RunRepo) Recent(ctx context.Context, ct domain.ContractRef, limit int) ([]domain.RunSummary, error) {
	const q = `
		SELECT run_id, chain_id, contract, window_start, window_end, total_supply,
		       processed, succeeded, failed, next_start, next_end, skipped,
		       started_at, finished_at
		FROM refresh_runs
		WHERE chain_id = $1 AND contract = $2
		ORDER BY started_at DESC
		LIMIT $3`

	var rows []runRow
	if err := r.db.SelectContext(ctx, &rows, q, ct.ChainID, ct.Address, limit); err != nil {
		return nil, fmt.Errorf("failed to load run summaries: %w", err)
	}

	out := make([]domain.RunSummary, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.RunSummary{
			RunID:       row.RunID,
			Contract:    domain.ContractRef{ChainID: row.ChainID, Address: row.Contract},
			WindowStart: row.WindowStart,
			WindowEnd:   row.WindowEnd,
			TotalSupply: row.TotalSupply,
			Processed:   row.Processed,
			Succeeded:   row.Succeeded,
			Failed:      row.Failed,
			NextStart:   row.NextStart,
			NextEnd:     row.NextEnd,
			Skipped:     row.Skipped,
			StartedAt:   row.StartedAt,
			FinishedAt:  row.FinishedAt,
		})
	}
	return out, nil
}
