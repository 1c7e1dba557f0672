package worker

import (
	"context"
	"log/slog"
	"time"
)

// Pruner periodically sweeps expired state out of in-process stores. Today
// that is the in-memory rate limiter's identity windows.
type Pruner struct {
	interval time.Duration
	targets  []Prunable
	log      *slog.Logger
}

// Prunable is anything holding expirable in-memory state.
type Prunable interface {
	Prune() int
}

// NewPruner creates a pruner sweeping the given targets.
func NewPruner(interval time.Duration, targets ...Prunable) *Pruner {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Pruner{
		interval: interval,
		targets:  targets,
		log:      slog.Default().With("component", "pruner"),
	}
}

// Start runs the sweep loop until the context is cancelled.
func (p *Pruner) Start(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sweep()
		}
	}
}

func (p *Pruner) sweep() {
	total := 0
	for _, t := range p.targets {
		total += t.Prune()
	}
	if total > 0 {
		p.log.Debug("pruned expired entries", "count", total)
	}
}
