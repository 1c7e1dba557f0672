package domain

import "time"

// RefreshCursor marks progress of the incremental full-collection re-scan.
// Offset is the next token id to process; it wraps to 0 once the window would
// reach or pass the live total supply.
type RefreshCursor struct {
	Contract   ContractRef
	Offset     uint64
	WindowSize uint64
	UpdatedAt  time.Time
}

// RunSummary is the outcome of one batch scheduler invocation. It is used for
// external monitoring only, never for control flow.
type RunSummary struct {
	RunID       string      `json:"runId"`
	Contract    ContractRef `json:"contract"`
	WindowStart uint64      `json:"windowStart"`
	WindowEnd   uint64      `json:"windowEnd"`
	TotalSupply uint64      `json:"totalSupply"`
	Processed   int         `json:"processed"`
	Succeeded   int         `json:"succeeded"`
	Failed      int         `json:"failed"`
	NextStart   uint64      `json:"nextStart"`
	NextEnd     uint64      `json:"nextEnd"`
	Skipped     bool        `json:"skipped,omitempty"`
	StartedAt   time.Time   `json:"startedAt"`
	FinishedAt  time.Time   `json:"finishedAt"`
}
