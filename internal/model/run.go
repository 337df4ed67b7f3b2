package model

import "time"

// RunResult summarizes one pipeline run.
type RunResult struct {
	RunID        string        `json:"run_id"`
	PostsFetched int           `json:"posts_fetched"`
	Extracted    int           `json:"extracted"`
	Duplicates   int           `json:"duplicates"`
	Addresses    int           `json:"addresses"`
	NewEvents    int           `json:"new_events"`
	Unresolved   []string      `json:"unresolved,omitempty"`
	TotalEvents  int           `json:"total_events"`
	FetchError   string        `json:"fetch_error,omitempty"`
	Persisted    bool          `json:"persisted"`
	Duration     time.Duration `json:"duration"`
}

// UnresolvedRate is the share of geocoded addresses that stayed unresolved.
func (r *RunResult) UnresolvedRate() float64 {
	if r.Addresses == 0 {
		return 0
	}
	return float64(len(r.Unresolved)) / float64(r.Addresses)
}
