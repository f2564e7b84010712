package domain

import "time"

// SimulationRun completed simulation as recorded in the run journal.
type SimulationRun struct {
	ID        string           `json:"id"`
	Timestamp time.Time        `json:"ts"`
	Pair      string           `json:"pair"`
	Interval  string           `json:"interval"`
	Plan      ContributionPlan `json:"plan"`
	Summary   Summary          `json:"summary"`
	Rows      []SimulationRow  `json:"rows,omitempty"`
}

// SimulationRunRecord bundles a run with its journal index.
type SimulationRunRecord struct {
	Index uint64
	Run   SimulationRun
}
