package draft

import "context"

// RollupRow is one aggregate bucket of governance outcomes.
type RollupRow struct {
	ConfidenceBucket string `json:"confidence_bucket"`
	RiskCategory     string `json:"risk_category"`
	Allowed          bool   `json:"allowed"`
	Count            int64  `json:"count"`
}

// Store is the persistence interface for decision records.
type Store interface {
	Get(ctx context.Context, id string) (*Record, bool, error)
	Put(ctx context.Context, rec *Record) error
	// GovernanceRollup aggregates persisted governance verdicts by
	// confidence bucket, risk category, and outcome.
	GovernanceRollup(ctx context.Context) ([]RollupRow, error)
}
