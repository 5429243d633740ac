package models

import (
	"time"

	"github.com/Ramsey-B/thistle/pkg/database"
)

// Group is a batch of orders imported together, e.g. one shipment.
type Group struct {
	ID               int64                            `json:"id" db:"id"`
	Name             string                           `json:"name" db:"name"`
	Description      *string                          `json:"description,omitempty" db:"description"`
	FileName         *string                          `json:"file_name,omitempty" db:"file_name"`
	TotalOrders      int                              `json:"total_orders" db:"total_orders"`
	CheckedOrders    int                              `json:"checked_orders" db:"checked_orders"`
	BlacklistMatches int                              `json:"blacklist_matches" db:"blacklist_matches"`
	Status           string                           `json:"status" db:"status"`
	LastRun          database.JSONB[DetectionSummary] `json:"last_run" db:"last_run"`
	IsActive         bool                             `json:"is_active" db:"is_active"`
	CreatedAt        time.Time                        `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time                        `json:"updated_at" db:"updated_at"`
}

// GroupCounters are recomputed from the persisted orders after every pass.
type GroupCounters struct {
	TotalOrders      int `json:"total_orders" db:"total_orders"`
	CheckedOrders    int `json:"checked_orders" db:"checked_orders"`
	BlacklistMatches int `json:"blacklist_matches" db:"blacklist_matches"`
}

// DetectionSummary is the counter block of one detection pass.
type DetectionSummary struct {
	RunID               string            `json:"run_id"`
	GroupID             int64             `json:"group_id,omitempty"`
	ForceRecheck        bool              `json:"force_recheck"`
	Total               int               `json:"total"`
	Checked             int               `json:"checked"`
	Skipped             int               `json:"skipped"`
	Failed              int               `json:"failed"`
	NewlyMatched        int               `json:"newly_matched"`
	Clean               int               `json:"clean"`
	RiskBreakdown       map[RiskLevel]int `json:"risk_breakdown"`
	SnapshotSize        int               `json:"snapshot_size"`
	SnapshotFingerprint string            `json:"snapshot_fingerprint,omitempty"`
	StartedAt           time.Time         `json:"started_at"`
	CompletedAt         time.Time         `json:"completed_at"`
}

// DetectionStatistics summarises the screening state of a group.
type DetectionStatistics struct {
	GroupID          int64          `json:"group_id"`
	TotalOrders      int            `json:"total_orders"`
	CheckedOrders    int            `json:"checked_orders"`
	UncheckedOrders  int            `json:"unchecked_orders"`
	MatchedOrders    int            `json:"matched_orders"`
	MatchRate        float64        `json:"match_rate"`
	RiskDistribution map[string]int `json:"risk_distribution"`
}

// RiskCount is one row of a risk distribution query. Level is nil for unchecked orders.
type RiskCount struct {
	Level *string `db:"risk_level"`
	Count int     `db:"count"`
}
