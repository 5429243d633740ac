package events

import (
	"time"

	"github.com/Ramsey-B/thistle/pkg/models"
)

// EventType names a screening event
type EventType string

const (
	EventTypeDetectionCompleted EventType = "detection.completed"
	EventTypeOrderFlagged       EventType = "order.flagged"
)

// DetectionCompletedEvent is emitted after a group pass is committed.
type DetectionCompletedEvent struct {
	Summary models.DetectionSummary `json:"summary"`
}

// OrderFlaggedEvent is emitted for every order a pass flagged.
type OrderFlaggedEvent struct {
	OrderID      int64                `json:"order_id"`
	RiskLevel    models.RiskLevel     `json:"risk_level"`
	MatchInfo    string               `json:"match_info"`
	MatchDetails string               `json:"match_details"`
	Matches      []models.MatchResult `json:"matches"`
	CheckedAt    time.Time            `json:"checked_at"`
}
