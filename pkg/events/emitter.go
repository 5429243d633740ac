// Package events publishes screening results for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/thistle/pkg/kafka"
	"github.com/Ramsey-B/thistle/pkg/metrics"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

// Publisher writes an envelope to the event stream. *kafka.Producer implements it.
type Publisher interface {
	Publish(ctx context.Context, envelope *kafka.Envelope) error
}

// Emitter handles event emission for detection passes
type Emitter struct {
	publisher Publisher
	logger    ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(publisher Publisher, logger ectologger.Logger) *Emitter {
	return &Emitter{
		publisher: publisher,
		logger:    logger,
	}
}

// DetectionCompleted emits the summary of a committed group pass
func (e *Emitter) DetectionCompleted(ctx context.Context, summary models.DetectionSummary) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.DetectionCompleted")
	defer span.End()

	groupID := summary.GroupID
	return e.emit(ctx, EventTypeDetectionCompleted, &groupID, summary.RunID, DetectionCompletedEvent{Summary: summary})
}

// OrderFlagged emits one flagged order
func (e *Emitter) OrderFlagged(ctx context.Context, groupID *int64, runID string, outcome models.DetectionOutcome) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.OrderFlagged")
	defer span.End()

	return e.emit(ctx, EventTypeOrderFlagged, groupID, runID, OrderFlaggedEvent{
		OrderID:      outcome.OrderID,
		RiskLevel:    outcome.RiskLevel,
		MatchInfo:    outcome.MatchInfo,
		MatchDetails: outcome.MatchDetails,
		Matches:      outcome.Matches,
		CheckedAt:    outcome.CheckedAt,
	})
}

func (e *Emitter) emit(ctx context.Context, eventType EventType, groupID *int64, runID string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", eventType, err)
	}

	envelope := &kafka.Envelope{
		EventType: string(eventType),
		GroupID:   groupID,
		RunID:     runID,
		Data:      data,
	}

	if err := e.publisher.Publish(ctx, envelope); err != nil {
		metrics.EventsPublishedTotal.WithLabelValues(string(eventType), "failed").Inc()
		e.logger.WithContext(ctx).WithError(err).Errorf("Failed to emit %s event", eventType)
		return err
	}

	metrics.EventsPublishedTotal.WithLabelValues(string(eventType), "published").Inc()
	return nil
}
