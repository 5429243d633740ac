// Package detection applies the match engine to batches of orders and
// persists the verdicts.
package detection

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"
	"golang.org/x/sync/errgroup"

	"github.com/Ramsey-B/thistle/pkg/matching"
	"github.com/Ramsey-B/thistle/pkg/models"
)

// maxDetailLines caps how many match explanations are stored on an order.
const maxDetailLines = 3

// Scanner scans one order view against a snapshot. *matching.Engine implements it.
type Scanner interface {
	ScanOrder(order models.OrderView, snapshot *matching.Snapshot) (models.ScanResult, error)
}

// OrderFailure records an order the detector could not scan.
type OrderFailure struct {
	OrderID int64  `json:"order_id"`
	Error   string `json:"error"`
}

// BatchReport is the result of one detector run. Outcomes hold only the
// orders that were scanned successfully, in input order.
type BatchReport struct {
	Summary  models.DetectionSummary   `json:"summary"`
	Outcomes []models.DetectionOutcome `json:"outcomes"`
	Failures []OrderFailure            `json:"failures,omitempty"`
}

// Flagged returns the outcomes that matched at least one entry.
func (r *BatchReport) Flagged() []models.DetectionOutcome {
	return ectolinq.Filter(r.Outcomes, func(o models.DetectionOutcome) bool {
		return o.IsBlacklisted
	})
}

// Detector runs a scanner over many orders with a bounded worker pool.
type Detector struct {
	scanner Scanner
	logger  ectologger.Logger
	workers int
	now     func() time.Time
}

func NewDetector(scanner Scanner, logger ectologger.Logger, workers int) *Detector {
	if workers < 1 {
		workers = 1
	}
	return &Detector{
		scanner: scanner,
		logger:  logger,
		workers: workers,
		now:     time.Now,
	}
}

// NeedsCheck reports whether an order is scanned in this pass.
func NeedsCheck(order models.Order, force bool) bool {
	return force || !order.Checked
}

type orderResult struct {
	outcome *models.DetectionOutcome
	failure *OrderFailure
}

// Run scans every order that needs it against the shared snapshot. A failing
// order is logged and counted but never aborts the batch; only a nil snapshot
// or a cancelled context is returned as an error.
func (d *Detector) Run(ctx context.Context, orders []models.Order, snapshot *matching.Snapshot, force bool) (*BatchReport, error) {
	if snapshot == nil {
		return nil, matching.ErrNilSnapshot
	}

	log := d.logger.WithContext(ctx).WithFields(map[string]any{
		"orders":        len(orders),
		"snapshot_size": snapshot.Len(),
		"force_recheck": force,
	})

	summary := models.DetectionSummary{
		ForceRecheck:  force,
		Total:         len(orders),
		RiskBreakdown: map[models.RiskLevel]int{},
		SnapshotSize:  snapshot.Len(),
		StartedAt:     d.now().UTC(),
	}

	results := make([]orderResult, len(orders))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)
	for i := range orders {
		if !NeedsCheck(orders[i], force) {
			continue
		}
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcome, err := d.scanOne(orders[i], snapshot)
			if err != nil {
				log.WithError(err).WithField("order_id", orders[i].ID).Error("failed to scan order")
				results[i].failure = &OrderFailure{OrderID: orders[i].ID, Error: err.Error()}
				return nil
			}
			results[i].outcome = &outcome
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("detection cancelled: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("detection cancelled: %w", err)
	}

	report := &BatchReport{Outcomes: make([]models.DetectionOutcome, 0, len(orders))}
	for i, res := range results {
		switch {
		case res.outcome != nil:
			summary.Checked++
			if res.outcome.IsBlacklisted {
				summary.NewlyMatched++
				summary.RiskBreakdown[res.outcome.RiskLevel]++
			} else {
				summary.Clean++
			}
			report.Outcomes = append(report.Outcomes, *res.outcome)
		case res.failure != nil:
			summary.Failed++
			report.Failures = append(report.Failures, *res.failure)
		case !NeedsCheck(orders[i], force):
			summary.Skipped++
		}
	}
	summary.CompletedAt = d.now().UTC()
	report.Summary = summary

	log.Infof("scanned %d orders: %d flagged, %d clean, %d skipped, %d failed",
		summary.Checked, summary.NewlyMatched, summary.Clean, summary.Skipped, summary.Failed)

	return report, nil
}

func (d *Detector) scanOne(order models.Order, snapshot *matching.Snapshot) (outcome models.DetectionOutcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while scanning order %d: %v", order.ID, r)
		}
	}()

	result, err := d.scanner.ScanOrder(order.View(), snapshot)
	if err != nil {
		return models.DetectionOutcome{}, err
	}
	return NewOutcome(order.ID, result, d.now().UTC()), nil
}

// NewOutcome converts a scan result into the fields stored on the order.
func NewOutcome(orderID int64, result models.ScanResult, checkedAt time.Time) models.DetectionOutcome {
	return models.DetectionOutcome{
		OrderID:       orderID,
		IsBlacklisted: result.IsBlacklisted,
		RiskLevel:     result.Risk,
		MatchInfo:     MatchInfo(result),
		MatchDetails:  MatchDetails(result.Matches),
		Matches:       result.Matches,
		CheckedAt:     checkedAt,
	}
}

// MatchInfo is the one-line summary stored on a scanned order.
func MatchInfo(result models.ScanResult) string {
	if !result.IsBlacklisted {
		return "no blacklist match"
	}
	return fmt.Sprintf("matched %d blacklist entries", len(result.Matches))
}

// MatchDetails joins the explanations of the strongest matches.
func MatchDetails(matches []models.MatchResult) string {
	if len(matches) > maxDetailLines {
		matches = matches[:maxDetailLines]
	}
	lines := ectolinq.Map(matches, func(m models.MatchResult) string {
		return fmt.Sprintf("%s: %s", m.MatchType, m.Detail)
	})
	return strings.Join(lines, "; ")
}
