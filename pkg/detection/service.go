package detection

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	appcontext "github.com/Ramsey-B/thistle/pkg/context"
	"github.com/Ramsey-B/thistle/pkg/database"
	"github.com/Ramsey-B/thistle/pkg/fingerprint"
	"github.com/Ramsey-B/thistle/pkg/matching"
	"github.com/Ramsey-B/thistle/pkg/metrics"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

// BlacklistStore loads the active registry.
type BlacklistStore interface {
	ListActive(ctx context.Context) ([]models.BlacklistEntry, error)
}

// OrderStore reads orders and writes scan verdicts.
type OrderStore interface {
	Get(ctx context.Context, id int64) (*models.Order, error)
	ListByGroup(ctx context.Context, groupID int64) ([]models.Order, error)
	SaveOutcomes(ctx context.Context, outcomes []models.DetectionOutcome) error
	Counters(ctx context.Context, groupID int64) (models.GroupCounters, error)
	ListResults(ctx context.Context, groupID int64, filter models.ResultFilter, page database.Page) ([]models.Order, int, error)
	RiskDistribution(ctx context.Context, groupID int64) ([]models.RiskCount, error)
}

// GroupStore reads groups and stores their recomputed counters.
type GroupStore interface {
	Get(ctx context.Context, id int64) (*models.Group, error)
	UpdateCounters(ctx context.Context, groupID int64, counters models.GroupCounters, lastRun *models.DetectionSummary) error
}

// TxManager begins, or joins, the transaction carried by ctx.
type TxManager interface {
	GetTx(ctx context.Context, opts *sql.TxOptions) (context.Context, database.Tx, error)
}

// Releaser releases a held lock.
type Releaser interface {
	Release(ctx context.Context) error
}

// Locker guards a group against concurrent passes.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Releaser, error)
}

// ErrGroupLocked is returned by a Locker when another pass holds the group.
var ErrGroupLocked = errors.New("group is locked by another detection pass")

// EventPublisher announces detection results.
type EventPublisher interface {
	DetectionCompleted(ctx context.Context, summary models.DetectionSummary) error
	OrderFlagged(ctx context.Context, groupID *int64, runID string, outcome models.DetectionOutcome) error
}

// MatchProjector records positive matches outside the relational store.
type MatchProjector interface {
	ProjectMatches(ctx context.Context, groupID *int64, outcomes []models.DetectionOutcome) error
}

// Dependencies wires a Service. Locker, Events and Graph are optional.
type Dependencies struct {
	Logger    ectologger.Logger
	Engine    *matching.Engine
	Blacklist BlacklistStore
	Orders    OrderStore
	Groups    GroupStore
	Tx        TxManager
	Locker    Locker
	Events    EventPublisher
	Graph     MatchProjector
	Workers   int
	LockTTL   time.Duration
}

// Service runs detection passes and answers result queries.
type Service struct {
	logger    ectologger.Logger
	engine    *matching.Engine
	detector  *Detector
	blacklist BlacklistStore
	orders    OrderStore
	groups    GroupStore
	tx        TxManager
	locker    Locker
	events    EventPublisher
	graph     MatchProjector
	lockTTL   time.Duration
}

func NewService(deps Dependencies) *Service {
	lockTTL := deps.LockTTL
	if lockTTL <= 0 {
		lockTTL = 5 * time.Minute
	}
	return &Service{
		logger:    deps.Logger,
		engine:    deps.Engine,
		detector:  NewDetector(deps.Engine, deps.Logger, deps.Workers),
		blacklist: deps.Blacklist,
		orders:    deps.Orders,
		groups:    deps.Groups,
		tx:        deps.Tx,
		locker:    deps.Locker,
		events:    deps.Events,
		graph:     deps.Graph,
		lockTTL:   lockTTL,
	}
}

// DetectGroup screens every order of a group against one snapshot of the
// active blacklist and persists the verdicts and group counters together.
func (s *Service) DetectGroup(ctx context.Context, groupID int64, force bool) (*BatchReport, error) {
	ctx, span := tracing.StartSpan(ctx, "detection.Service.DetectGroup")
	defer span.End()

	runID := uuid.NewString()
	ctx = appcontext.SetRunID(ctx, runID)
	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"group_id":      groupID,
		"run_id":        runID,
		"force_recheck": force,
	})

	if _, err := s.groups.Get(ctx, groupID); err != nil {
		return nil, err
	}

	release, err := s.lockGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	defer release()

	started := time.Now()
	status := "failed"
	defer func() {
		metrics.DetectionRunsTotal.WithLabelValues(status, metrics.Bool(force)).Inc()
		metrics.DetectionRunDuration.WithLabelValues(metrics.Bool(force)).Observe(time.Since(started).Seconds())
	}()

	snapshot, fp, err := s.loadSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	orders, err := s.orders.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	report, err := s.detector.Run(ctx, orders, snapshot, force)
	if err != nil {
		log.WithError(err).Error("detection pass did not complete")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "detection pass did not complete")
	}
	report.Summary.RunID = runID
	report.Summary.GroupID = groupID
	report.Summary.SnapshotFingerprint = fp

	if err := s.persist(ctx, &groupID, report, &report.Summary); err != nil {
		return nil, err
	}
	status = "succeeded"
	recordOutcomes(report)

	log.WithFields(map[string]any{
		"checked":       report.Summary.Checked,
		"newly_matched": report.Summary.NewlyMatched,
		"failed":        report.Summary.Failed,
		"fingerprint":   fp,
	}).Info("detection pass completed")

	s.announce(ctx, &groupID, report, true)
	return report, nil
}

// CheckOrder rescans a single order regardless of its checked flag.
func (s *Service) CheckOrder(ctx context.Context, orderID int64) (*models.DetectionOutcome, error) {
	ctx, span := tracing.StartSpan(ctx, "detection.Service.CheckOrder")
	defer span.End()

	runID := uuid.NewString()
	ctx = appcontext.SetRunID(ctx, runID)
	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"order_id": orderID,
		"run_id":   runID,
	})

	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	snapshot, fp, err := s.loadSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	report, err := s.detector.Run(ctx, []models.Order{*order}, snapshot, true)
	if err != nil {
		log.WithError(err).Error("order check did not complete")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "order check did not complete")
	}
	if len(report.Outcomes) == 0 {
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to scan order %d", orderID)
	}
	report.Summary.RunID = runID
	report.Summary.SnapshotFingerprint = fp
	if order.GroupID != nil {
		report.Summary.GroupID = *order.GroupID
	}

	if err := s.persist(ctx, order.GroupID, report, nil); err != nil {
		return nil, err
	}
	recordOutcomes(report)

	s.announce(ctx, order.GroupID, report, false)

	outcome := report.Outcomes[0]
	return &outcome, nil
}

// Scan screens an ad-hoc order without persisting anything.
func (s *Service) Scan(ctx context.Context, view models.OrderView) (*models.ScanResult, error) {
	ctx, span := tracing.StartSpan(ctx, "detection.Service.Scan")
	defer span.End()

	snapshot, _, err := s.loadSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	result, err := s.engine.ScanOrder(view, snapshot)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("failed to scan order")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to scan order")
	}
	return &result, nil
}

// Results pages through a group's orders, flagged ones only unless filter.All.
func (s *Service) Results(ctx context.Context, groupID int64, filter models.ResultFilter, page database.Page) ([]models.Order, int, error) {
	ctx, span := tracing.StartSpan(ctx, "detection.Service.Results")
	defer span.End()

	if filter.RiskLevel != "" && !filter.RiskLevel.Valid() {
		return nil, 0, httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid risk level %q", filter.RiskLevel)
	}

	if _, err := s.groups.Get(ctx, groupID); err != nil {
		return nil, 0, err
	}

	return s.orders.ListResults(ctx, groupID, filter, page.Normalize())
}

// Statistics summarises how much of a group has been screened and what was found.
func (s *Service) Statistics(ctx context.Context, groupID int64) (*models.DetectionStatistics, error) {
	ctx, span := tracing.StartSpan(ctx, "detection.Service.Statistics")
	defer span.End()

	if _, err := s.groups.Get(ctx, groupID); err != nil {
		return nil, err
	}

	counters, err := s.orders.Counters(ctx, groupID)
	if err != nil {
		return nil, err
	}

	rows, err := s.orders.RiskDistribution(ctx, groupID)
	if err != nil {
		return nil, err
	}

	return BuildStatistics(groupID, counters, rows), nil
}

// BuildStatistics derives the statistics block from raw counts. Rows with a
// nil level are checked orders that did not match.
func BuildStatistics(groupID int64, counters models.GroupCounters, rows []models.RiskCount) *models.DetectionStatistics {
	distribution := map[string]int{
		string(models.RiskLevelHigh):   0,
		string(models.RiskLevelMedium): 0,
		string(models.RiskLevelLow):    0,
		"none":                         0,
	}
	for _, row := range rows {
		if row.Level == nil {
			distribution["none"] += row.Count
			continue
		}
		distribution[*row.Level] += row.Count
	}

	rate := 0.0
	if counters.TotalOrders > 0 {
		rate = math.Round(float64(counters.BlacklistMatches)/float64(counters.TotalOrders)*10000) / 100
	}

	return &models.DetectionStatistics{
		GroupID:          groupID,
		TotalOrders:      counters.TotalOrders,
		CheckedOrders:    counters.CheckedOrders,
		UncheckedOrders:  counters.TotalOrders - counters.CheckedOrders,
		MatchedOrders:    counters.BlacklistMatches,
		MatchRate:        rate,
		RiskDistribution: distribution,
	}
}

func (s *Service) lockGroup(ctx context.Context, groupID int64) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}

	lock, err := s.locker.Acquire(ctx, fmt.Sprintf("detection:group:%d", groupID), s.lockTTL)
	if errors.Is(err, ErrGroupLocked) {
		metrics.LockContentionTotal.Inc()
		return nil, httperror.NewHTTPErrorf(http.StatusConflict, "detection already running for group %d", groupID)
	}
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("failed to acquire group lock")
		return nil, httperror.NewHTTPError(http.StatusServiceUnavailable, "failed to acquire group lock")
	}

	return func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("failed to release group lock")
		}
	}, nil
}

func (s *Service) loadSnapshot(ctx context.Context) (*matching.Snapshot, string, error) {
	entries, err := s.blacklist.ListActive(ctx)
	if err != nil {
		return nil, "", err
	}

	snapshot := matching.NewSnapshot(entries)
	fp, err := fingerprint.Snapshot(snapshot.Entries())
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("failed to fingerprint blacklist snapshot")
	}
	metrics.SnapshotEntries.Set(float64(snapshot.Len()))

	return snapshot, fp, nil
}

// persist writes outcomes and, when the orders belong to a group, the
// recomputed group counters in one transaction. lastRun is stored on the
// group when set.
func (s *Service) persist(ctx context.Context, groupID *int64, report *BatchReport, lastRun *models.DetectionSummary) (err error) {
	txCtx, tx, err := s.tx.GetTx(ctx, nil)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(txCtx)
		}
	}()

	if err = s.orders.SaveOutcomes(txCtx, report.Outcomes); err != nil {
		return err
	}

	if groupID != nil {
		var counters models.GroupCounters
		if counters, err = s.orders.Counters(txCtx, *groupID); err != nil {
			return err
		}
		if err = s.groups.UpdateCounters(txCtx, *groupID, counters, lastRun); err != nil {
			return err
		}
	}

	if err = tx.Commit(txCtx); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit detection results")
	}
	return nil
}

func recordOutcomes(report *BatchReport) {
	for _, outcome := range report.Outcomes {
		if !outcome.IsBlacklisted {
			metrics.OrdersScreenedTotal.WithLabelValues("clean").Inc()
			continue
		}
		metrics.OrdersScreenedTotal.WithLabelValues("flagged").Inc()
		for _, m := range outcome.Matches {
			metrics.MatchesTotal.WithLabelValues(string(m.MatchType), string(m.Risk)).Inc()
		}
	}
	for range report.Failures {
		metrics.OrdersScreenedTotal.WithLabelValues("failed").Inc()
	}
}

// announce projects matches and publishes events. Both are best effort:
// the verdicts are already committed.
func (s *Service) announce(ctx context.Context, groupID *int64, report *BatchReport, groupPass bool) {
	log := s.logger.WithContext(ctx)

	// every rescanned order goes to the graph so a clean recheck drops its old edges
	if s.graph != nil && len(report.Outcomes) > 0 {
		if err := s.graph.ProjectMatches(ctx, groupID, report.Outcomes); err != nil {
			log.WithError(err).Warn("failed to project matches into graph")
		}
	}

	if s.events == nil {
		return
	}
	for _, outcome := range report.Flagged() {
		if err := s.events.OrderFlagged(ctx, groupID, report.Summary.RunID, outcome); err != nil {
			log.WithError(err).WithField("order_id", outcome.OrderID).Warn("failed to publish order.flagged event")
		}
	}
	if groupPass {
		if err := s.events.DetectionCompleted(ctx, report.Summary); err != nil {
			log.WithError(err).Warn("failed to publish detection.completed event")
		}
	}
}
