package order

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/thistle/pkg/database"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

const table = "orders"

var columns = []string{
	"id", "group_id", "group_tour_number", "orderer", "consignee", "contact_phone", "detailed_address", "product",
	"is_blacklist_checked", "is_blacklisted", "blacklist_risk_level", "blacklist_match_info", "blacklist_match_details",
	"blacklist_checked_at", "created_at", "updated_at",
}

// severityOrder sorts flagged orders HIGH first.
const severityOrder = "CASE blacklist_risk_level WHEN 'HIGH' THEN 0 WHEN 'MEDIUM' THEN 1 WHEN 'LOW' THEN 2 ELSE 3 END"

// Repository handles order persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new order repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Get retrieves an order by id
func (r *Repository) Get(ctx context.Context, id int64) (*models.Order, error) {
	ctx, span := tracing.StartSpan(ctx, "order.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var o models.Order
	if err := database.Conn(ctx, r.db).GetContext(ctx, &o, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "order %d not found", id)
		}
		r.logger.WithContext(ctx).WithError(err).WithField("order_id", id).Error("Failed to get order")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get order")
	}

	return &o, nil
}

// ListByGroup loads every order of a group in id order.
func (r *Repository) ListByGroup(ctx context.Context, groupID int64) ([]models.Order, error) {
	ctx, span := tracing.StartSpan(ctx, "order.Repository.ListByGroup")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(sb.Equal("group_id", groupID))
	sb.OrderBy("id")

	query, args := sb.Build()
	orders := []models.Order{}
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &orders, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("group_id", groupID).Error("Failed to list orders")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list orders")
	}

	return orders, nil
}

// SaveOutcomes writes each verdict onto its order, fully replacing any
// previous verdict. Callers run it inside the pass transaction.
func (r *Repository) SaveOutcomes(ctx context.Context, outcomes []models.DetectionOutcome) error {
	ctx, span := tracing.StartSpan(ctx, "order.Repository.SaveOutcomes")
	defer span.End()

	conn := database.Conn(ctx, r.db)
	for _, outcome := range outcomes {
		ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
		ub.Update(table)
		ub.Set(
			ub.Assign("is_blacklist_checked", true),
			ub.Assign("is_blacklisted", outcome.IsBlacklisted),
			ub.Assign("blacklist_risk_level", outcome.RiskLevel),
			ub.Assign("blacklist_match_info", outcome.MatchInfo),
			ub.Assign("blacklist_match_details", outcome.MatchDetails),
			ub.Assign("blacklist_checked_at", outcome.CheckedAt),
			ub.Assign("updated_at", sqlbuilder.Raw("NOW()")),
		)
		ub.Where(ub.Equal("id", outcome.OrderID))

		query, args := ub.Build()
		if _, err := conn.ExecContext(ctx, query, args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithField("order_id", outcome.OrderID).Error("Failed to save detection outcome")
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to save detection results")
		}
	}

	return nil
}

// Counters recomputes a group's counters from its orders.
func (r *Repository) Counters(ctx context.Context, groupID int64) (models.GroupCounters, error) {
	ctx, span := tracing.StartSpan(ctx, "order.Repository.Counters")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(
		sb.As("COUNT(*)", "total_orders"),
		sb.As("COUNT(*) FILTER (WHERE is_blacklist_checked)", "checked_orders"),
		sb.As("COUNT(*) FILTER (WHERE is_blacklisted)", "blacklist_matches"),
	)
	sb.From(table)
	sb.Where(sb.Equal("group_id", groupID))

	query, args := sb.Build()
	var counters models.GroupCounters
	if err := database.Conn(ctx, r.db).GetContext(ctx, &counters, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("group_id", groupID).Error("Failed to count orders")
		return models.GroupCounters{}, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count orders")
	}

	return counters, nil
}

// ListResults pages through a group's orders, most severe first.
func (r *Repository) ListResults(ctx context.Context, groupID int64, filter models.ResultFilter, page database.Page) ([]models.Order, int, error) {
	ctx, span := tracing.StartSpan(ctx, "order.Repository.ListResults")
	defer span.End()

	countSb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	countSb.Select("COUNT(*)")
	countSb.From(table)
	applyResultFilter(countSb, groupID, filter)

	countQuery, countArgs := countSb.Build()
	var total int
	if err := database.Conn(ctx, r.db).GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("group_id", groupID).Error("Failed to count detection results")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count detection results")
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	applyResultFilter(sb, groupID, filter)
	sb.OrderBy(severityOrder, "id")
	page.Apply(sb)

	query, args := sb.Build()
	orders := []models.Order{}
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &orders, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("group_id", groupID).Error("Failed to list detection results")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list detection results")
	}

	return orders, total, nil
}

// applyResultFilter narrows a listing to one group. A concrete level only
// ever selects flagged orders, since clean scans are stored as LOW too.
// NONE selects checked orders that did not match.
func applyResultFilter(sb *sqlbuilder.SelectBuilder, groupID int64, filter models.ResultFilter) {
	where := []string{sb.Equal("group_id", groupID)}
	switch filter.RiskLevel {
	case "":
		if !filter.All {
			where = append(where, sb.Equal("is_blacklisted", true))
		}
	case models.RiskLevelNone:
		where = append(where,
			sb.Equal("is_blacklist_checked", true),
			sb.Equal("is_blacklisted", false),
		)
	default:
		where = append(where,
			sb.Equal("is_blacklisted", true),
			sb.Equal("blacklist_risk_level", filter.RiskLevel),
		)
	}
	sb.Where(where...)
}

// RiskDistribution counts checked orders by the risk of their verdict.
// Clean orders are reported with a nil level.
func (r *Repository) RiskDistribution(ctx context.Context, groupID int64) ([]models.RiskCount, error) {
	ctx, span := tracing.StartSpan(ctx, "order.Repository.RiskDistribution")
	defer span.End()

	level := "CASE WHEN is_blacklisted THEN blacklist_risk_level END"

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(sb.As(level, "risk_level"), sb.As("COUNT(*)", "count"))
	sb.From(table)
	sb.Where(
		sb.Equal("group_id", groupID),
		sb.Equal("is_blacklist_checked", true),
	)
	sb.GroupBy(level)

	query, args := sb.Build()
	rows := []models.RiskCount{}
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("group_id", groupID).Error("Failed to load risk distribution")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to load risk distribution")
	}

	return rows, nil
}
