package group

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

const table = "order_groups"

var columns = []string{
	"id", "name", "description", "file_name", "total_orders", "checked_orders", "blacklist_matches",
	"status", "last_run", "is_active", "created_at", "updated_at",
}

// Repository handles order group persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new group repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Get retrieves an active group by id
func (r *Repository) Get(ctx context.Context, id int64) (*models.Group, error) {
	ctx, span := tracing.StartSpan(ctx, "group.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("is_active", true),
	)

	query, args := sb.Build()
	var g models.Group
	if err := database.Conn(ctx, r.db).GetContext(ctx, &g, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "group %d not found", id)
		}
		r.logger.WithContext(ctx).WithError(err).WithField("group_id", id).Error("Failed to get group")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get group")
	}

	return &g, nil
}

// UpdateCounters stores recomputed counters and, when given, the summary of
// the pass that produced them.
func (r *Repository) UpdateCounters(ctx context.Context, groupID int64, counters models.GroupCounters, lastRun *models.DetectionSummary) error {
	ctx, span := tracing.StartSpan(ctx, "group.Repository.UpdateCounters")
	defer span.End()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(table)
	assignments := []string{
		ub.Assign("total_orders", counters.TotalOrders),
		ub.Assign("checked_orders", counters.CheckedOrders),
		ub.Assign("blacklist_matches", counters.BlacklistMatches),
		ub.Assign("updated_at", sqlbuilder.Raw("NOW()")),
	}
	if lastRun != nil {
		assignments = append(assignments, ub.Assign("last_run", database.NewJSONB(*lastRun)))
	}
	ub.Set(assignments...)
	ub.Where(ub.Equal("id", groupID))

	query, args := ub.Build()
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("group_id", groupID).Error("Failed to update group counters")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update group counters")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "group %d not found", groupID)
	}

	return nil
}
