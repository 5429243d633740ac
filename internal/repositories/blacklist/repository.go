package blacklist

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"
	"github.com/lib/pq"

	"github.com/Ramsey-B/thistle/pkg/database"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

const table = "blacklist_entries"

var columns = []string{
	"id", "external_id", "primary_name", "secondary_names", "social_handle", "raw_name_phone_text",
	"phone_numbers", "address1", "address2", "listing_reason", "risk_tier", "is_active", "created_at", "updated_at",
}

// Repository handles blacklist entry persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new blacklist repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// ListActive loads every active entry. It is the source of detection snapshots.
func (r *Repository) ListActive(ctx context.Context) ([]models.BlacklistEntry, error) {
	ctx, span := tracing.StartSpan(ctx, "blacklist.Repository.ListActive")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(sb.Equal("is_active", true))
	sb.OrderBy("id")

	query, args := sb.Build()
	entries := []models.BlacklistEntry{}
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &entries, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list active blacklist entries")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to load blacklist")
	}

	return entries, nil
}

// List pages through entries matching filter, newest first.
func (r *Repository) List(ctx context.Context, filter models.BlacklistFilter, page database.Page) ([]models.BlacklistEntry, int, error) {
	ctx, span := tracing.StartSpan(ctx, "blacklist.Repository.List")
	defer span.End()

	countSb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	countSb.Select("COUNT(*)")
	countSb.From(table)
	applyFilter(countSb, filter)

	countQuery, countArgs := countSb.Build()
	var total int
	if err := database.Conn(ctx, r.db).GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count blacklist entries")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count blacklist entries")
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	applyFilter(sb, filter)
	sb.OrderBy("created_at DESC", "id DESC")
	page.Apply(sb)

	query, args := sb.Build()
	entries := []models.BlacklistEntry{}
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &entries, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list blacklist entries")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list blacklist entries")
	}

	return entries, total, nil
}

func applyFilter(sb *sqlbuilder.SelectBuilder, filter models.BlacklistFilter) {
	var where []string
	if !filter.IncludeInactive {
		where = append(where, sb.Equal("is_active", true))
	}
	if filter.Tier != "" {
		where = append(where, sb.Equal("risk_tier", filter.Tier))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + search + "%"
		where = append(where, sb.Or(
			sb.ILike("primary_name", pattern),
			sb.ILike("raw_name_phone_text", pattern),
			sb.ILike("social_handle", pattern),
			sb.ILike("phone_numbers::text", pattern),
		))
	}
	if len(where) > 0 {
		sb.Where(where...)
	}
}

// Get retrieves an entry by id, active or not.
func (r *Repository) Get(ctx context.Context, id int64) (*models.BlacklistEntry, error) {
	ctx, span := tracing.StartSpan(ctx, "blacklist.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var entry models.BlacklistEntry
	if err := database.Conn(ctx, r.db).GetContext(ctx, &entry, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "blacklist entry %d not found", id)
		}
		r.logger.WithContext(ctx).WithError(err).WithField("id", id).Error("Failed to get blacklist entry")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get blacklist entry")
	}

	return &entry, nil
}

// Create inserts entry and returns the stored row.
func (r *Repository) Create(ctx context.Context, entry models.BlacklistEntry) (*models.BlacklistEntry, error) {
	ctx, span := tracing.StartSpan(ctx, "blacklist.Repository.Create")
	defer span.End()

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto(table)
	ib.Cols("external_id", "primary_name", "secondary_names", "social_handle", "raw_name_phone_text",
		"phone_numbers", "address1", "address2", "listing_reason", "risk_tier", "is_active", "created_at", "updated_at")
	ib.Values(entry.ExternalID, entry.PrimaryName, entry.SecondaryNames, entry.SocialHandle, entry.RawNamePhoneText,
		entry.PhoneNumbers, entry.Address1, entry.Address2, entry.ListingReason, entry.Tier, entry.IsActive,
		sqlbuilder.Raw("NOW()"), sqlbuilder.Raw("NOW()"))
	ib.Returning(columns...)

	query, args := ib.Build()
	var created models.BlacklistEntry
	if err := database.Conn(ctx, r.db).GetContext(ctx, &created, query, args...); err != nil {
		if isUniqueViolation(err) {
			return nil, httperror.NewHTTPError(http.StatusConflict, "external_id already exists")
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to create blacklist entry")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create blacklist entry")
	}

	r.logger.WithContext(ctx).WithField("id", created.ID).Info("Created blacklist entry")
	return &created, nil
}

// Update replaces the editable fields of an entry.
func (r *Repository) Update(ctx context.Context, id int64, entry models.BlacklistEntry) (*models.BlacklistEntry, error) {
	ctx, span := tracing.StartSpan(ctx, "blacklist.Repository.Update")
	defer span.End()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(table)
	ub.Set(
		ub.Assign("external_id", entry.ExternalID),
		ub.Assign("primary_name", entry.PrimaryName),
		ub.Assign("secondary_names", entry.SecondaryNames),
		ub.Assign("social_handle", entry.SocialHandle),
		ub.Assign("raw_name_phone_text", entry.RawNamePhoneText),
		ub.Assign("phone_numbers", entry.PhoneNumbers),
		ub.Assign("address1", entry.Address1),
		ub.Assign("address2", entry.Address2),
		ub.Assign("listing_reason", entry.ListingReason),
		ub.Assign("risk_tier", entry.Tier),
		ub.Assign("updated_at", sqlbuilder.Raw("NOW()")),
	)
	ub.Where(ub.Equal("id", id))
	ub.SQL("RETURNING " + strings.Join(columns, ", "))

	query, args := ub.Build()
	var updated models.BlacklistEntry
	err := database.Conn(ctx, r.db).GetContext(ctx, &updated, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "blacklist entry %d not found", id)
	}
	if err != nil {
		if isUniqueViolation(err) {
			return nil, httperror.NewHTTPError(http.StatusConflict, "external_id already exists")
		}
		r.logger.WithContext(ctx).WithError(err).WithField("id", id).Error("Failed to update blacklist entry")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update blacklist entry")
	}

	return &updated, nil
}

// Deactivate soft-deletes an entry so later snapshots exclude it.
func (r *Repository) Deactivate(ctx context.Context, id int64) error {
	ctx, span := tracing.StartSpan(ctx, "blacklist.Repository.Deactivate")
	defer span.End()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(table)
	ub.Set(
		ub.Assign("is_active", false),
		ub.Assign("updated_at", sqlbuilder.Raw("NOW()")),
	)
	ub.Where(ub.Equal("id", id))

	query, args := ub.Build()
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("id", id).Error("Failed to deactivate blacklist entry")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to deactivate blacklist entry")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "blacklist entry %d not found", id)
	}

	r.logger.WithContext(ctx).WithField("id", id).Info("Deactivated blacklist entry")
	return nil
}

// Count returns the number of active entries.
func (r *Repository) Count(ctx context.Context) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "blacklist.Repository.Count")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("COUNT(*)")
	sb.From(table)
	sb.Where(sb.Equal("is_active", true))

	query, args := sb.Build()
	var count int
	if err := database.Conn(ctx, r.db).GetContext(ctx, &count, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count blacklist entries")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count blacklist entries")
	}
	return count, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
