package blacklist

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/thistle/pkg/database"
	"github.com/Ramsey-B/thistle/pkg/graph"
	"github.com/Ramsey-B/thistle/pkg/middleware"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/routes"
)

// Repository is the blacklist store the routes read and write.
type Repository interface {
	List(ctx context.Context, filter models.BlacklistFilter, page database.Page) ([]models.BlacklistEntry, int, error)
	Get(ctx context.Context, id int64) (*models.BlacklistEntry, error)
	Create(ctx context.Context, entry models.BlacklistEntry) (*models.BlacklistEntry, error)
	Update(ctx context.Context, id int64, entry models.BlacklistEntry) (*models.BlacklistEntry, error)
	Deactivate(ctx context.Context, id int64) error
}

// MatchLookup reads projected matches for an entry. It is only registered
// when the graph is enabled.
type MatchLookup interface {
	OrdersForEntry(ctx context.Context, blacklistID int64, limit int) ([]graph.MatchEdge, error)
}

// Register registers blacklist routes
func Register(g *echo.Group, enforce bool) {
	read := middleware.RequireCapability(enforce, models.CapabilityBlacklistRead)
	write := middleware.RequireCapability(enforce, models.CapabilityBlacklistWrite)

	g.GET("", ListEntries, read)
	g.GET("/:id", GetEntry, read)
	g.GET("/:id/matches", ListEntryMatches, read)
	g.POST("", CreateEntry, write)
	g.PUT("/:id", UpdateEntry, write)
	g.DELETE("/:id", DeleteEntry, write)
}

// ListEntries pages through blacklist entries
func ListEntries(c echo.Context) error {
	ctx := c.Request().Context()

	page, err := routes.ParsePage(c)
	if err != nil {
		return err
	}
	includeInactive, err := routes.ParseBool(c, "include_inactive")
	if err != nil {
		return err
	}

	filter := models.BlacklistFilter{
		Search:          c.QueryParam("search"),
		Tier:            models.EntryTier(c.QueryParam("risk_tier")),
		IncludeInactive: includeInactive,
	}

	ctx, repo, err := ectoinject.GetContext[Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	entries, total, err := repo.List(ctx, filter, page)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, routes.NewPageResponse(entries, total, page))
}

// GetEntry gets an entry by ID
func GetEntry(c echo.Context) error {
	id, err := routes.ParseID(c, "id")
	if err != nil {
		return err
	}

	ctx, repo, err := ectoinject.GetContext[Repository](c.Request().Context())
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	entry, err := repo.Get(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, entry)
}

// CreateEntry registers a new entry. Phone numbers are normalized before storing.
func CreateEntry(c echo.Context) error {
	req, err := bindEntry(c)
	if err != nil {
		return err
	}

	ctx, repo, err := ectoinject.GetContext[Repository](c.Request().Context())
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	created, err := repo.Create(ctx, req.ToEntry())
	if err != nil {
		return err
	}

	ctx, logger, _ := ectoinject.GetContext[ectologger.Logger](ctx)
	if logger != nil {
		logger.WithContext(ctx).WithFields(map[string]any{"id": created.ID}).Info("Created blacklist entry")
	}

	return c.JSON(http.StatusCreated, created)
}

// UpdateEntry replaces an entry's fields
func UpdateEntry(c echo.Context) error {
	id, err := routes.ParseID(c, "id")
	if err != nil {
		return err
	}

	req, err := bindEntry(c)
	if err != nil {
		return err
	}

	ctx, repo, err := ectoinject.GetContext[Repository](c.Request().Context())
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	updated, err := repo.Update(ctx, id, req.ToEntry())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, updated)
}

// DeleteEntry deactivates an entry. Deactivated entries are excluded from every later snapshot.
func DeleteEntry(c echo.Context) error {
	id, err := routes.ParseID(c, "id")
	if err != nil {
		return err
	}

	ctx, repo, err := ectoinject.GetContext[Repository](c.Request().Context())
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := repo.Deactivate(ctx, id); err != nil {
		return err
	}

	ctx, logger, _ := ectoinject.GetContext[ectologger.Logger](ctx)
	if logger != nil {
		logger.WithContext(ctx).WithFields(map[string]any{"id": id}).Info("Deactivated blacklist entry")
	}

	return c.NoContent(http.StatusNoContent)
}

// ListEntryMatches lists the orders projected as matching an entry
func ListEntryMatches(c echo.Context) error {
	ctx := c.Request().Context()

	ctx, matches, err := ectoinject.GetContext[MatchLookup](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusNotImplemented, "match graph is not enabled")
	}

	id, err := routes.ParseID(c, "id")
	if err != nil {
		return err
	}

	ctx, repo, err := ectoinject.GetContext[Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if _, err := repo.Get(ctx, id); err != nil {
		return err
	}

	page, err := routes.ParsePage(c)
	if err != nil {
		return err
	}

	edges, err := matches.OrdersForEntry(ctx, id, page.PageSize)
	if err != nil {
		ctx, logger, _ := ectoinject.GetContext[ectologger.Logger](ctx)
		if logger != nil {
			logger.WithContext(ctx).WithError(err).Error("Failed to read entry matches")
		}
		return httperror.NewHTTPError(http.StatusBadGateway, "match graph unavailable")
	}

	return c.JSON(http.StatusOK, edges)
}

func bindEntry(c echo.Context) (*models.BlacklistEntryRequest, error) {
	var req models.BlacklistEntryRequest
	if err := c.Bind(&req); err != nil {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return &req, nil
}
