package detection

import (
	"context"
	"net/http"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/thistle/pkg/database"
	"github.com/Ramsey-B/thistle/pkg/detection"
	"github.com/Ramsey-B/thistle/pkg/middleware"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/routes"
)

// Service is the detection workflow behind these routes. *detection.Service implements it.
type Service interface {
	DetectGroup(ctx context.Context, groupID int64, force bool) (*detection.BatchReport, error)
	CheckOrder(ctx context.Context, orderID int64) (*models.DetectionOutcome, error)
	Results(ctx context.Context, groupID int64, filter models.ResultFilter, page database.Page) ([]models.Order, int, error)
	Statistics(ctx context.Context, groupID int64) (*models.DetectionStatistics, error)
}

// Register registers order check and group detection routes on the api root group.
func Register(g *echo.Group, enforce bool) {
	read := middleware.RequireCapability(enforce, models.CapabilityDetectionRead)
	run := middleware.RequireCapability(enforce, models.CapabilityDetectionRun)

	g.POST("/orders/:id/check", CheckOrder, run)
	g.POST("/groups/:id/detect", DetectGroup, run)
	g.GET("/groups/:id/results", ListResults, read)
	g.GET("/groups/:id/statistics", GetStatistics, read)
}

// DetectGroupRequest is the body of a group detection request
type DetectGroupRequest struct {
	ForceRecheck bool `json:"force_recheck"`
}

// DetectGroupResponse is what a group detection pass reports back
type DetectGroupResponse struct {
	Summary  models.DetectionSummary  `json:"summary"`
	Failures []detection.OrderFailure `json:"failures"`
}

// CheckOrder rescans one order, always forced
func CheckOrder(c echo.Context) error {
	id, err := routes.ParseID(c, "id")
	if err != nil {
		return err
	}

	ctx, service, err := ectoinject.GetContext[Service](c.Request().Context())
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	outcome, err := service.CheckOrder(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, outcome)
}

// DetectGroup runs a detection pass over a group. An empty body means no forced recheck.
func DetectGroup(c echo.Context) error {
	id, err := routes.ParseID(c, "id")
	if err != nil {
		return err
	}

	var req DetectGroupRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}
	}

	ctx, service, err := ectoinject.GetContext[Service](c.Request().Context())
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	report, err := service.DetectGroup(ctx, id, req.ForceRecheck)
	if err != nil {
		return err
	}

	failures := report.Failures
	if failures == nil {
		failures = []detection.OrderFailure{}
	}

	return c.JSON(http.StatusOK, DetectGroupResponse{Summary: report.Summary, Failures: failures})
}

// ListResults pages through a group's screened orders
func ListResults(c echo.Context) error {
	id, err := routes.ParseID(c, "id")
	if err != nil {
		return err
	}

	page, err := routes.ParsePage(c)
	if err != nil {
		return err
	}

	all, err := routes.ParseBool(c, "all")
	if err != nil {
		return err
	}

	filter := models.ResultFilter{
		RiskLevel: models.RiskLevel(strings.ToUpper(strings.TrimSpace(c.QueryParam("risk_level")))),
		All:       all,
	}

	ctx, service, err := ectoinject.GetContext[Service](c.Request().Context())
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	orders, total, err := service.Results(ctx, id, filter, page)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, routes.NewPageResponse(orders, total, page))
}

// GetStatistics reports a group's screening progress and risk distribution
func GetStatistics(c echo.Context) error {
	id, err := routes.ParseID(c, "id")
	if err != nil {
		return err
	}

	ctx, service, err := ectoinject.GetContext[Service](c.Request().Context())
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	stats, err := service.Statistics(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, stats)
}
