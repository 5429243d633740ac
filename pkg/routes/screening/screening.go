package screening

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/thistle/pkg/extractor"
	"github.com/Ramsey-B/thistle/pkg/middleware"
	"github.com/Ramsey-B/thistle/pkg/models"
)

// Scanner screens an ad-hoc order. *detection.Service implements it.
type Scanner interface {
	Scan(ctx context.Context, view models.OrderView) (*models.ScanResult, error)
}

// Register registers screening routes
func Register(g *echo.Group, enforce bool) {
	g.POST("/scan", ScanOrder, middleware.RequireCapability(enforce, models.CapabilityDetectionRead))
}

// ScanOrder screens the posted order against the active blacklist without persisting anything.
// Fields that are missing or not strings are ignored.
func ScanOrder(c echo.Context) error {
	var payload map[string]any
	if err := c.Bind(&payload); err != nil || payload == nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "request body must be a JSON object")
	}

	ctx, scanner, err := ectoinject.GetContext[Scanner](c.Request().Context())
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	// custom field paths are optional
	paths := extractor.DefaultOrderPaths
	ctx, configured, err := ectoinject.GetContext[extractor.OrderPaths](ctx)
	if err == nil {
		paths = configured
	}

	result, err := scanner.Scan(ctx, extractor.DecodeOrderView(payload, paths))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}
