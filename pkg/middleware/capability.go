package middleware

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/thistle/pkg/context"
	"github.com/Ramsey-B/thistle/pkg/models"
)

// RequireCapability rejects callers whose role does not grant capability.
// With enforcement off every caller is treated as an admin.
func RequireCapability(enforce bool, capability models.Capability) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !enforce {
				return next(c)
			}

			role, ok := models.ParseRole(context.GetRole(c.Request().Context()))
			if !ok {
				return httperror.NewHTTPError(http.StatusUnauthorized, "missing or unknown role")
			}
			if !role.Can(capability) {
				return httperror.NewHTTPErrorf(http.StatusForbidden, "role %s lacks %s", role, capability)
			}
			return next(c)
		}
	}
}
