// Package routes holds helpers shared by the HTTP route packages.
package routes

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/thistle/pkg/database"
)

// PageResponse wraps one page of a listing.
type PageResponse[T any] struct {
	Items    []T `json:"items"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

func NewPageResponse[T any](items []T, total int, page database.Page) PageResponse[T] {
	if items == nil {
		items = []T{}
	}
	page = page.Normalize()
	return PageResponse[T]{
		Items:    items,
		Total:    total,
		Page:     page.Page,
		PageSize: page.PageSize,
	}
}

// ParseID reads a positive integer path parameter.
func ParseID(c echo.Context, name string) (int64, error) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid %s %q", name, raw)
	}
	return id, nil
}

// ParsePage reads page and page_size query parameters. Missing values fall back to defaults.
func ParsePage(c echo.Context) (database.Page, error) {
	var page database.Page
	for name, dst := range map[string]*int{"page": &page.Page, "page_size": &page.PageSize} {
		raw := c.QueryParam(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return page, httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid %s %q", name, raw)
		}
		*dst = n
	}
	return page.Normalize(), nil
}

// ParseBool reads an optional boolean query parameter.
func ParseBool(c echo.Context, name string) (bool, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid %s %q", name, raw)
	}
	return b, nil
}
