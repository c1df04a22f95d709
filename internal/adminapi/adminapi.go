// Package adminapi exposes the product and dashboard operations as a JSON API.
package adminapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"

	"github.com/talkincode/digistore/internal/catalog"
	"github.com/talkincode/digistore/internal/webserver"
)

// Init registers the admin API routes
func Init() {
	registerDashboardRoutes()
	registerProductRoutes()
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, webserver.Resp{Code: "OK", Msg: "success", Data: data})
}

func fail(c echo.Context, status int, code, msg string, data interface{}) error {
	return c.JSON(status, webserver.Resp{Code: code, Msg: msg, Data: data})
}

func paged(c echo.Context, data interface{}, total int64, page, pageSize int) error {
	return ok(c, webserver.PageResult{Data: data, Total: total, Page: page, PageSize: pageSize})
}

// parsePagination reads page and pageSize (or perPage) query params.
func parsePagination(c echo.Context) (int, int) {
	page := cast.ToInt(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	sizeParam := c.QueryParam("pageSize")
	if sizeParam == "" {
		sizeParam = c.QueryParam("perPage")
	}
	pageSize := cast.ToInt(sizeParam)
	if pageSize < 1 || pageSize > 500 {
		pageSize = 20
	}
	return page, pageSize
}

func parseIDParam(c echo.Context, name string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(c.Param(name)), 10, 64)
}

// handleValidationError reports struct validation failures as a field map.
func handleValidationError(c echo.Context, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
	}
	fields := catalog.FieldErrors{}
	for _, fe := range verrs {
		fields.Add(lowerFirst(fe.Field()), fe.Tag())
	}
	return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", fields)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
