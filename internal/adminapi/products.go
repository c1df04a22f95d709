package adminapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/talkincode/digistore/internal/catalog"
	"github.com/talkincode/digistore/internal/domain"
	"github.com/talkincode/digistore/internal/webserver"
)

type availabilityPayload struct {
	Available *bool `json:"available" validate:"required"`
}

// registerProductRoutes registers product CRUD endpoints
func registerProductRoutes() {
	webserver.ApiGET("/products", listProducts)
	webserver.ApiGET("/products/:id", getProduct)
	webserver.ApiPOST("/products", createProduct)
	webserver.ApiPUT("/products/:id", updateProduct)
	webserver.ApiPATCH("/products/:id/availability", setProductAvailability)
	webserver.ApiDELETE("/products/:id", deleteProduct)
}

func listProducts(c echo.Context) error {
	page, pageSize := parsePagination(c)
	q := catalog.ListQuery{
		Page:     page,
		PageSize: pageSize,
		Q:        strings.TrimSpace(c.QueryParam("q")),
		Sort:     strings.TrimSpace(c.QueryParam("sort")),
		Order:    c.QueryParam("order"),
	}
	products, total, err := webserver.GetAppContext(c).Catalog().List(c.Request().Context(), q)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query products", err.Error())
	}
	if products == nil {
		products = []domain.Product{}
	}
	return paged(c, products, total, page, pageSize)
}

func getProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	p, err := webserver.GetAppContext(c).Catalog().Get(c.Request().Context(), id)
	if err != nil {
		return productError(c, err, "Failed to query product")
	}
	return ok(c, p)
}

func createProduct(c echo.Context) error {
	form := catalog.ParseProductForm(c.Request())
	p, err := webserver.GetAppContext(c).Catalog().Add(c.Request().Context(), form)
	if err != nil {
		return productError(c, err, "Failed to create product")
	}
	return ok(c, p)
}

func updateProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	form := catalog.ParseProductForm(c.Request())
	p, err := webserver.GetAppContext(c).Catalog().Update(c.Request().Context(), id, form)
	if err != nil {
		return productError(c, err, "Failed to update product")
	}
	return ok(c, p)
}

func setProductAvailability(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	var payload availabilityPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse availability", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}
	svc := webserver.GetAppContext(c).Catalog()
	if err := svc.SetAvailability(c.Request().Context(), id, *payload.Available); err != nil {
		return productError(c, err, "Failed to update availability")
	}
	p, err := svc.Get(c.Request().Context(), id)
	if err != nil {
		return productError(c, err, "Failed to query product")
	}
	return ok(c, p)
}

func deleteProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	if _, err := webserver.GetAppContext(c).Catalog().Delete(c.Request().Context(), id); err != nil {
		return productError(c, err, "Failed to delete product")
	}
	return ok(c, map[string]interface{}{"id": id})
}

// productError maps catalog errors onto the API envelope.
func productError(c echo.Context, err error, msg string) error {
	if ve, ok := catalog.AsValidationError(err); ok {
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", ve.Fields)
	}
	if errors.Is(err, catalog.ErrNotFound) {
		return fail(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found", nil)
	}
	zap.L().Error(msg, zap.String("uri", c.Request().RequestURI), zap.Error(err))
	return fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", msg, err.Error())
}
