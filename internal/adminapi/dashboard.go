package adminapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/talkincode/digistore/internal/dashboard"
	"github.com/talkincode/digistore/internal/webserver"
)

type dashboardResponse struct {
	Summary *dashboard.Summary `json:"summary"`
	Cards   []dashboard.Card   `json:"cards"`
}

func registerDashboardRoutes() {
	webserver.ApiGET("/dashboard", getDashboard)
	webserver.ApiGET("/customers", listCustomers)
	webserver.ApiGET("/orders", listOrders)
}

func getDashboard(c echo.Context) error {
	sum, err := webserver.GetAppContext(c).Dashboard().Load(c.Request().Context())
	if err != nil {
		zap.L().Error("dashboard load failed", zap.Error(err))
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load dashboard", nil)
	}
	return ok(c, dashboardResponse{Summary: sum, Cards: dashboard.Cards(sum)})
}

func listCustomers(c echo.Context) error {
	_, limit := parsePagination(c)
	rows, err := webserver.GetAppContext(c).Dashboard().Customers(c.Request().Context(), limit)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query customers", nil)
	}
	return ok(c, rows)
}

func listOrders(c echo.Context) error {
	_, limit := parsePagination(c)
	rows, err := webserver.GetAppContext(c).Dashboard().RecentOrders(c.Request().Context(), limit)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query orders", nil)
	}
	return ok(c, rows)
}
