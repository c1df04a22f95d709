package web

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/talkincode/digistore/internal/dashboard"
	"github.com/talkincode/digistore/internal/webserver"
)

const adminListLimit = 200

type dashboardPage struct {
	pageMeta
	Cards []dashboard.Card
}

type usersPage struct {
	pageMeta
	Customers []dashboard.CustomerRow
}

type ordersPage struct {
	pageMeta
	Orders []dashboard.OrderRow
}

func registerAdminRoutes() {
	webserver.AdminGET("", dashboardHandler)
	webserver.AdminGET("/", dashboardHandler)
	webserver.AdminGET("/users", usersHandler)
	webserver.AdminGET("/orders", salesHandler)
}

func noStore(c echo.Context) {
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
}

func adminMeta(c echo.Context, title string) pageMeta {
	noStore(c)
	return pageMeta{Title: title, Flashes: webserver.Flashes(c)}
}

func dashboardHandler(c echo.Context) error {
	sum, err := webserver.GetAppContext(c).Dashboard().Load(c.Request().Context())
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, "admin/dashboard.html", dashboardPage{
		pageMeta: adminMeta(c, "Dashboard"),
		Cards:    dashboard.Cards(sum),
	})
}

func usersHandler(c echo.Context) error {
	rows, err := webserver.GetAppContext(c).Dashboard().Customers(c.Request().Context(), adminListLimit)
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, "admin/users.html", usersPage{pageMeta: adminMeta(c, "Customers"), Customers: rows})
}

func salesHandler(c echo.Context) error {
	rows, err := webserver.GetAppContext(c).Dashboard().RecentOrders(c.Request().Context(), adminListLimit)
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, "admin/orders.html", ordersPage{pageMeta: adminMeta(c, "Sales"), Orders: rows})
}
