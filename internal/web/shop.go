package web

import (
	"bytes"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/talkincode/digistore/internal/catalog"
	"github.com/talkincode/digistore/internal/domain"
	"github.com/talkincode/digistore/internal/pagecache"
	"github.com/talkincode/digistore/internal/webserver"
)

const (
	homeSectionSize = 6
	cacheHeader     = "X-Page-Cache"
)

type homePage struct {
	pageMeta
	Popular []domain.Product
	Newest  []domain.Product
}

type productsPage struct {
	pageMeta
	Products []domain.Product
}

func registerShopRoutes() {
	webserver.GET("/", homeHandler)
	webserver.GET("/products", productsHandler)
	webserver.GET("/orders", ordersHandler)
}

func homeHandler(c echo.Context) error {
	return renderCached(c, "shop/home.html", func() (interface{}, error) {
		svc := webserver.GetAppContext(c).Catalog()
		ctx := c.Request().Context()
		popular, err := svc.ListAvailable(ctx, catalog.OrderByPopular, homeSectionSize)
		if err != nil {
			return nil, err
		}
		newest, err := svc.ListAvailable(ctx, catalog.OrderByNewest, homeSectionSize)
		if err != nil {
			return nil, err
		}
		return homePage{pageMeta: pageMeta{Title: "Home"}, Popular: popular, Newest: newest}, nil
	})
}

func productsHandler(c echo.Context) error {
	return renderCached(c, "shop/products.html", func() (interface{}, error) {
		products, err := webserver.GetAppContext(c).Catalog().ListAvailable(c.Request().Context(), catalog.OrderByName, 0)
		if err != nil {
			return nil, err
		}
		return productsPage{pageMeta: pageMeta{Title: "Products"}, Products: products}, nil
	})
}

func ordersHandler(c echo.Context) error {
	return c.Render(http.StatusOK, "shop/orders.html", pageMeta{Title: "My Orders"})
}

// renderCached serves the page for the request path from the page cache,
// rendering and storing it on a miss.
func renderCached(c echo.Context, name string, load func() (interface{}, error)) error {
	pages := webserver.GetAppContext(c).Pages()
	key := c.Request().URL.Path
	if page, ok := pages.Get(key); ok {
		c.Response().Header().Set(cacheHeader, "HIT")
		return c.Blob(http.StatusOK, page.ContentType, page.Body)
	}

	gen := pages.Generation()
	data, err := load()
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := c.Echo().Renderer.Render(&buf, name, data, c); err != nil {
		return err
	}
	pages.SetIfCurrent(key, pagecache.Page{ContentType: echo.MIMETextHTMLCharsetUTF8, Body: buf.Bytes()}, gen)
	c.Response().Header().Set(cacheHeader, "MISS")
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}
