package web

import (
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"

	"github.com/talkincode/digistore/internal/catalog"
	"github.com/talkincode/digistore/internal/domain"
	"github.com/talkincode/digistore/internal/webserver"
)

const (
	productsPath  = webserver.AdminPrefix + "/products"
	exportBatch   = 500
	storedNameLen = 37 // uuid plus separator
)

type productRow struct {
	domain.Product
	Orders int64
}

type productListPage struct {
	pageMeta
	Rows []productRow
}

type formValues struct {
	Name         string
	Description  string
	PriceInCents string
}

type productFormPage struct {
	pageMeta
	Action  string
	Product *domain.Product
	Values  formValues
	Errors  catalog.FieldErrors
}

type productCSV struct {
	ID           string `csv:"id"`
	Name         string `csv:"name"`
	Description  string `csv:"description"`
	PriceInCents int64  `csv:"price_in_cents"`
	Available    bool   `csv:"available"`
	Orders       int64  `csv:"orders"`
	FilePath     string `csv:"file_path"`
	ImagePath    string `csv:"image_path"`
	CreatedAt    string `csv:"created_at"`
}

func registerProductRoutes() {
	webserver.AdminGET("/products", listProductsHandler)
	webserver.AdminGET("/products/new", newProductHandler)
	webserver.AdminGET("/products/export.csv", exportProductsHandler)
	webserver.AdminPOST("/products", addProductHandler)
	webserver.AdminGET("/products/:id/edit", editProductHandler)
	webserver.AdminGET("/products/:id/download", downloadProductHandler)
	webserver.AdminPOST("/products/:id", updateProductHandler)
	webserver.AdminPOST("/products/:id/availability", toggleAvailabilityHandler)
	webserver.AdminPOST("/products/:id/delete", deleteProductHandler)
}

func listProductsHandler(c echo.Context) error {
	svc := webserver.GetAppContext(c).Catalog()
	ctx := c.Request().Context()
	products, _, err := svc.List(ctx, catalog.ListQuery{
		Page:     cast.ToInt(c.QueryParam("page")),
		PageSize: exportBatch,
		Q:        c.QueryParam("q"),
		Sort:     c.QueryParam("sort"),
		Order:    c.QueryParam("order"),
	})
	if err != nil {
		return err
	}
	rows, err := withOrderCounts(c, products)
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, "admin/products.html", productListPage{
		pageMeta: adminMeta(c, "Products"),
		Rows:     rows,
	})
}

func withOrderCounts(c echo.Context, products []domain.Product) ([]productRow, error) {
	ids := make([]int64, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}
	counts, err := webserver.GetAppContext(c).Catalog().OrderCounts(c.Request().Context(), ids)
	if err != nil {
		return nil, err
	}
	rows := make([]productRow, len(products))
	for i, p := range products {
		rows[i] = productRow{Product: p, Orders: counts[p.ID]}
	}
	return rows, nil
}

func newProductHandler(c echo.Context) error {
	return renderProductForm(c, http.StatusOK, nil, formValues{}, nil)
}

func editProductHandler(c echo.Context) error {
	p, err := productFromParam(c)
	if err != nil {
		return err
	}
	values := formValues{
		Name:         p.Name,
		Description:  p.Description,
		PriceInCents: strconv.FormatInt(p.PriceInCents, 10),
	}
	return renderProductForm(c, http.StatusOK, p, values, nil)
}

func renderProductForm(c echo.Context, code int, p *domain.Product, values formValues, errs catalog.FieldErrors) error {
	page := productFormPage{Action: productsPath, Product: p, Values: values, Errors: errs}
	if p == nil {
		page.pageMeta = adminMeta(c, "Add Product")
	} else {
		page.pageMeta = adminMeta(c, "Edit Product")
		page.Action = productsPath + "/" + strconv.FormatInt(p.ID, 10)
	}
	return c.Render(code, "admin/product_form.html", page)
}

func addProductHandler(c echo.Context) error {
	form := catalog.ParseProductForm(c.Request())
	p, err := webserver.GetAppContext(c).Catalog().Add(c.Request().Context(), form)
	if ve, ok := catalog.AsValidationError(err); ok {
		return renderProductForm(c, http.StatusUnprocessableEntity, nil, valuesOf(form), ve.Fields)
	}
	if err != nil {
		return err
	}
	webserver.AddFlash(c, "Product "+p.Name+" created")
	return c.Redirect(http.StatusSeeOther, productsPath)
}

func updateProductHandler(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	svc := webserver.GetAppContext(c).Catalog()
	form := catalog.ParseProductForm(c.Request())
	p, err := svc.Update(c.Request().Context(), id, form)
	if ve, ok := catalog.AsValidationError(err); ok {
		current, gerr := svc.Get(c.Request().Context(), id)
		if gerr != nil {
			return gerr
		}
		return renderProductForm(c, http.StatusUnprocessableEntity, current, valuesOf(form), ve.Fields)
	}
	if err != nil {
		return err
	}
	webserver.AddFlash(c, "Product "+p.Name+" updated")
	return c.Redirect(http.StatusSeeOther, productsPath)
}

func toggleAvailabilityHandler(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	available, err := cast.ToBoolE(c.FormValue("available"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "available must be true or false")
	}
	if err := webserver.GetAppContext(c).Catalog().SetAvailability(c.Request().Context(), id, available); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, productsPath)
}

func deleteProductHandler(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	p, err := webserver.GetAppContext(c).Catalog().Delete(c.Request().Context(), id)
	if err != nil {
		return err
	}
	webserver.AddFlash(c, "Product "+p.Name+" deleted")
	return c.Redirect(http.StatusSeeOther, productsPath)
}

func downloadProductHandler(c echo.Context) error {
	p, err := productFromParam(c)
	if err != nil {
		return err
	}
	f, err := webserver.GetAppContext(c).Files().OpenFile(p.FilePath)
	if err != nil {
		return err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return err
	}
	name := downloadName(p)
	c.Response().Header().Set(echo.HeaderContentDisposition,
		mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	http.ServeContent(c.Response(), c.Request(), name, st.ModTime(), f)
	return nil
}

// downloadName is the product name with the extension of the uploaded file.
func downloadName(p *domain.Product) string {
	base := path.Base(p.FilePath)
	if len(base) > storedNameLen {
		base = base[storedNameLen:]
	}
	return p.Name + path.Ext(base)
}

func exportProductsHandler(c echo.Context) error {
	svc := webserver.GetAppContext(c).Catalog()
	ctx := c.Request().Context()

	var records []*productCSV
	for page := 1; ; page++ {
		products, total, err := svc.List(ctx, catalog.ListQuery{Page: page, PageSize: exportBatch})
		if err != nil {
			return err
		}
		rows, err := withOrderCounts(c, products)
		if err != nil {
			return err
		}
		for _, r := range rows {
			records = append(records, &productCSV{
				ID:           strconv.FormatInt(r.ID, 10),
				Name:         r.Name,
				Description:  r.Description,
				PriceInCents: r.PriceInCents,
				Available:    r.IsAvailableForPurchase,
				Orders:       r.Orders,
				FilePath:     r.FilePath,
				ImagePath:    r.ImagePath,
				CreatedAt:    r.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
		if int64(page*exportBatch) >= total || len(products) == 0 {
			break
		}
	}

	data, err := gocsv.MarshalBytes(&records)
	if err != nil {
		return err
	}
	noStore(c)
	c.Response().Header().Set(echo.HeaderContentDisposition,
		mime.FormatMediaType("attachment", map[string]string{"filename": "products.csv"}))
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", data)
}

func valuesOf(form catalog.ProductForm) formValues {
	return formValues{Name: form.Name, Description: form.Description, PriceInCents: form.PriceInCents}
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil {
		return 0, echo.ErrNotFound
	}
	return id, nil
}

func productFromParam(c echo.Context) (*domain.Product, error) {
	id, err := parseID(c)
	if err != nil {
		return nil, err
	}
	return webserver.GetAppContext(c).Catalog().Get(c.Request().Context(), id)
}
