package webserver

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkincode/digistore/config"
	"github.com/talkincode/digistore/internal/app"
	"github.com/talkincode/digistore/internal/catalog"
	"github.com/talkincode/digistore/internal/testutil"
)

func setupServer(t *testing.T) *echo.Echo {
	cfg := config.DefaultConfig()
	cfg.System.Workdir = t.TempDir()
	require.NoError(t, cfg.InitDirs())
	a := app.NewApplication(cfg)
	a.OverrideDB(testutil.OpenDB(t.TempDir()))
	require.NoError(t, a.Bootstrap())
	t.Cleanup(a.Release)
	Init(a)
	return Echo()
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestApiNotFoundEnvelope(t *testing.T) {
	e := setupServer(t)
	rec := serve(e, httptest.NewRequest(http.MethodGet, "/api/v1/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"NOT_FOUND"`)
}

func TestCatalogNotFoundMapsTo404(t *testing.T) {
	e := setupServer(t)
	GET("/thing", func(c echo.Context) error {
		return errors.Wrap(catalog.ErrNotFound, "load thing")
	})
	rec := serve(e, httptest.NewRequest(http.MethodGet, "/thing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not Found", rec.Body.String())
}

func TestInternalErrorHidesDetails(t *testing.T) {
	e := setupServer(t)
	ApiGET("/boom", func(c echo.Context) error {
		return errors.New("disk on fire")
	})
	rec := serve(e, httptest.NewRequest(http.MethodGet, "/api/v1/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"INTERNAL_ERROR"`)
	assert.NotContains(t, rec.Body.String(), "disk on fire")
}

func TestErrorPageUsesRenderer(t *testing.T) {
	e := setupServer(t)
	r, err := NewTemplateRenderer(fstest.MapFS{
		"layouts/shop.html": {Data: []byte(`{{define "layout"}}<main>{{template "content" .}}</main>{{end}}`)},
		"error.html":        {Data: []byte(`{{define "content"}}{{.Code}} {{.Title}}{{end}}`)},
	}, nil)
	require.NoError(t, err)
	SetRenderer(r)

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "<main>404 Not Found</main>", rec.Body.String())
}

func TestRendererUsesDirectoryLayout(t *testing.T) {
	r, err := NewTemplateRenderer(fstest.MapFS{
		"layouts/shop.html":  {Data: []byte(`{{define "layout"}}shop:{{template "content" .}}{{end}}`)},
		"layouts/admin.html": {Data: []byte(`{{define "layout"}}admin:{{template "content" .}}{{end}}`)},
		"admin/page.html":    {Data: []byte(`{{define "content"}}{{.}}{{end}}`)},
	}, nil)
	require.NoError(t, err)

	var sb strings.Builder
	require.NoError(t, r.Render(&sb, "admin/page.html", "hi", nil))
	assert.Equal(t, "admin:hi", sb.String())
	assert.Error(t, r.Render(&sb, "admin/other.html", nil, nil))
}

func TestFlashRoundTrip(t *testing.T) {
	e := setupServer(t)
	GET("/set", func(c echo.Context) error {
		AddFlash(c, "Product created")
		return c.NoContent(http.StatusNoContent)
	})
	GET("/get", func(c echo.Context) error {
		return c.String(http.StatusOK, strings.Join(Flashes(c), "|"))
	})

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/set", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/get", nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec = serve(e, req)
	assert.Equal(t, "Product created", rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	e := setupServer(t)
	serve(e, httptest.NewRequest(http.MethodGet, "/api/v1/missing", nil))
	rec := serve(e, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "digistore_http_requests_total")
}

func TestValidatorReportsRequiredFields(t *testing.T) {
	var payload struct {
		Available *bool `validate:"required"`
	}
	assert.Error(t, NewValidator().Validate(&payload))
	yes := true
	payload.Available = &yes
	assert.NoError(t, NewValidator().Validate(&payload))
}
