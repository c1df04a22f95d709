// Package web serves the server-rendered customer pages and the admin
// product pages with their form actions.
package web

import (
	"embed"
	"html/template"
	"io/fs"

	"github.com/talkincode/digistore/internal/webserver"
	"github.com/talkincode/digistore/pkg/formatters"
)

//go:embed templates
var templatesFS embed.FS

// TemplateFuncs are available to every page template.
var TemplateFuncs = template.FuncMap{
	"currency": func(cents int64) string {
		return formatters.FormatCurrency(float64(cents) / 100)
	},
	"number": formatters.FormatNumber,
}

// Init installs the renderer and registers the HTML routes on the global web server.
func Init() error {
	sub, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		return err
	}
	renderer, err := webserver.NewTemplateRenderer(sub, TemplateFuncs)
	if err != nil {
		return err
	}
	webserver.SetRenderer(renderer)

	registerShopRoutes()
	registerAdminRoutes()
	registerProductRoutes()
	return nil
}

type pageMeta struct {
	Title   string
	Flashes []string
}
