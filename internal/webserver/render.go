package webserver

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/labstack/echo/v4"
)

// TemplateRenderer renders page templates inside their layout. A page at
// "<dir>/<name>.html" is parsed together with "layouts/<dir>.html"; pages at
// the top level use "layouts/shop.html".
type TemplateRenderer struct {
	pages map[string]*template.Template
}

func NewTemplateRenderer(fsys fs.FS, funcs template.FuncMap) (*TemplateRenderer, error) {
	r := &TemplateRenderer{pages: make(map[string]*template.Template)}
	err := fs.WalkDir(fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(name, ".html") || strings.HasPrefix(name, "layouts/") {
			return nil
		}
		layout := "layouts/shop.html"
		if dir := path.Dir(name); dir != "." {
			layout = "layouts/" + dir + ".html"
		}
		t, err := template.New(path.Base(layout)).Funcs(funcs).ParseFS(fsys, layout, name)
		if err != nil {
			return fmt.Errorf("parse template %s: %w", name, err)
		}
		r.pages[name] = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (r *TemplateRenderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("template %s not found", name)
	}
	return t.ExecuteTemplate(w, "layout", data)
}
