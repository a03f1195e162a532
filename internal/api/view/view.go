// Package view renders the server-side HTML pages.
package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/bongocat/webapp/internal/api/session"
	"github.com/bongocat/webapp/internal/core/domain"
)

//go:embed templates/*.html
var files embed.FS

const layoutFile = "templates/layout.html"

var funcs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}

// Page is the data every template receives.
type Page struct {
	Title   string
	Session *domain.Session
	Flashes []session.Flash
	// Error is the inline error of a re-rendered form.
	Error string
	// Form echoes submitted values back into the inputs.
	Form map[string]string
	Data any
}

// Renderer implements echo.Renderer. Each page is parsed together with the
// shared layout and executed through it.
type Renderer struct {
	pages map[string]*template.Template
}

func NewRenderer() (*Renderer, error) {
	names, err := fs.Glob(files, "templates/*.html")
	if err != nil {
		return nil, err
	}

	r := &Renderer{pages: make(map[string]*template.Template, len(names))}
	for _, name := range names {
		if name == layoutFile {
			continue
		}
		tmpl, err := template.New(path.Base(layoutFile)).Funcs(funcs).ParseFS(files, layoutFile, name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		r.pages[strings.TrimSuffix(path.Base(name), ".html")] = tmpl
	}
	return r, nil
}

func (r *Renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	tmpl, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("view: unknown page %q", name)
	}
	return tmpl.ExecuteTemplate(w, "layout", data)
}
