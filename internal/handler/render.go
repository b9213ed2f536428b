package handler

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Trandsoulz/student-connect-client/internal/guard"
	"github.com/Trandsoulz/student-connect-client/internal/model"
)

//go:embed templates
var templateFS embed.FS

// Renderer implements echo.Renderer over the embedded page templates.  Each
// page is parsed together with the layout and partials into its own set, so
// every page can define "content" independently.
type Renderer struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"date":        formatDate,
	"statusClass": statusClass,
}

func NewRenderer() (*Renderer, error) {
	files, err := fs.Glob(templateFS, "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	r := &Renderer{pages: make(map[string]*template.Template, len(files))}
	for _, f := range files {
		name := strings.TrimSuffix(path.Base(f), ".html")
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS,
			"templates/layout.html", "templates/partials.html", f)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", f, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Render executes the layout for the page template called name.
func (r *Renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown template %q", name)
	}
	return t.ExecuteTemplate(w, "layout", data)
}

// templateFor maps a guard page onto its template file.
func templateFor(p guard.Page) string {
	switch p {
	case guard.PageStudentDetail, guard.PageAdminDetail:
		return "feedback-detail"
	}
	return string(p)
}

func formatDate(v any) string {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return ""
		}
		return t.Format("Jan 2, 2006")
	case *time.Time:
		if t == nil {
			return ""
		}
		return formatDate(*t)
	}
	return ""
}

func statusClass(s model.Status) string {
	return strings.ReplaceAll(strings.ToLower(string(s)), " ", "-")
}
