// Package web renders the server-side HTML pages from embedded templates.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/metube/backend/internal/logging"
	"github.com/metube/backend/internal/models"
	"github.com/metube/backend/internal/timeago"
)

//go:embed templates/*.gohtml
var templateFS embed.FS

// PageData is the envelope handed to every page template.
type PageData struct {
	Title    string
	SiteName string
	LoggedIn bool
	User     models.User
	Error    string
	Flash    string
	Data     any
}

// Renderer executes named page templates against PageData.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the embedded template set.
func NewRenderer() (*Renderer, error) {
	funcs := template.FuncMap{
		"timeago": func(t time.Time) string {
			return timeago.Format(t, time.Now().UTC())
		},
	}

	tmpl, err := template.New("metube").Funcs(funcs).ParseFS(templateFS, "templates/*.gohtml")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	return &Renderer{tmpl: tmpl}, nil
}

// Render writes the named page with the given status code. Template failures
// are buffered so a half-written page never reaches the client.
func (rd *Renderer) Render(w http.ResponseWriter, r *http.Request, status int, name string, data PageData) {
	if data.SiteName == "" {
		data.SiteName = "Metube"
	}

	var buf bytes.Buffer
	if err := rd.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		logging.FromContext(r.Context()).Error("render page", "template", name, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
