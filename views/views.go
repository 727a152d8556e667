// Package views holds the HTML templates and the renderer controllers write pages with.
package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"time"

	"github.com/cppla/yatube/utils"
)

//go:embed templates
var files embed.FS

//go:embed static
var static embed.FS

// Renderer executes a named page template.
type Renderer interface {
	Render(w io.Writer, name string, data any) error
}

// Templates is the parsed template set.
type Templates struct {
	set *template.Template
}

// Load parses every embedded template. mediaURL prefixes stored media paths.
func Load(mediaURL string) (*Templates, error) {
	funcs := template.FuncMap{
		"linebreaks": utils.LineBreaks,
		"media": func(rel string) string {
			return utils.MediaURL(mediaURL, rel)
		},
		"date": func(t time.Time) string {
			return t.Format("2 Jan 2006")
		},
	}
	set, err := template.New("").Funcs(funcs).ParseFS(files, "templates/*/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Templates{set: set}, nil
}

// Render executes name into a buffer first so a failing template never sends a partial page.
func (t *Templates) Render(w io.Writer, name string, data any) error {
	var buf bytes.Buffer
	if err := t.set.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// Static serves the embedded stylesheets under /static/.
func Static() http.FileSystem {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}
