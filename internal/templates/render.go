// Package templates handles HTML template rendering for Datastar SSE responses.
package templates

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"os"
	"sync"

	"github.com/joeblew999/qgeomap/internal/entry"
)

//go:embed fragments/*.html
var embedded embed.FS

// funcMap provides common template functions.
var funcMap = template.FuncMap{
	// dict creates a map from key-value pairs, useful for passing multiple values to nested templates
	"dict": func(values ...any) map[string]any {
		if len(values)%2 != 0 {
			return nil
		}
		m := make(map[string]any, len(values)/2)
		for i := 0; i < len(values); i += 2 {
			key, ok := values[i].(string)
			if !ok {
				continue
			}
			m[key] = values[i+1]
		}
		return m
	},
	"kindLabel": func(k entry.Kind) string {
		if k == entry.KindAny {
			return "any shape"
		}
		return string(k)
	},
}

// Renderer manages HTML fragment templates.
type Renderer struct {
	templates *template.Template
	mu        sync.RWMutex
}

func parse(fsys fs.FS) (*template.Template, error) {
	return template.New("").Funcs(funcMap).ParseFS(fsys, "*.html")
}

// New creates a renderer from the fragments directory on disk,
// e.g. web/templates/fragments.
func New(fragmentsDir string) (*Renderer, error) {
	tmpl, err := parse(os.DirFS(fragmentsDir))
	if err != nil {
		return nil, err
	}
	return &Renderer{templates: tmpl}, nil
}

// NewEmbedded creates a renderer from the fragments compiled into the binary.
func NewEmbedded() (*Renderer, error) {
	sub, err := fs.Sub(embedded, "fragments")
	if err != nil {
		return nil, err
	}
	tmpl, err := parse(sub)
	if err != nil {
		return nil, err
	}
	return &Renderer{templates: tmpl}, nil
}

// Render renders a named template to a string.
func (r *Renderer) Render(name string, data any) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Reload reloads templates from disk (useful for dev hot-reload).
func (r *Renderer) Reload(fragmentsDir string) error {
	tmpl, err := parse(os.DirFS(fragmentsDir))
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.templates = tmpl
	r.mu.Unlock()

	return nil
}
