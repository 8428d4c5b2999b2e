// Package templates holds the shared page layout and the helpers that turn
// an html/template into a templ.Component.
package templates

import (
	"context"
	"embed"
	"html/template"
	"io"
	"net/url"
	"strconv"

	"github.com/a-h/templ"
)

//go:embed layout.html
var layoutFS embed.FS

// Parse builds a page template on top of the shared layout. The page files
// must define a "content" block and may define "title".
func Parse(fsys embed.FS, patterns ...string) *template.Template {
	t := template.Must(template.New("layout.html").ParseFS(layoutFS, "layout.html"))
	return template.Must(t.ParseFS(fsys, patterns...))
}

// Component renders the named template with data.
func Component(t *template.Template, name string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return t.ExecuteTemplate(w, name, data)
	})
}

// ImageURL routes a remote image through the optimization pipeline.
func ImageURL(src string, width int) string {
	q := url.Values{}
	q.Set("url", src)
	q.Set("w", strconv.Itoa(width))
	return "/_image?" + q.Encode()
}
