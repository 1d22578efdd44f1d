package web

import (
	"embed"
	"html/template"
	"io/fs"
	"strconv"
	"sync"

	"deliverystats/internal/stats"
)

//go:embed *.html app.css
var content embed.FS

var (
	tmpl *template.Template
	once sync.Once
)

var funcs = template.FuncMap{
	"minutes": stats.FormatMinutes,
	"pct": func(v float64) string {
		return strconv.FormatFloat(v, 'f', 2, 64) + "%"
	},
	"num": func(v float64) string {
		return strconv.FormatFloat(v, 'f', 2, 64)
	},
}

// Templates returns the parsed HTML templates, embedded at build time.
// layout.html renders the page named by LayoutData.PageTemplate
// (dashboard.html, forecast.html); login.html stands alone.
func Templates() *template.Template {
	once.Do(func() {
		tmpl = template.Must(template.New("ui").Funcs(funcs).ParseFS(content, "*.html"))
	})
	return tmpl
}

// StaticFS exposes embedded static assets such as CSS.
func StaticFS() fs.FS {
	return content
}
