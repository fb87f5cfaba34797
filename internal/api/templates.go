package api

import (
	"embed"
	"html/template"
)

//go:embed templates/*
var templateFS embed.FS

// newTemplates creates and parses the HTML templates with custom functions.
func newTemplates() *template.Template {
	funcs := template.FuncMap{
		"statusClass": func(status string) string {
			switch status {
			case "CRITICAL_FLOOD":
				return "critical"
			case "FLOOD_RISK":
				return "risk"
			case "RAIN_ALERT":
				return "alert"
			default:
				return "normal"
			}
		},
		"deref": func(f *float64) float64 {
			if f == nil {
				return 0
			}
			return *f
		},
	}
	return template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))
}
