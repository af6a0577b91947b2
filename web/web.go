// Package web holds the server-rendered pages
package web

import (
	"embed"
	"html/template"
	"time"

	"github.com/kendall-kelly/labtest-api/models"
	"github.com/kendall-kelly/labtest-api/utils"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed templates/*.html
var templateFS embed.FS

// Funcs are the helpers available to every page
func Funcs() template.FuncMap {
	return template.FuncMap{
		"reportURL": utils.ReportURL,
		"statusLabel": func(s models.BookingStatus) string {
			// a Caser keeps state between calls, so each render gets its own
			return cases.Title(language.English).String(string(s))
		},
		"formatTime": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.UTC().Format("2006-01-02 15:04 UTC")
		},
		"isPatient": func(p models.Principal) bool {
			return p != nil && p.Role() == models.RolePatient
		},
		"isTechnician": func(p models.Principal) bool {
			return p != nil && p.Role() == models.RoleTechnician
		},
	}
}

// Templates parses every page. Each page defines a template named after its file.
func Templates() (*template.Template, error) {
	return template.New("").Funcs(Funcs()).ParseFS(templateFS, "templates/*.html")
}
