package server

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var templateFiles embed.FS

// ParseTemplate parses a page template from the embedded templates directory
func ParseTemplate(name string) (*template.Template, error) {
	return template.New(name).ParseFS(templateFiles, "templates/"+name)
}
