// Package web embeds the HTML templates rendered by the router.
package web

import (
	"embed"         // Embedded template files
	"html/template" // HTML templates
)

//go:embed templates/*.html
var files embed.FS

// Templates parses every page and the shared layout blocks
func Templates() (*template.Template, error) {
	return template.New("").ParseFS(files, "templates/*.html")
}
