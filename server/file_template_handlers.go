package server

import (
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFiles embed.FS

// The login and success pages ship inside the binary; there are only two and
// they never change at runtime, so they are parsed once at init.
var pageTemplates = template.Must(template.ParseFS(templateFiles, "templates/*.html"))

// lookupTemplate fetches one of the embedded pages by file name.
func lookupTemplate(name string) (*template.Template, error) {
	tmpl := pageTemplates.Lookup(name)
	if tmpl == nil {
		return nil, fmt.Errorf("template %q is not embedded", name)
	}
	return tmpl, nil
}
