package views

import (
	"embed"
	"html/template"
	"io/fs"
	"strings"

	apperrors "github.com/authgate/lambda-oidc-gateway/internal/errors"
)

//go:embed templates/*
var templateFiles embed.FS

//go:embed static/*
var staticFiles embed.FS

var templates = template.Must(template.ParseFS(templateFiles, "templates/*.html"))

// Render executes an embedded template by file name.
func Render(name string, data any) (string, error) {
	var sb strings.Builder
	if err := templates.ExecuteTemplate(&sb, name, data); err != nil {
		return "", apperrors.Wrapf(err, "render template %q", name)
	}
	return sb.String(), nil
}

// StaticFS returns the embedded static asset filesystem.
func StaticFS() fs.FS {
	subFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic("Failed to create static sub filesystem: " + err.Error())
	}
	return subFS
}
