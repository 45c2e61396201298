package report

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-formguide/pkg/field"
)

//go:embed templates
var templateFS embed.FS

// HTMLRenderer renders the field summary through a pongo2 template set.
type HTMLRenderer struct {
	template *pongo2.Template
}

// NewHTMLRenderer loads the embedded report template.
func NewHTMLRenderer() (*HTMLRenderer, error) {
	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("report: template fs: %w", err)
	}

	set := pongo2.NewSet("formguide-report", pongo2.NewFSLoader(sub))
	tpl, err := set.FromFile("report.html.tpl")
	if err != nil {
		return nil, fmt.Errorf("report: load template: %w", err)
	}
	return &HTMLRenderer{template: tpl}, nil
}

// Name implements Renderer.
func (r *HTMLRenderer) Name() string { return "html" }

// ContentType implements Renderer.
func (r *HTMLRenderer) ContentType() string { return "text/html; charset=utf-8" }

// Render implements Renderer.
func (r *HTMLRenderer) Render(_ context.Context, analysis field.PageAnalysis, options Options) ([]byte, error) {
	heading := options.Heading
	if heading == "" {
		heading = analysis.Title
	}
	if heading == "" {
		heading = "Detected form fields"
	}

	out, err := r.template.ExecuteBytes(pongo2.Context{
		"heading":       heading,
		"url":           analysis.URL,
		"fieldCount":    len(analysis.Fields),
		"fields":        analysis.Fields,
		"includeValues": options.IncludeValues,
	})
	if err != nil {
		return nil, fmt.Errorf("report: render html: %w", err)
	}
	return out, nil
}
