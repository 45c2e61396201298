package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-formguide/pkg/field"
)

// TextRenderer writes a plain-text field summary, one field per line.
type TextRenderer struct{}

// NewTextRenderer constructs the text renderer.
func NewTextRenderer() *TextRenderer { return &TextRenderer{} }

// Name implements Renderer.
func (r *TextRenderer) Name() string { return "text" }

// ContentType implements Renderer.
func (r *TextRenderer) ContentType() string { return "text/plain; charset=utf-8" }

// Render implements Renderer.
func (r *TextRenderer) Render(_ context.Context, analysis field.PageAnalysis, options Options) ([]byte, error) {
	var sb strings.Builder

	heading := options.Heading
	if heading == "" {
		heading = analysis.Title
	}
	if heading == "" {
		heading = analysis.URL
	}
	fmt.Fprintf(&sb, "%s\n", heading)
	fmt.Fprintf(&sb, "%d fields detected\n\n", len(analysis.Fields))

	for _, f := range analysis.Fields {
		label := f.Label
		if label == "" {
			label = field.DefaultLabeler(f.Name)
		}
		fmt.Fprintf(&sb, "- %s [%s/%s] id=%s confidence=%.2f", label, f.Kind, f.Semantic, f.ID, f.Confidence)
		if f.Required {
			sb.WriteString(" required")
		}
		if options.IncludeValues && f.Value != "" {
			fmt.Fprintf(&sb, " value=%q", f.Value)
		}
		sb.WriteString("\n")
		for _, opt := range f.Options {
			marker := " "
			if opt.Checked {
				marker = "x"
			}
			fmt.Fprintf(&sb, "    [%s] %s (%s)\n", marker, opt.Label, opt.Value)
		}
	}

	return []byte(sb.String()), nil
}
