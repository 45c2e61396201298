// Package report renders a detection result for the sidebar: what was found,
// how it was classified, and with what confidence. Renderers register by name
// so callers pick text or HTML output the same way.
package report

import (
	"context"

	"github.com/goliatone/go-formguide/pkg/field"
)

// Options carries per-render adjustments.
type Options struct {
	// Heading overrides the report title; empty falls back to the page title
	// or URL.
	Heading string
	// IncludeValues includes each field's current value in the output.
	IncludeValues bool
}

// Renderer converts a page analysis into a byte representation.
type Renderer interface {
	Name() string
	ContentType() string
	Render(ctx context.Context, analysis field.PageAnalysis, options Options) ([]byte, error)
}
