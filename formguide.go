// Package formguide wires the Smart Form Guide core together: a page-bound
// content runtime, the bus that stands in for extension message passing, the
// backend client, and the sidebar session workflow. Callers that just want
// field detection can use the one-shot helpers at the bottom.
package formguide

import (
	"context"

	"go.uber.org/zap"

	"github.com/goliatone/go-formguide/internal/content"
	"github.com/goliatone/go-formguide/internal/watch"
	"github.com/goliatone/go-formguide/pkg/backend"
	"github.com/goliatone/go-formguide/pkg/bus"
	"github.com/goliatone/go-formguide/pkg/detect"
	"github.com/goliatone/go-formguide/pkg/field"
	"github.com/goliatone/go-formguide/pkg/page"
	"github.com/goliatone/go-formguide/pkg/report"
	"github.com/goliatone/go-formguide/pkg/session"
)

// LogicalField aliases the shared field model for convenience.
type LogicalField = field.LogicalField

// Project aliases the backend-owned project entity.
type Project = field.Project

// ValueMap aliases the AI mapping result type.
type ValueMap = field.ValueMap

// Guide bundles one page's runtime with a session workflow talking to one
// backend.
type Guide struct {
	bus     *bus.Bus
	runtime *content.Runtime
	session *session.Session
	logger  *zap.Logger
}

// Option customises Guide construction.
type Option func(*config)

type config struct {
	logger    *zap.Logger
	authToken string
}

// WithLogger attaches a logger to every component; the default is a nop.
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithAuthToken forwards a bearer token to the backend client.
func WithAuthToken(token string) Option {
	return func(c *config) {
		c.authToken = token
	}
}

// New builds a Guide for the given backend base URL.
func New(backendURL string, options ...Option) (*Guide, error) {
	cfg := &config{logger: zap.NewNop()}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(cfg)
	}

	b := bus.New(cfg.logger)

	runtime, err := content.New(b, content.WithLogger(cfg.logger))
	if err != nil {
		return nil, err
	}

	var clientOptions []backend.Option
	clientOptions = append(clientOptions, backend.WithLogger(cfg.logger))
	if cfg.authToken != "" {
		clientOptions = append(clientOptions, backend.WithAuthToken(cfg.authToken))
	}
	client, err := backend.NewClient(backendURL, clientOptions...)
	if err != nil {
		return nil, err
	}

	sess := session.New(
		bus.NewContentClient(b),
		client,
		session.WithLogger(cfg.logger),
		session.WithInjector(runtime),
	)

	return &Guide{
		bus:     b,
		runtime: runtime,
		session: sess,
		logger:  cfg.logger,
	}, nil
}

// LoadPage binds a parsed document as the active page.
func (g *Guide) LoadPage(doc *page.Document, url string) {
	g.runtime.SetDocument(doc, url)
	g.session.SetPage(url, doc.Title())
}

// LoadPageFile parses and binds an HTML file as the active page.
func (g *Guide) LoadPageFile(path string) (*page.Document, error) {
	doc, err := page.ParseFile(path)
	if err != nil {
		return nil, err
	}
	g.LoadPage(doc, "file://"+path)
	return doc, nil
}

// Start attaches the content runtime to the bus. The session can also start
// it lazily through the injection fallback; calling Start up front just
// avoids the first-request timeout.
func (g *Guide) Start(ctx context.Context) error {
	return g.runtime.Start(ctx)
}

// Session exposes the workflow state machine.
func (g *Guide) Session() *session.Session { return g.session }

// Bus exposes the message channel, mainly for watchers and tests.
func (g *Guide) Bus() *bus.Bus { return g.bus }

// WatchPage re-triggers detection whenever the page source file changes,
// re-parsing it first. Blocks until ctx is done.
func (g *Guide) WatchPage(ctx context.Context, path string) error {
	g.runtime.SetReloader(func() (*page.Document, error) {
		return page.ParseFile(path)
	})
	return watch.New(g.bus, g.logger).Watch(ctx, path)
}

// Close releases the bus.
func (g *Guide) Close() error {
	return g.bus.Close()
}

// DetectHTML runs one detection pass over an HTML snippet. It is the simplest
// entry point for callers that just want the field list.
func DetectHTML(src string, options ...detect.Option) ([]field.LogicalField, error) {
	doc, err := page.ParseString(src)
	if err != nil {
		return nil, err
	}
	return DetectDocument(doc, options...)
}

// DetectDocument runs one detection pass over a parsed document.
func DetectDocument(doc *page.Document, options ...detect.Option) ([]field.LogicalField, error) {
	detector, err := detect.New(options...)
	if err != nil {
		return nil, err
	}
	return detector.Detect(doc), nil
}

// RenderReport renders a page analysis with the named built-in renderer
// ("text" or "html").
func RenderReport(ctx context.Context, analysis field.PageAnalysis, rendererName string, options report.Options) ([]byte, error) {
	registry, err := report.DefaultRegistry()
	if err != nil {
		return nil, err
	}
	renderer, err := registry.Get(rendererName)
	if err != nil {
		return nil, err
	}
	return renderer.Render(ctx, analysis, options)
}
