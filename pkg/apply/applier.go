// Package apply writes an AI-proposed value map back onto the live page:
// radio groups are matched fuzzily against option values and labels, other
// controls are resolved by id, name, then partial match, and every mutation
// dispatches the synthetic input/change events page scripts listen for.
package apply

import (
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/goliatone/go-formguide/pkg/detect"
	"github.com/goliatone/go-formguide/pkg/field"
	"github.com/goliatone/go-formguide/pkg/page"
)

// Applier fills controls from a value map. Keys the page has no control for
// are skipped, not errors: the backend may propose fields this page revision
// simply does not have.
type Applier struct {
	logger *zap.Logger
}

// Option customises an Applier.
type Option func(*Applier)

// WithLogger attaches a logger; the default is a nop.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Applier) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New constructs an Applier.
func New(options ...Option) *Applier {
	a := &Applier{logger: zap.NewNop()}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(a)
	}
	return a
}

// Apply fills every fillable entry of values into doc and returns how many
// controls were actually set. Keys are processed in sorted order so repeated
// runs mutate the document identically.
func (a *Applier) Apply(doc *page.Document, values field.ValueMap) int {
	keys := make([]string, 0, len(values))
	for key := range values {
		if values.Fillable(key) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	resolver := detect.NewLabelResolver(doc)
	filled := 0
	for _, key := range keys {
		value := values[key]

		if radios := namedRadios(doc, key); len(radios) > 0 {
			if a.fillRadioGroup(doc, resolver, radios, value) {
				filled++
			} else {
				a.logger.Debug("no radio option matched", zap.String("group", key), zap.String("value", value))
			}
			continue
		}

		control := resolveControl(doc, key)
		if control == nil {
			a.logger.Debug("no control for mapped key", zap.String("key", key))
			continue
		}
		a.fillControl(doc, control, value)
		filled++
	}

	a.logger.Info("value map applied", zap.Int("filled", filled), zap.Int("proposed", len(values)))
	return filled
}

// fillRadioGroup checks the member whose value or resolved label fuzzily
// matches the proposed value.
func (a *Applier) fillRadioGroup(doc *page.Document, resolver *detect.LabelResolver, radios []*html.Node, value string) bool {
	for _, radio := range radios {
		if fuzzyMatch(page.Attr(radio, "value"), value) || fuzzyMatch(resolver.Resolve(radio), value) {
			doc.SetChecked(radio, true)
			doc.Dispatch(radio, "input")
			doc.Dispatch(radio, "change")
			return true
		}
	}
	return false
}

func (a *Applier) fillControl(doc *page.Document, control *html.Node, value string) {
	switch page.InputType(control) {
	case "checkbox", "radio":
		doc.SetChecked(control, truthy(value))
	default:
		doc.SetValue(control, value)
	}
	doc.Dispatch(control, "input")
	doc.Dispatch(control, "change")
}

func namedRadios(doc *page.Document, name string) []*html.Node {
	var out []*html.Node
	for _, n := range doc.ControlsByName(name) {
		if page.InputType(n) == "radio" {
			out = append(out, n)
		}
	}
	return out
}

// resolveControl tries exact id, exact name, then partial id/name matches, in
// document order.
func resolveControl(doc *page.Document, key string) *html.Node {
	controls := doc.Controls()
	for _, n := range controls {
		if page.Attr(n, "id") == key {
			return n
		}
	}
	for _, n := range controls {
		if page.Attr(n, "name") == key {
			return n
		}
	}
	for _, n := range controls {
		if partialMatch(page.Attr(n, "id"), key) || partialMatch(page.Attr(n, "name"), key) {
			return n
		}
	}
	return nil
}

// fuzzyMatch is a case-insensitive substring test in either direction.
func fuzzyMatch(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func partialMatch(attr, key string) bool {
	if attr == "" || key == "" {
		return false
	}
	return fuzzyMatch(attr, key)
}

var truthyValues = map[string]bool{
	"true": true, "yes": true, "on": true, "1": true, "checked": true,
}

func truthy(v string) bool {
	return truthyValues[strings.ToLower(strings.TrimSpace(v))]
}
