package detect

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/goliatone/go-formguide/pkg/classify"
	"github.com/goliatone/go-formguide/pkg/field"
	"github.com/goliatone/go-formguide/pkg/page"
)

// Detector performs full-document field detection. Detection is pure: each
// call returns a fresh field list and holds no state between passes, so the
// session workflow owns the result, not the detector.
type Detector struct {
	classifier *classify.Classifier
	logger     *zap.Logger
}

// Option customises the Detector.
type Option func(*Detector)

// WithClassifier injects a custom classifier (e.g. with an overridden keyword
// table).
func WithClassifier(c *classify.Classifier) Option {
	return func(d *Detector) {
		d.classifier = c
	}
}

// WithLogger attaches a logger; the default is a nop.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Detector) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// New constructs a Detector, loading the default classifier when none is
// injected.
func New(options ...Option) (*Detector, error) {
	d := &Detector{logger: zap.NewNop()}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(d)
	}
	if d.classifier == nil {
		c, err := classify.New()
		if err != nil {
			return nil, fmt.Errorf("detect: default classifier: %w", err)
		}
		d.classifier = c
	}
	return d, nil
}

// Detect runs the three scan passes in order: form-scoped controls, controls
// outside any form, then controls inside form-like containers. Later passes
// skip anything an earlier pass captured, so running twice on an unchanged
// document yields the same ordered list.
func (d *Detector) Detect(doc *page.Document) []field.LogicalField {
	s := &scan{
		doc:      doc,
		resolver: NewLabelResolver(doc),
		seen:     make(map[*html.Node]bool),
	}

	for _, form := range doc.Forms() {
		d.scanScope(s, controlsUnder(form))
	}
	formPass := len(s.fields)

	d.scanScope(s, standaloneControls(doc))
	standalonePass := len(s.fields) - formPass

	for _, container := range formLikeContainers(doc) {
		d.scanScope(s, controlsUnder(container))
	}

	d.logger.Debug("detection pass complete",
		zap.Int("formFields", formPass),
		zap.Int("standaloneFields", standalonePass),
		zap.Int("totalFields", len(s.fields)))

	return s.fields
}

// Analyze wraps Detect with the page identity, producing the payload shape
// the backend's analyze-fields endpoint consumes.
func (d *Detector) Analyze(doc *page.Document, url string) field.PageAnalysis {
	return field.PageAnalysis{
		URL:       url,
		Title:     doc.Title(),
		Timestamp: time.Now().UTC(),
		Fields:    d.Detect(doc),
	}
}

type scan struct {
	doc      *page.Document
	resolver *LabelResolver
	seen     map[*html.Node]bool
	fields   []field.LogicalField
	ordinal  int
}

// scanScope emits fields for one pass's controls in discovery order. Radio
// groups are aggregated at the position of their first member; nameless
// radios are unprocessable without a group key and are dropped.
func (d *Detector) scanScope(s *scan, controls []*html.Node) {
	for _, n := range controls {
		if s.seen[n] || !page.Eligible(n) {
			continue
		}

		if page.InputType(n) == "radio" {
			name := page.Attr(n, "name")
			if name == "" {
				s.seen[n] = true
				continue
			}
			members := radioMembers(controls, name, s.seen)
			for _, m := range members {
				s.seen[m] = true
			}
			s.fields = append(s.fields, d.aggregateRadioGroup(s.doc, s.resolver, name, members))
			continue
		}

		s.seen[n] = true
		s.fields = append(s.fields, d.buildControlField(s, n))
	}
}

func radioMembers(controls []*html.Node, name string, seen map[*html.Node]bool) []*html.Node {
	var members []*html.Node
	for _, n := range controls {
		if seen[n] || !page.Eligible(n) {
			continue
		}
		if page.InputType(n) == "radio" && page.Attr(n, "name") == name {
			members = append(members, n)
		}
	}
	return members
}

func (d *Detector) buildControlField(s *scan, n *html.Node) field.LogicalField {
	name := page.Attr(n, "name")
	id := page.Attr(n, "id")
	if id == "" {
		id = name
	}
	if id == "" {
		id = fmt.Sprintf("field_%d", s.ordinal)
	}
	s.ordinal++

	label := s.resolver.Resolve(n)
	placeholder := page.Attr(n, "placeholder")
	required := page.HasAttr(n, "required")

	blob := strings.ToLower(strings.Join([]string{name, id, placeholder, label}, " "))
	sem := d.classifier.Classify(page.InputType(n), blob)

	value := page.ControlValue(n)
	if page.InputType(n) == "checkbox" {
		value = ""
		if page.HasAttr(n, "checked") {
			value = "true"
		}
	}

	return field.LogicalField{
		ID:          id,
		Name:        name,
		Kind:        kindFor(n),
		Semantic:    sem,
		Label:       label,
		Placeholder: placeholder,
		Required:    required,
		Confidence:  classify.Confidence(sem, required, label),
		Value:       value,
		Locator:     page.Locator(n),
	}
}

func kindFor(n *html.Node) field.Kind {
	switch n.Data {
	case "select":
		return field.KindSelect
	case "textarea":
		return field.KindTextarea
	}
	switch page.InputType(n) {
	case "email":
		return field.KindEmail
	case "tel":
		return field.KindPhone
	case "date":
		return field.KindDate
	case "number":
		return field.KindNumber
	case "url":
		return field.KindURL
	case "checkbox":
		return field.KindCheckbox
	default:
		return field.KindText
	}
}

func controlsUnder(root *html.Node) []*html.Node {
	var out []*html.Node
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if page.IsControl(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(root)
	return out
}

func standaloneControls(doc *page.Document) []*html.Node {
	var out []*html.Node
	for _, n := range doc.Controls() {
		if !hasFormAncestor(n) {
			out = append(out, n)
		}
	}
	return out
}

func hasFormAncestor(n *html.Node) bool {
	for cur := n.Parent; cur != nil && cur.Type == html.ElementNode; cur = cur.Parent {
		if cur.Data == "form" {
			return true
		}
	}
	return false
}

// containerClassHints flag elements that act as forms without a <form> tag.
var containerClassHints = []string{"form", "input", "field", "survey", "application"}

func formLikeContainers(doc *page.Document) []*html.Node {
	var out []*html.Node
	doc.Walk(func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return true
		}
		switch n.Data {
		case "div", "section", "fieldset", "article":
		default:
			return true
		}
		class := strings.ToLower(page.Attr(n, "class"))
		for _, hint := range containerClassHints {
			if strings.Contains(class, hint) {
				out = append(out, n)
				return true
			}
		}
		return true
	})
	return out
}
