package detect

import (
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"

	"github.com/goliatone/go-formguide/pkg/page"
)

// maxSiblingLabelLen caps how much preceding-sibling text is accepted as a
// caption; longer runs are prose, not labels.
const maxSiblingLabelLen = 100

var whitespaceRun = regexp.MustCompile(`\s+`)

// LabelResolver finds the best human-readable caption for a control. Absence
// of a label is a normal outcome (empty string), never an error.
type LabelResolver struct {
	doc    *page.Document
	policy *bluemonday.Policy
}

// NewLabelResolver builds a resolver bound to one document. Captions are run
// through a strict sanitizer because they come from arbitrary pages and end
// up in backend payloads and rendered reports.
func NewLabelResolver(doc *page.Document) *LabelResolver {
	return &LabelResolver{
		doc:    doc,
		policy: bluemonday.StrictPolicy(),
	}
}

// Resolve searches, in order: an associated <label for=...>, a wrapping
// <label> ancestor, aria-label, aria-labelledby, then nearby preceding text.
// The first non-empty candidate wins.
func (r *LabelResolver) Resolve(n *html.Node) string {
	if n == nil {
		return ""
	}

	if label := r.associatedLabel(n); label != "" {
		return label
	}
	if label := r.wrappingLabel(n); label != "" {
		return label
	}
	if label := r.clean(page.Attr(n, "aria-label")); label != "" {
		return label
	}
	if label := r.labelledBy(n); label != "" {
		return label
	}
	return r.nearbyText(n)
}

func (r *LabelResolver) associatedLabel(n *html.Node) string {
	id := page.Attr(n, "id")
	if id == "" {
		return ""
	}
	var label string
	r.doc.Walk(func(cand *html.Node) bool {
		if cand.Type == html.ElementNode && cand.Data == "label" && page.Attr(cand, "for") == id {
			label = r.clean(page.Text(cand))
			return false
		}
		return true
	})
	return label
}

func (r *LabelResolver) wrappingLabel(n *html.Node) string {
	for cur := n.Parent; cur != nil && cur.Type == html.ElementNode; cur = cur.Parent {
		if cur.Data != "label" {
			continue
		}
		text := page.Text(cur)
		// the label's text includes the control's own content; strip the
		// current value so it never leaks into the caption
		if value := page.ControlValue(n); value != "" {
			text = strings.ReplaceAll(text, value, "")
		}
		return r.clean(text)
	}
	return ""
}

func (r *LabelResolver) labelledBy(n *html.Node) string {
	ref := strings.TrimSpace(page.Attr(n, "aria-labelledby"))
	if ref == "" {
		return ""
	}
	var parts []string
	for _, id := range strings.Fields(ref) {
		if el := r.doc.ElementByID(id); el != nil {
			if text := r.clean(page.Text(el)); text != "" {
				parts = append(parts, text)
			}
		}
	}
	return strings.Join(parts, " ")
}

// nearbyText tries the control's preceding siblings, then the parent's
// preceding siblings, then text nodes directly under the parent.
func (r *LabelResolver) nearbyText(n *html.Node) string {
	if label := r.precedingSiblingText(n); label != "" {
		return label
	}
	if n.Parent != nil {
		if label := r.precedingSiblingText(n.Parent); label != "" {
			return label
		}
		if label := r.directTextUnder(n.Parent, n); label != "" {
			return label
		}
	}
	return ""
}

func (r *LabelResolver) precedingSiblingText(n *html.Node) string {
	for sib := n.PrevSibling; sib != nil; sib = sib.PrevSibling {
		if sib.Type != html.ElementNode {
			continue
		}
		text := r.clean(page.Text(sib))
		if text != "" && len(text) < maxSiblingLabelLen {
			return text
		}
	}
	return ""
}

func (r *LabelResolver) directTextUnder(parent, skip *html.Node) string {
	var sb strings.Builder
	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		if c == skip || c.Type != html.TextNode {
			continue
		}
		sb.WriteString(c.Data)
	}
	text := r.clean(sb.String())
	if text == "" || len(text) >= maxSiblingLabelLen {
		return ""
	}
	return text
}

// clean sanitizes a caption candidate, collapses whitespace runs, and strips
// trailing colon/asterisk decoration.
func (r *LabelResolver) clean(raw string) string {
	text := r.policy.Sanitize(raw)
	text = whitespaceRun.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)
	text = strings.TrimRight(text, ":* ")
	return text
}
