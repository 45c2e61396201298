package page

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/net/html"
)

// Document wraps a parsed HTML tree and stands in for the live page DOM. All
// detector and applier operations run against it, and mutations performed by
// the applier (value/checked changes, synthetic events) are visible to
// subsequent passes, the same way they would be on a real page.
type Document struct {
	mu     sync.Mutex
	root   *html.Node
	events []Event
}

// Event records one synthetic DOM event dispatched against a control.
type Event struct {
	Type   string
	Target *html.Node
}

// Parse reads an HTML document from r.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("page: parse html: %w", err)
	}
	return &Document{root: root}, nil
}

// ParseString parses an HTML document held in memory.
func ParseString(src string) (*Document, error) {
	return Parse(strings.NewReader(src))
}

// ParseFile parses an HTML document from disk.
func ParseFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("page: open %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Root exposes the underlying tree for traversal.
func (d *Document) Root() *html.Node { return d.root }

// Render serializes the document, including any mutations the applier made.
func (d *Document) Render(w io.Writer) error {
	if err := html.Render(w, d.root); err != nil {
		return fmt.Errorf("page: render html: %w", err)
	}
	return nil
}

// Title returns the document title, or empty if none.
func (d *Document) Title() string {
	var title string
	d.Walk(func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "title" {
			title = strings.TrimSpace(Text(n))
			return false
		}
		return true
	})
	return title
}

// Walk visits nodes depth-first in document order. Returning false from fn
// stops the walk.
func (d *Document) Walk(fn func(*html.Node) bool) {
	walk(d.root, fn)
}

func walk(n *html.Node, fn func(*html.Node) bool) bool {
	if n == nil {
		return true
	}
	if !fn(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, fn) {
			return false
		}
	}
	return true
}

// Controls returns every form control (input, select, textarea) in document
// order, with no eligibility filtering applied.
func (d *Document) Controls() []*html.Node {
	var out []*html.Node
	d.Walk(func(n *html.Node) bool {
		if IsControl(n) {
			out = append(out, n)
		}
		return true
	})
	return out
}

// Forms returns every <form> element in document order.
func (d *Document) Forms() []*html.Node {
	var out []*html.Node
	d.Walk(func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "form" {
			out = append(out, n)
		}
		return true
	})
	return out
}

// ElementByID returns the first element with the given id, or nil.
func (d *Document) ElementByID(id string) *html.Node {
	if id == "" {
		return nil
	}
	var found *html.Node
	d.Walk(func(n *html.Node) bool {
		if n.Type == html.ElementNode && Attr(n, "id") == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// ControlsByName returns all controls sharing the given name attribute.
func (d *Document) ControlsByName(name string) []*html.Node {
	if name == "" {
		return nil
	}
	var out []*html.Node
	for _, n := range d.Controls() {
		if Attr(n, "name") == name {
			out = append(out, n)
		}
	}
	return out
}

// Remove detaches n from the tree. Used to mirror page scripts mutating the
// DOM between detection passes.
func (d *Document) Remove(n *html.Node) {
	if n != nil && n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// SetValue updates a control's value the way a page script would observe it:
// the value attribute for inputs, the selected option for selects, and the
// text content for textareas.
func (d *Document) SetValue(n *html.Node, value string) {
	if n == nil || n.Type != html.ElementNode {
		return
	}
	switch n.Data {
	case "textarea":
		for c := n.FirstChild; c != nil; {
			next := c.NextSibling
			n.RemoveChild(c)
			c = next
		}
		n.AppendChild(&html.Node{Type: html.TextNode, Data: value})
	case "select":
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode || c.Data != "option" {
				continue
			}
			if Attr(c, "value") == value {
				setAttr(c, "selected", "selected")
			} else {
				removeAttr(c, "selected")
			}
		}
	default:
		setAttr(n, "value", value)
	}
}

// SetChecked toggles the checked state of a radio or checkbox control. For
// radios, checking one member clears its same-name siblings first.
func (d *Document) SetChecked(n *html.Node, checked bool) {
	if n == nil {
		return
	}
	if checked && InputType(n) == "radio" {
		for _, sib := range d.ControlsByName(Attr(n, "name")) {
			if sib != n && InputType(sib) == "radio" {
				removeAttr(sib, "checked")
			}
		}
	}
	if checked {
		setAttr(n, "checked", "checked")
	} else {
		removeAttr(n, "checked")
	}
}

// Dispatch records a synthetic event against a control. Embedders forward
// these to whatever event system hosts the page.
func (d *Document) Dispatch(n *html.Node, eventType string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, Event{Type: eventType, Target: n})
}

// Events returns all synthetic events dispatched so far, in order.
func (d *Document) Events() []Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Event, len(d.events))
	copy(out, d.events)
	return out
}

// EventCount reports how many events of the given type were dispatched
// against n.
func (d *Document) EventCount(n *html.Node, eventType string) int {
	count := 0
	for _, ev := range d.Events() {
		if ev.Target == n && ev.Type == eventType {
			count++
		}
	}
	return count
}

// ResetEvents clears the synthetic event log.
func (d *Document) ResetEvents() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = nil
}

// IsControl reports whether n is a form control element.
func IsControl(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	switch n.Data {
	case "input", "select", "textarea":
		return true
	}
	return false
}

// InputType returns the lowercase type attribute of an input, defaulting to
// "text". Non-input controls return their tag name.
func InputType(n *html.Node) string {
	if n == nil || n.Type != html.ElementNode {
		return ""
	}
	if n.Data != "input" {
		return n.Data
	}
	t := strings.ToLower(strings.TrimSpace(Attr(n, "type")))
	if t == "" {
		return "text"
	}
	return t
}

// ControlValue returns the control's current value: the value attribute for
// inputs, the selected option's value for selects, the text content for
// textareas.
func ControlValue(n *html.Node) string {
	if n == nil || n.Type != html.ElementNode {
		return ""
	}
	switch n.Data {
	case "textarea":
		return strings.TrimSpace(Text(n))
	case "select":
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.Data == "option" && HasAttr(c, "selected") {
				return Attr(c, "value")
			}
		}
		return ""
	default:
		return Attr(n, "value")
	}
}

// Attr returns the named attribute value, or empty string.
func Attr(n *html.Node, key string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// HasAttr reports whether the attribute is present at all, regardless of
// value (boolean attributes like required, disabled, checked).
func HasAttr(n *html.Node, key string) bool {
	if n == nil {
		return false
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

// Text returns the concatenated text content of n's subtree.
func Text(n *html.Node) string {
	var sb strings.Builder
	collectText(n, &sb)
	return sb.String()
}

func collectText(n *html.Node, sb *strings.Builder) {
	if n == nil {
		return
	}
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, sb)
	}
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}
