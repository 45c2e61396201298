package page

import (
	"strings"

	"golang.org/x/net/html"
)

// nonFillableTypes are input types that never represent user-fillable data.
var nonFillableTypes = map[string]bool{
	"hidden": true,
	"submit": true,
	"button": true,
	"image":  true,
	"reset":  true,
}

// Eligible reports whether a control should enter detection at all: it must
// be a fillable type, enabled, and visible. The same filter gates both the
// standalone passes and radio grouping.
func Eligible(n *html.Node) bool {
	if !IsControl(n) {
		return false
	}
	if n.Data == "input" && nonFillableTypes[InputType(n)] {
		return false
	}
	if HasAttr(n, "disabled") {
		return false
	}
	return Visible(n)
}

// Visible evaluates rendered visibility without a layout engine: the hidden
// attribute, inline display/visibility/opacity rules on the control or any
// ancestor, and explicit zero width/height all hide a control.
func Visible(n *html.Node) bool {
	for cur := n; cur != nil && cur.Type == html.ElementNode; cur = cur.Parent {
		if HasAttr(cur, "hidden") {
			return false
		}
		style := parseInlineStyle(Attr(cur, "style"))
		if style["display"] == "none" || style["visibility"] == "hidden" {
			return false
		}
		if op, ok := style["opacity"]; ok && isZeroLength(op) {
			return false
		}
		if w, ok := style["width"]; ok && isZeroLength(w) {
			return false
		}
		if h, ok := style["height"]; ok && isZeroLength(h) {
			return false
		}
	}
	if isZeroLength(Attr(n, "width")) || isZeroLength(Attr(n, "height")) {
		return false
	}
	return true
}

func parseInlineStyle(style string) map[string]string {
	if style == "" {
		return nil
	}
	out := make(map[string]string)
	for _, decl := range strings.Split(style, ";") {
		key, val, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		out[strings.ToLower(strings.TrimSpace(key))] = strings.ToLower(strings.TrimSpace(val))
	}
	return out
}

// isZeroLength matches "0", "0px", "0.0" and similar; empty strings are not
// zero.
func isZeroLength(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return false
	}
	v = strings.TrimSuffix(v, "px")
	v = strings.TrimSuffix(v, "%")
	v = strings.TrimSpace(v)
	for _, r := range v {
		if r != '0' && r != '.' {
			return false
		}
	}
	return v != "" && v != "."
}
