package page

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Locator synthesizes an XPath-style structural path for n, usable to re-find
// the same control on an unchanged document. Positions are 1-based among
// same-tag element siblings.
func Locator(n *html.Node) string {
	if n == nil || n.Type != html.ElementNode {
		return ""
	}
	var segments []string
	for cur := n; cur != nil && cur.Type == html.ElementNode; cur = cur.Parent {
		segments = append(segments, fmt.Sprintf("%s[%d]", cur.Data, siblingIndex(cur)))
	}
	// reverse into root-first order
	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}
	return "/" + strings.Join(segments, "/")
}

func siblingIndex(n *html.Node) int {
	index := 1
	for sib := n.PrevSibling; sib != nil; sib = sib.PrevSibling {
		if sib.Type == html.ElementNode && sib.Data == n.Data {
			index++
		}
	}
	return index
}

// ResolveLocator walks a Locator path back to its element, or returns nil if
// the document has changed shape underneath it.
func (d *Document) ResolveLocator(locator string) *html.Node {
	if locator == "" || !strings.HasPrefix(locator, "/") {
		return nil
	}
	cur := d.root
	for _, seg := range strings.Split(strings.TrimPrefix(locator, "/"), "/") {
		tag, idx, ok := parseSegment(seg)
		if !ok {
			return nil
		}
		cur = childAt(cur, tag, idx)
		if cur == nil {
			return nil
		}
	}
	return cur
}

func parseSegment(seg string) (string, int, bool) {
	open := strings.IndexByte(seg, '[')
	if open <= 0 || !strings.HasSuffix(seg, "]") {
		return "", 0, false
	}
	tag := seg[:open]
	var idx int
	if _, err := fmt.Sscanf(seg[open:], "[%d]", &idx); err != nil || idx < 1 {
		return "", 0, false
	}
	return tag, idx, true
}

func childAt(parent *html.Node, tag string, idx int) *html.Node {
	seen := 0
	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag {
			seen++
			if seen == idx {
				return c
			}
		}
	}
	return nil
}
