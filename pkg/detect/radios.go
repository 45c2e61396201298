package detect

import (
	"fmt"

	"golang.org/x/net/html"

	"github.com/goliatone/go-formguide/pkg/classify"
	"github.com/goliatone/go-formguide/pkg/field"
	"github.com/goliatone/go-formguide/pkg/page"
)

// labelLikeTags are ancestor-chain siblings that can caption a radio group.
var labelLikeTags = map[string]bool{
	"label": true, "legend": true, "p": true, "span": true, "div": true,
	"strong": true, "b": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// aggregateRadioGroup folds same-name radio controls into one logical choice
// field. members arrive pre-filtered to eligible controls in document order;
// callers drop empty groups before getting here.
func (d *Detector) aggregateRadioGroup(doc *page.Document, resolver *LabelResolver, name string, members []*html.Node) field.LogicalField {
	first := members[0]

	id := name
	if id == "" {
		id = fmt.Sprintf("radio_group_%s", page.Locator(first))
	}

	label := d.radioGroupLabel(resolver, first)
	if label == "" {
		label = field.DefaultLabeler(name)
	}

	options := make([]field.RadioOption, 0, len(members))
	currentValue := ""
	required := false
	for _, m := range members {
		value := page.Attr(m, "value")
		optLabel := resolver.Resolve(m)
		if optLabel == "" {
			optLabel = value
		}
		checked := page.HasAttr(m, "checked")
		if checked {
			currentValue = value
		}
		if page.HasAttr(m, "required") {
			required = true
		}
		options = append(options, field.RadioOption{
			Value:   value,
			Label:   optLabel,
			Checked: checked,
		})
	}

	blob := name + " " + label
	sem := d.classifier.Classify("", blob)

	return field.LogicalField{
		ID:         id,
		Name:       name,
		Kind:       field.KindRadioGroup,
		Semantic:   sem,
		Label:      label,
		Required:   required,
		Confidence: classify.Confidence(sem, required, label),
		Value:      currentValue,
		Locator:    page.Locator(first),
		Options:    options,
	}
}

// radioGroupLabel looks for a group-level caption: a <legend> inside an
// enclosing <fieldset>, then a label-like preceding sibling along the
// ancestor chain, then the first member's own resolved label.
func (d *Detector) radioGroupLabel(resolver *LabelResolver, first *html.Node) string {
	for cur := first.Parent; cur != nil && cur.Type == html.ElementNode; cur = cur.Parent {
		if cur.Data == "fieldset" {
			for c := cur.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode && c.Data == "legend" {
					if text := resolver.clean(page.Text(c)); text != "" {
						return text
					}
				}
			}
		}
	}

	for cur := first; cur != nil && cur.Type == html.ElementNode; cur = cur.Parent {
		for sib := cur.PrevSibling; sib != nil; sib = sib.PrevSibling {
			if sib.Type != html.ElementNode || !labelLikeTags[sib.Data] {
				continue
			}
			text := resolver.clean(page.Text(sib))
			if text != "" && len(text) < maxSiblingLabelLen {
				return text
			}
		}
	}

	return resolver.Resolve(first)
}
