// Package classify assigns semantic types and confidence scores to detected
// controls. Classification is an ordered keyword table, not a cascade of
// conditionals: the table ships as embedded YAML so the priority ordering is
// inspectable and testable on its own.
package classify

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formguide/pkg/field"
)

//go:embed keywords.yaml
var defaultTableYAML []byte

// Entry maps one semantic type to the keywords that claim it. Entries are
// evaluated in declaration order; the first substring match wins.
type Entry struct {
	Type     field.SemanticType `yaml:"type"`
	Keywords []string           `yaml:"keywords"`
}

// Classifier holds the priority-ordered keyword table.
type Classifier struct {
	table []Entry
}

// Option customises a Classifier.
type Option func(*Classifier)

// WithTable replaces the embedded keyword table. The slice order is the match
// priority.
func WithTable(table []Entry) Option {
	return func(c *Classifier) {
		c.table = table
	}
}

// New builds a Classifier from the embedded default table unless WithTable
// overrides it.
func New(options ...Option) (*Classifier, error) {
	c := &Classifier{}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(c)
	}
	if c.table == nil {
		table, err := ParseTable(defaultTableYAML)
		if err != nil {
			return nil, err
		}
		c.table = table
	}
	return c, nil
}

// ParseTable decodes a YAML keyword table, preserving declaration order.
func ParseTable(src []byte) ([]Entry, error) {
	var table []Entry
	if err := yaml.Unmarshal(src, &table); err != nil {
		return nil, fmt.Errorf("classify: parse keyword table: %w", err)
	}
	for i, entry := range table {
		if entry.Type == "" {
			return nil, fmt.Errorf("classify: table entry %d has no type", i)
		}
		if len(entry.Keywords) == 0 {
			return nil, fmt.Errorf("classify: table entry %q has no keywords", entry.Type)
		}
	}
	return table, nil
}

// Table returns a copy of the active table in priority order.
func (c *Classifier) Table() []Entry {
	out := make([]Entry, len(c.table))
	copy(out, c.table)
	return out
}

// nativeTypes are input types classified directly, bypassing the table.
var nativeTypes = map[string]field.SemanticType{
	"email":  field.SemanticEmail,
	"tel":    field.SemanticPhone,
	"date":   field.SemanticDate,
	"number": field.SemanticNumber,
	"url":    field.SemanticWebsite,
}

// Classify returns the semantic type for a control. inputType is the native
// control type attribute; blob is the lowercase concatenation of name, id,
// placeholder, and resolved label.
func (c *Classifier) Classify(inputType, blob string) field.SemanticType {
	if sem, ok := nativeTypes[strings.ToLower(inputType)]; ok {
		return sem
	}
	blob = strings.ToLower(blob)
	for _, entry := range c.table {
		for _, kw := range entry.Keywords {
			if kw != "" && strings.Contains(blob, kw) {
				return entry.Type
			}
		}
	}
	return field.SemanticUnknown
}

// Confidence scores a classification: 0.5 for a known semantic type, 0.2 for
// a required control, 0.3 for a usable label, clamped to [0,1]. Summed in
// tenths so a fully-scored field is exactly 1.0.
func Confidence(sem field.SemanticType, required bool, label string) float64 {
	tenths := 0
	if sem != field.SemanticUnknown && sem != "" {
		tenths += 5
	}
	if required {
		tenths += 2
	}
	if len(label) > 2 {
		tenths += 3
	}
	if tenths > 10 {
		tenths = 10
	}
	return float64(tenths) / 10
}
