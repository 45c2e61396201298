package session

import (
	"strings"

	"github.com/goliatone/go-formguide/pkg/field"
)

// SampleEntry maps name/label substrings to a canned value. The slice order
// is the match priority, which keeps degraded-mode output deterministic.
type SampleEntry struct {
	Keys  []string
	Value string
}

// DefaultSampleData is the built-in degraded-mode dictionary used when the
// mapping service returns nothing usable. Values are plausible solar-permit
// placeholders a preparer would immediately recognise as samples.
func DefaultSampleData() []SampleEntry {
	return []SampleEntry{
		{Keys: []string{"email"}, Value: "john.smith@example.com"},
		{Keys: []string{"phone", "tel", "fax"}, Value: "(555) 123-4567"},
		{Keys: []string{"zip", "postal"}, Value: "92101"},
		{Keys: []string{"city"}, Value: "San Diego"},
		{Keys: []string{"state"}, Value: "CA"},
		{Keys: []string{"address", "street"}, Value: "123 Main Street"},
		{Keys: []string{"company", "business", "contractor", "installer"}, Value: "Sunrise Solar LLC"},
		{Keys: []string{"name", "applicant", "customer", "owner"}, Value: "John Smith"},
		{Keys: []string{"date"}, Value: "2025-01-15"},
		{Keys: []string{"cost", "value", "price", "amount"}, Value: "25000"},
		{Keys: []string{"area", "sqft", "size"}, Value: "450"},
		{Keys: []string{"description", "notes", "scope", "work"}, Value: "Rooftop solar photovoltaic installation"},
	}
}

// SampleValues builds a value map for fields whose id, name, or label
// contains a sample entry key. Radio groups only receive a value when one of
// their options matches it, so the applier never checks a nonsense option.
func SampleValues(samples []SampleEntry, fields []field.LogicalField) field.ValueMap {
	values := field.ValueMap{}
	for _, f := range fields {
		blob := strings.ToLower(f.ID + " " + f.Name + " " + f.Label)
		value, ok := sampleFor(samples, blob)
		if !ok {
			continue
		}
		if f.IsRadioGroup() && !optionMatches(f, value) {
			continue
		}
		values[f.ID] = value
	}
	return values
}

func sampleFor(samples []SampleEntry, blob string) (string, bool) {
	for _, entry := range samples {
		for _, key := range entry.Keys {
			if key != "" && strings.Contains(blob, key) {
				return entry.Value, true
			}
		}
	}
	return "", false
}

func optionMatches(f field.LogicalField, value string) bool {
	lower := strings.ToLower(value)
	for _, opt := range f.Options {
		v := strings.ToLower(opt.Value)
		l := strings.ToLower(opt.Label)
		if v != "" && (strings.Contains(v, lower) || strings.Contains(lower, v)) {
			return true
		}
		if l != "" && (strings.Contains(l, lower) || strings.Contains(lower, l)) {
			return true
		}
	}
	return false
}
