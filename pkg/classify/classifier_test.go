package classify

import (
	"testing"

	"github.com/goliatone/go-formguide/pkg/field"
)

func mustClassifier(t *testing.T, options ...Option) *Classifier {
	t.Helper()
	c, err := New(options...)
	if err != nil {
		t.Fatalf("new classifier: %v", err)
	}
	return c
}

func TestNativeTypePrecedence(t *testing.T) {
	c := mustClassifier(t)

	cases := []struct {
		inputType string
		want      field.SemanticType
	}{
		{"email", field.SemanticEmail},
		{"tel", field.SemanticPhone},
		{"date", field.SemanticDate},
		{"number", field.SemanticNumber},
		{"url", field.SemanticWebsite},
	}
	for _, tc := range cases {
		// the blob screams "name" but native type must win
		if got := c.Classify(tc.inputType, "customer name"); got != tc.want {
			t.Fatalf("Classify(%q) = %q, want %q", tc.inputType, got, tc.want)
		}
	}
}

func TestTableOrderIsPriority(t *testing.T) {
	c := mustClassifier(t)

	// "project name" contains keywords for both name and project_description;
	// name is declared first and must win
	if got := c.Classify("text", "project name"); got != field.SemanticName {
		t.Fatalf("expected name to win for %q, got %q", "project name", got)
	}

	// without a name keyword, project wins
	if got := c.Classify("text", "project scope of work"); got != field.SemanticProjectDescription {
		t.Fatalf("expected project_description, got %q", got)
	}
}

func TestClassifyUnknown(t *testing.T) {
	c := mustClassifier(t)
	if got := c.Classify("text", "xyzzy quux"); got != field.SemanticUnknown {
		t.Fatalf("expected unknown, got %q", got)
	}
}

func TestClassifyCommonFields(t *testing.T) {
	c := mustClassifier(t)
	cases := []struct {
		blob string
		want field.SemanticType
	}{
		{"customer_name applicant", field.SemanticName},
		{"email_address", field.SemanticEmail},
		{"phone number mobile", field.SemanticPhone},
		{"street address line 1", field.SemanticAddress},
		{"zip code", field.SemanticZip},
		{"system cost valuation", field.SemanticValue},
		{"roof area sqft", field.SemanticArea},
		{"permit type", field.SemanticPermitType},
		{"contractor company", field.SemanticCompany},
	}
	for _, tc := range cases {
		if got := c.Classify("text", tc.blob); got != tc.want {
			t.Fatalf("Classify(%q) = %q, want %q", tc.blob, got, tc.want)
		}
	}
}

func TestCustomTable(t *testing.T) {
	c := mustClassifier(t, WithTable([]Entry{
		{Type: field.SemanticCompany, Keywords: []string{"installer"}},
	}))
	if got := c.Classify("text", "installer name"); got != field.SemanticCompany {
		t.Fatalf("custom table: got %q", got)
	}
	if got := c.Classify("text", "customer name"); got != field.SemanticUnknown {
		t.Fatalf("custom table should not know names, got %q", got)
	}
}

func TestParseTableRejectsBadEntries(t *testing.T) {
	if _, err := ParseTable([]byte("- type: name\n  keywords: []\n")); err == nil {
		t.Fatalf("expected error for empty keyword list")
	}
	if _, err := ParseTable([]byte("- keywords: [x]\n")); err == nil {
		t.Fatalf("expected error for missing type")
	}
}

func TestConfidenceScoring(t *testing.T) {
	// required, labeled, classified: exactly 1.0
	if got := Confidence(field.SemanticName, true, "Customer Name"); got != 1.0 {
		t.Fatalf("full confidence mismatch: got %v", got)
	}
	// unknown, optional, unlabeled: exactly 0
	if got := Confidence(field.SemanticUnknown, false, ""); got != 0 {
		t.Fatalf("zero confidence mismatch: got %v", got)
	}
	// short labels don't count
	if got := Confidence(field.SemanticUnknown, false, "ok"); got != 0 {
		t.Fatalf("two-char label must not score: got %v", got)
	}

	combos := []struct {
		sem      field.SemanticType
		required bool
		label    string
		want     float64
	}{
		{field.SemanticEmail, false, "", 0.5},
		{field.SemanticUnknown, true, "", 0.2},
		{field.SemanticUnknown, false, "Email", 0.3},
		{field.SemanticEmail, true, "", 0.7},
		{field.SemanticEmail, false, "Email", 0.8},
	}
	for _, tc := range combos {
		got := Confidence(tc.sem, tc.required, tc.label)
		if diff := got - tc.want; diff > 1e-9 || diff < -1e-9 {
			t.Fatalf("Confidence(%q,%v,%q) = %v, want %v", tc.sem, tc.required, tc.label, got, tc.want)
		}
		if got < 0 || got > 1 {
			t.Fatalf("confidence out of range: %v", got)
		}
	}
}

func TestDefaultTableOrderStable(t *testing.T) {
	c := mustClassifier(t)
	table := c.Table()
	if len(table) == 0 {
		t.Fatalf("empty default table")
	}
	if table[0].Type != field.SemanticName {
		t.Fatalf("expected name first in the priority table, got %q", table[0].Type)
	}
}
