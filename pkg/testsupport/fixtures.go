// Package testsupport loads HTML page fixtures and JSON golden files for
// detection tests.
package testsupport

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/goliatone/go-formguide/pkg/field"
	"github.com/goliatone/go-formguide/pkg/page"
)

// LoadPage reads an HTML fixture into a Document. Testing helpers fail the
// test on error to keep fixture-driven tests concise.
func LoadPage(t *testing.T, path string) *page.Document {
	t.Helper()

	doc, err := LoadPageFromPath(path)
	if err != nil {
		t.Fatalf("load page: %v", err)
	}
	return doc
}

// LoadPageFromPath returns a Document without requiring testing.T, allowing
// callers to wire fixtures in setup functions.
func LoadPageFromPath(path string) (*page.Document, error) {
	if path == "" {
		return nil, errors.New("testsupport: page path is required")
	}
	doc, err := page.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("testsupport: parse page: %w", err)
	}
	return doc, nil
}

// MustLoadFields loads a JSON golden file into a field list.
func MustLoadFields(t *testing.T, path string) []field.LogicalField {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("load golden: %v", err)
	}
	var out []field.LogicalField
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal golden: %v", err)
	}
	return out
}
