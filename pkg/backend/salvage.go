package backend

import (
	"encoding/json"
	"regexp"

	"github.com/goliatone/go-formguide/pkg/field"
)

var (
	jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)
	keyValuePattern   = regexp.MustCompile(`"?([A-Za-z_][\w\-]*)"?\s*:\s*"([^"]*)"`)
)

// Salvage extracts a value map from a noisy mapping-service body. LLM
// responses sometimes wrap their JSON in prose or markdown fences; try the
// outermost object first, then fall back to scraping quoted key/value pairs.
// An unusable body yields an empty map, never an error.
func Salvage(raw string) field.ValueMap {
	if blob := jsonObjectPattern.FindString(raw); blob != "" {
		if values := decodeValueObject(blob); len(values) > 0 {
			return values
		}
	}

	values := field.ValueMap{}
	for _, m := range keyValuePattern.FindAllStringSubmatch(raw, -1) {
		key, value := m[1], m[2]
		if _, exists := values[key]; !exists {
			values[key] = value
		}
	}
	return values
}

// decodeValueObject accepts either a bare {field: value} object or a full
// auto-fill response envelope embedded in the blob.
func decodeValueObject(blob string) field.ValueMap {
	var envelope struct {
		FieldValues map[string]any `json:"fieldValues"`
	}
	if err := json.Unmarshal([]byte(blob), &envelope); err == nil && len(envelope.FieldValues) > 0 {
		return stringify(envelope.FieldValues)
	}

	var flat map[string]any
	if err := json.Unmarshal([]byte(blob), &flat); err != nil {
		return nil
	}
	return stringify(flat)
}

func stringify(in map[string]any) field.ValueMap {
	out := field.ValueMap{}
	for key, value := range in {
		if s, ok := value.(string); ok {
			out[key] = s
		}
	}
	return out
}
