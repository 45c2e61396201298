package backend

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var contractYAML []byte

// Contract loads the embedded OpenAPI description of the backend surface this
// client consumes. It documents the wire contract in one inspectable place
// and backs the contract tests that pin request/response shapes.
func Contract(ctx context.Context) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx

	doc, err := loader.LoadFromData(contractYAML)
	if err != nil {
		return nil, fmt.Errorf("backend: load api contract: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("backend: validate api contract: %w", err)
	}
	return doc, nil
}
