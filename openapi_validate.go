package strut

import (
	"context"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

// ValidateSpec generates the OpenAPI document and checks that it parses
// and validates as an OpenAPI 3 document. Useful as a startup assertion
// or a CI gate: a contract that registers cleanly should always produce
// a valid document, so a failure here is a bug worth stopping on.
func (s *Service) ValidateSpec(ctx context.Context) error {
	data, err := s.SpecJSON()
	if err != nil {
		return fmt.Errorf("generate spec: %w", err)
	}

	loader := openapi3.NewLoader()
	loader.Context = ctx

	doc, err := loader.LoadFromData(data)
	if err != nil {
		return fmt.Errorf("parse spec: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return fmt.Errorf("validate spec: %w", err)
	}
	return nil
}
