package mcp

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// SchemaValidator validates a JSON value against a JSON Schema document.
// Registries use it to validate tool input against the tool's declared
// inputSchema (spec.md §4.6) before invoking the tool handler.
type SchemaValidator interface {
	// Compile parses and caches schema (a raw JSON Schema document),
	// returning an opaque handle for Validate.
	Compile(schema json.RawMessage) (CompiledSchema, error)
}

// CompiledSchema validates instances against one compiled schema.
type CompiledSchema interface {
	Validate(instance json.RawMessage) error
}

// jsonschemaValidator is the default SchemaValidator, backed by
// santhosh-tekuri/jsonschema/v6. Grounded on goa-ai's
// validatePayloadJSONAgainstSchema, which compiles and validates tool
// payloads the same way.
type jsonschemaValidator struct{}

// NewSchemaValidator returns the default jsonschema/v6-backed validator.
func NewSchemaValidator() SchemaValidator { return jsonschemaValidator{} }

func (jsonschemaValidator) Compile(schema json.RawMessage) (CompiledSchema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schema))
	if err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	const resourceName = "inputSchema.json"
	if err := c.AddResource(resourceName, doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	compiled, err := c.Compile(resourceName)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &compiledJSONSchema{schema: compiled}, nil
}

type compiledJSONSchema struct {
	schema *jsonschema.Schema
}

func (c *compiledJSONSchema) Validate(instance json.RawMessage) error {
	var v interface{}
	if err := json.Unmarshal(instance, &v); err != nil {
		return fmt.Errorf("parse instance: %w", err)
	}
	if err := c.schema.Validate(v); err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	return nil
}
