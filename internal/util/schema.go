package util

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/xeipuuv/gojsonschema"
)

// ValidationError represents parameter validation errors with detailed information.
type ValidationError struct {
	Field   string   `json:"field"`            // Field that failed validation
	Value   any      `json:"value,omitempty"`  // Value that was provided
	Message string   `json:"message"`          // Human-readable error message
	Causes  []string `json:"causes,omitempty"` // Every violation reported by the validator
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

var reflector = &jsonschema.Reflector{
	DoNotReference:            true,
	ExpandedStruct:            true,
	AllowAdditionalProperties: true,
}

// CreateSchema creates a JSON schema object from a Go value using reflection.
// Fields are required unless tagged omitempty; descriptions come from
// `jsonschema:"description=..."` tags.
func CreateSchema(v any) map[string]any {
	s := reflector.Reflect(v)

	b, err := json.Marshal(s)
	if err != nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}

	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}

	delete(out, "$schema")
	delete(out, "$id")

	return out
}

// Validator checks values against one compiled JSON schema.
type Validator struct {
	schema *gojsonschema.Schema
}

// NewValidator compiles schema once for repeated validation.
func NewValidator(schema map[string]any) (*Validator, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema))
	if err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}

	return &Validator{schema: s}, nil
}

// Validate performs a structural check of value. Values are never coerced.
func (v *Validator) Validate(value any) error {
	res, err := v.schema.Validate(gojsonschema.NewGoLoader(value))
	if err != nil {
		return &ValidationError{Field: "(root)", Message: err.Error()}
	}

	if res.Valid() {
		return nil
	}

	errs := res.Errors()
	causes := make([]string, len(errs))

	for i, e := range errs {
		causes[i] = e.String()
	}

	first := errs[0]
	field := first.Field()

	if p, ok := first.Details()["property"].(string); ok && first.Type() == "required" {
		field = strings.TrimPrefix(field+"."+p, "(root).")
	}

	return &ValidationError{
		Field:   field,
		Value:   first.Value(),
		Message: first.Description(),
		Causes:  causes,
	}
}

// ValidateParameters validates parameters against a JSON schema.
func ValidateParameters(params map[string]any, schema map[string]any) error {
	if params == nil {
		params = map[string]any{}
	}

	v, err := NewValidator(schema)
	if err != nil {
		return err
	}

	return v.Validate(params)
}

// Normalize round-trips v through JSON so it can be validated against a
// schema the same way decoded model arguments are.
func Normalize(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}

	return out, nil
}
