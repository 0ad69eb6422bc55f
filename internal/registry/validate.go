package registry

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ValidationReason narrows a ValidationError to the contract violated.
type ValidationReason string

const (
	ReasonUnknownOp    ValidationReason = "unknown_operation"
	ReasonMissingParam ValidationReason = "missing_param"
	ReasonWrongType    ValidationReason = "wrong_type"
	ReasonOutOfRange   ValidationReason = "out_of_range"
)

// ValidationError reports a malformed request, naming the offending field.
type ValidationError struct {
	Op      string
	Field   string
	Reason  ValidationReason
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("operation %q: %s: %s", e.Op, e.Field, e.Message)
	}
	return fmt.Sprintf("operation %q: %s", e.Op, e.Message)
}

// compileSchema builds a JSON Schema from the parameter declarations and
// compiles it once at registration time.
func compileSchema(spec Spec) (*gojsonschema.Schema, error) {
	properties := make(map[string]any, len(spec.Params))
	var required []string

	for _, p := range spec.Params {
		prop := map[string]any{"type": schemaType(p.Type)}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}

	doc := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		doc["required"] = required
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("compiling parameter schema: %w", err)
	}
	return schema, nil
}

func schemaType(t ParamType) string {
	switch t {
	case TypeInt:
		return "integer"
	case TypeFloat:
		return "number"
	case TypeBool:
		return "boolean"
	default:
		return "string"
	}
}

// validate checks required parameters, coerces values to their declared
// types, applies defaults, and runs the compiled schema over the result.
func (op *operation) validate(raw map[string]any) (Args, error) {
	args := make(Args, len(raw)+len(op.spec.Params))
	for k, v := range raw {
		args[k] = v
	}

	for _, p := range op.spec.Params {
		value, present := args[p.Name]

		if !present {
			if p.Required {
				return nil, &ValidationError{
					Op:      op.spec.Name,
					Field:   p.Name,
					Reason:  ReasonMissingParam,
					Message: "required parameter is missing",
				}
			}
			if p.Default != nil {
				args[p.Name] = normalize(p.Default)
			}
			continue
		}

		coerced, ok := coerce(value, p.Type)
		if !ok {
			return nil, &ValidationError{
				Op:      op.spec.Name,
				Field:   p.Name,
				Reason:  ReasonWrongType,
				Message: fmt.Sprintf("expected %s, got %T", p.Type, value),
			}
		}
		args[p.Name] = coerced
	}

	result, err := op.schema.Validate(gojsonschema.NewGoLoader(map[string]any(args)))
	if err != nil {
		return nil, &ValidationError{
			Op:      op.spec.Name,
			Reason:  ReasonWrongType,
			Message: err.Error(),
		}
	}
	if !result.Valid() {
		return nil, schemaError(op.spec.Name, result.Errors())
	}

	return args, nil
}

// schemaError converts the first schema violation into a precise
// ValidationError naming the offending field.
func schemaError(opName string, errs []gojsonschema.ResultError) *ValidationError {
	if len(errs) == 0 {
		return &ValidationError{Op: opName, Reason: ReasonWrongType, Message: "invalid arguments"}
	}

	first := errs[0]
	ve := &ValidationError{
		Op:      opName,
		Field:   first.Field(),
		Message: first.Description(),
	}
	if ve.Field == "(root)" {
		ve.Field = ""
	}

	switch first.Type() {
	case "required":
		ve.Reason = ReasonMissingParam
		if prop, ok := first.Details()["property"].(string); ok {
			ve.Field = prop
		}
	case "enum":
		ve.Reason = ReasonOutOfRange
	default:
		ve.Reason = ReasonWrongType
	}
	return ve
}

// coerce converts a raw JSON value to the declared parameter type.
// Strings coerce to numbers and bools where they parse cleanly, and
// whole-valued floats coerce to integers, matching what remote callers
// commonly send for coordinates.
func coerce(value any, t ParamType) (any, bool) {
	switch t {
	case TypeString:
		s, ok := value.(string)
		return s, ok

	case TypeInt:
		switch v := value.(type) {
		case int:
			return int64(v), true
		case int64:
			return v, true
		case float64:
			// JSON numbers arrive as float64; accept fractional
			// coordinates by truncation.
			return int64(v), true
		case string:
			if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
				return n, true
			}
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return int64(f), true
			}
			return nil, false
		}
		return nil, false

	case TypeFloat:
		switch v := value.(type) {
		case float64:
			return v, true
		case int:
			return float64(v), true
		case int64:
			return float64(v), true
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return f, true
			}
			return nil, false
		}
		return nil, false

	case TypeBool:
		switch v := value.(type) {
		case bool:
			return v, true
		case string:
			if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
				return b, true
			}
			return nil, false
		}
		return nil, false
	}
	return nil, false
}

// normalize aligns default values with the representation coerce produces.
func normalize(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case float32:
		return float64(n)
	case float64:
		if n == math.Trunc(n) {
			return n
		}
	}
	return v
}
