// Package registry holds the static catalog of device-control operations:
// name, parameter schema, output kind, and handler. The registry is
// assembled once at startup and never mutated afterward, so concurrent
// readers need no synchronization.
package registry

import (
	"context"
	"fmt"
	"sort"

	"github.com/xeipuuv/gojsonschema"
)

// ParamType is the semantic type of an operation parameter.
type ParamType string

const (
	TypeString ParamType = "string"
	TypeInt    ParamType = "int"
	TypeFloat  ParamType = "float"
	TypeBool   ParamType = "bool"
)

// OutputKind describes the shape of an operation's result payload.
type OutputKind string

const (
	// OutputText is plain text passed through to the response.
	OutputText OutputKind = "text"
	// OutputJSON is a structured value passed through to the response.
	OutputJSON OutputKind = "json"
	// OutputBinary is a size-capped base64-embedded artifact.
	OutputBinary OutputKind = "binary"
)

// Param declares one operation parameter.
type Param struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Type        ParamType `json:"type"`
	Required    bool      `json:"required,omitempty"`
	// Default is applied when an optional parameter is absent.
	Default any `json:"default,omitempty"`
	// Enum restricts a string parameter to the listed values.
	Enum []string `json:"enum,omitempty"`
}

// Spec describes one registered operation. Immutable after registration.
type Spec struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Params      []Param    `json:"params,omitempty"`
	Output      OutputKind `json:"output"`
}

// Args is a validated, coerced argument mapping passed to handlers.
type Args map[string]any

// Has reports whether the argument is present.
func (a Args) Has(name string) bool {
	_, ok := a[name]
	return ok
}

// String returns the named string argument ("" if absent).
func (a Args) String(name string) string {
	s, _ := a[name].(string)
	return s
}

// Int returns the named integer argument (0 if absent).
func (a Args) Int(name string) int {
	switch v := a[name].(type) {
	case int64:
		return int(v)
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

// Float returns the named float argument (0 if absent).
func (a Args) Float(name string) float64 {
	switch v := a[name].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}

// Bool returns the named bool argument (false if absent).
func (a Args) Bool(name string) bool {
	b, _ := a[name].(bool)
	return b
}

// Result is a handler's normalized output.
type Result struct {
	Kind     OutputKind
	Text     string
	Value    any
	Binary   []byte
	MIMEType string
}

// Text returns a plain-text result.
func Text(s string) *Result { return &Result{Kind: OutputText, Text: s} }

// JSON returns a structured result.
func JSON(v any) *Result { return &Result{Kind: OutputJSON, Value: v} }

// Binary returns a binary artifact result.
func Binary(data []byte, mimeType string) *Result {
	return &Result{Kind: OutputBinary, Binary: data, MIMEType: mimeType}
}

// Handler implements one operation. Args have passed validation and
// coercion against the operation's Spec.
type Handler func(ctx context.Context, args Args) (*Result, error)

type operation struct {
	spec    Spec
	handler Handler
	schema  *gojsonschema.Schema
}

// Registry maps operation names to specs and handlers.
type Registry struct {
	ops map[string]*operation
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{ops: make(map[string]*operation)}
}

// Register adds an operation. Duplicate names and malformed parameter
// declarations are programming errors surfaced at process start.
func (r *Registry) Register(spec Spec, handler Handler) error {
	if spec.Name == "" {
		return fmt.Errorf("operation with empty name")
	}
	if handler == nil {
		return fmt.Errorf("operation %q: nil handler", spec.Name)
	}
	if _, exists := r.ops[spec.Name]; exists {
		return fmt.Errorf("operation %q registered twice", spec.Name)
	}
	if spec.Output == "" {
		spec.Output = OutputText
	}

	schema, err := compileSchema(spec)
	if err != nil {
		return fmt.Errorf("operation %q: %w", spec.Name, err)
	}

	r.ops[spec.Name] = &operation{spec: spec, handler: handler, schema: schema}
	return nil
}

// MustRegister is Register that panics; registration happens from static
// tables at startup, so a failure is a programming error.
func (r *Registry) MustRegister(spec Spec, handler Handler) {
	if err := r.Register(spec, handler); err != nil {
		panic(err)
	}
}

// Lookup returns the spec for a name.
func (r *Registry) Lookup(name string) (Spec, bool) {
	op, ok := r.ops[name]
	if !ok {
		return Spec{}, false
	}
	return op.spec, true
}

// DescribeAll returns every registered spec, ordered by name.
func (r *Registry) DescribeAll() []Spec {
	specs := make([]Spec, 0, len(r.ops))
	for _, op := range r.ops {
		specs = append(specs, op.spec)
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}

// Invoke validates the raw arguments against the named operation's spec
// and runs its handler. Validation failures return a *ValidationError
// before any handler (and therefore any external process) runs.
func (r *Registry) Invoke(ctx context.Context, name string, raw map[string]any) (*Result, error) {
	op, ok := r.ops[name]
	if !ok {
		return nil, &ValidationError{
			Op:      name,
			Reason:  ReasonUnknownOp,
			Message: fmt.Sprintf("unknown operation %q", name),
		}
	}

	args, err := op.validate(raw)
	if err != nil {
		return nil, err
	}

	return op.handler(ctx, args)
}
