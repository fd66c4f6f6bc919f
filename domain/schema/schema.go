// Package schema maps content attributes to and from their JSON form.
package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/umeboshi2/kotti-jsonapi/pkg/errors"
)

// DefaultName is the variant every reachable content type must register.
const DefaultName = "default"

// ValueSource exposes stored values by field name.
type ValueSource interface {
	Value(name string) (interface{}, bool)
}

// Schema is a named, ordered list of fields.
type Schema struct {
	Name   string
	Fields []Field
}

var validate = validator.New()

// New builds a schema and rejects duplicate or untyped fields.
func New(name string, fields ...Field) (*Schema, error) {
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("schema %s: field without name", name)
		}
		if seen[f.Name] {
			return nil, fmt.Errorf("schema %s: duplicate field %q", name, f.Name)
		}
		if !f.Type.Valid() {
			return nil, fmt.Errorf("schema %s: field %q has unknown type %q", name, f.Name, f.Type)
		}
		seen[f.Name] = true
	}
	return &Schema{Name: name, Fields: fields}, nil
}

// MustNew is New for schemas declared in code.
func MustNew(name string, fields ...Field) *Schema {
	s, err := New(name, fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Extend returns a copy of s with extra fields appended.
func (s *Schema) Extend(name string, fields ...Field) (*Schema, error) {
	all := make([]Field, 0, len(s.Fields)+len(fields))
	all = append(all, s.Fields...)
	all = append(all, fields...)
	return New(name, all...)
}

// Field returns the named field.
func (s *Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Names lists field names in declaration order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Serialize renders every declared field of src. Values src does not hold
// become nil; values it holds but the schema does not declare are dropped.
func (s *Schema) Serialize(src ValueSource) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(s.Fields))
	for _, f := range s.Fields {
		v, ok := src.Value(f.Name)
		if !ok {
			out[f.Name] = nil
			continue
		}
		sv, err := f.serialize(v)
		if err != nil {
			return nil, fmt.Errorf("serialize %s: %w", s.Name, err)
		}
		out[f.Name] = sv
	}
	return out, nil
}

// Deserialize validates a complete attribute document. Absent optional
// fields take their Missing value; absent required fields are errors.
// Keys the schema does not declare are ignored.
func (s *Schema) Deserialize(input map[string]interface{}) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(s.Fields))
	problems := make(map[string]string)
	for _, f := range s.Fields {
		raw, present := input[f.Name]
		if !present || raw == nil {
			if f.Required {
				problems[f.Name] = "Required"
				continue
			}
			out[f.Name] = f.Missing
			continue
		}
		v, msg := s.decodeField(f, raw)
		if msg != "" {
			problems[f.Name] = msg
			continue
		}
		out[f.Name] = v
	}
	if len(problems) > 0 {
		return nil, pkgerrors.NewFieldValidationError(problems)
	}
	return out, nil
}

// DeserializePartial validates only the keys present in input. Keys the
// schema does not declare are ignored, as in Deserialize, so a document
// read with GET can be sent back unchanged.
func (s *Schema) DeserializePartial(input map[string]interface{}) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(input))
	problems := make(map[string]string)
	for name, raw := range input {
		f, ok := s.Field(name)
		if !ok {
			continue
		}
		if raw == nil {
			if f.Required {
				problems[name] = "Required"
				continue
			}
			out[name] = f.Missing
			continue
		}
		v, msg := s.decodeField(f, raw)
		if msg != "" {
			problems[name] = msg
			continue
		}
		out[name] = v
	}
	if len(problems) > 0 {
		return nil, pkgerrors.NewFieldValidationError(problems)
	}
	return out, nil
}

func (s *Schema) decodeField(f Field, raw interface{}) (interface{}, string) {
	v, err := f.decode(raw)
	if err != nil {
		return nil, err.Error()
	}
	if f.Required {
		if str, ok := v.(string); ok && strings.TrimSpace(str) == "" {
			return nil, "Required"
		}
	}
	if f.Rule == "" {
		return v, ""
	}
	if err := validate.Var(v, f.Rule); err != nil {
		return nil, ruleMessage(err)
	}
	return v, ""
}

func ruleMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "max":
		return fmt.Sprintf("Longer than maximum length %s", fe.Param())
	case "min":
		return fmt.Sprintf("Shorter than minimum length %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("Must be one of: %s", fe.Param())
	case "url":
		return "Must be a URL"
	case "email":
		return "Invalid email address"
	}
	return fmt.Sprintf("Failed on the '%s' rule", fe.Tag())
}
