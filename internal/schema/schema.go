package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Violation describes one failed rule
type Violation struct {
	Field  string
	Reason string
}

// ValidationError lists every violation found in a record
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.Field+": "+v.Reason)
	}
	return "schema validation failed: " + strings.Join(parts, "; ")
}

// Schema checks records against a compiled JSON Schema document.
// Keys the document does not describe are allowed unless it says otherwise.
type Schema struct {
	name     string
	compiled *jsonschema.Schema
	required []string
}

// New compiles document, a JSON Schema for a single object
func New(name, document string) (*Schema, error) {
	compiled, err := jsonschema.CompileString(name+".json", document)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}

	var top struct {
		Required []string `json:"required"`
	}
	if err := json.Unmarshal([]byte(document), &top); err != nil {
		return nil, fmt.Errorf("read required fields of %s: %w", name, err)
	}

	return &Schema{
		name:     name,
		compiled: compiled,
		required: top.Required,
	}, nil
}

// MustNew is like New but panics if document does not compile
func MustNew(name, document string) *Schema {
	s, err := New(name, document)
	if err != nil {
		panic(err)
	}
	return s
}

// Name returns the schema name
func (s *Schema) Name() string {
	return s.name
}

// Check returns a *ValidationError if record breaks any rule
func (s *Schema) Check(record map[string]any) error {
	var violations []Violation

	instance := make(map[string]any, len(record))
	for key, value := range record {
		v, reason := normalize(value)
		if reason != "" {
			violations = append(violations, Violation{Field: key, Reason: reason})
			continue
		}
		instance[key] = v
	}

	err := s.compiled.Validate(instance)
	var vErr *jsonschema.ValidationError
	switch {
	case errors.As(err, &vErr):
		violations = append(violations, s.violations(vErr, record)...)
	case err != nil:
		return fmt.Errorf("check %s: %w", s.name, err)
	}

	if len(violations) == 0 {
		return nil
	}

	sort.Slice(violations, func(i, j int) bool {
		if violations[i].Field != violations[j].Field {
			return violations[i].Field < violations[j].Field
		}
		return violations[i].Reason < violations[j].Reason
	})
	return &ValidationError{Violations: violations}
}

// violations flattens the leaves of a jsonschema error tree
func (s *Schema) violations(vErr *jsonschema.ValidationError, record map[string]any) []Violation {
	if len(vErr.Causes) > 0 {
		var out []Violation
		for _, cause := range vErr.Causes {
			out = append(out, s.violations(cause, record)...)
		}
		return out
	}

	if path.Base(vErr.KeywordLocation) == "required" && vErr.InstanceLocation == "" {
		var out []Violation
		for _, name := range s.required {
			if _, ok := record[name]; !ok {
				out = append(out, Violation{Field: name, Reason: "is required"})
			}
		}
		return out
	}

	return []Violation{{Field: fieldName(vErr.InstanceLocation), Reason: vErr.Message}}
}

var pointerUnescaper = strings.NewReplacer("~1", "/", "~0", "~")

// fieldName turns a top-level JSON pointer such as "/price" into "price"
func fieldName(pointer string) string {
	return pointerUnescaper.Replace(strings.TrimPrefix(pointer, "/"))
}

// normalize maps Go values onto the types a decoded JSON document holds.
// A non-empty reason means the value has no JSON form.
func normalize(value any) (any, string) {
	switch v := value.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, "must be a finite number"
		}
	case float32:
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return nil, "must be a finite number"
		}
	case int16:
		return int64(v), ""
	case uint16:
		return uint64(v), ""
	case json.Number:
		f, err := strconv.ParseFloat(v.String(), 64)
		if err != nil || math.IsInf(f, 0) {
			return nil, fmt.Sprintf("must be a finite number, got %q", v.String())
		}
	case nil, bool, string, int, int8, int32, int64, uint, uint8, uint32, uint64,
		map[string]any, []any:
	default:
		return nil, fmt.Sprintf("unsupported value of type %T", value)
	}
	return value, ""
}
