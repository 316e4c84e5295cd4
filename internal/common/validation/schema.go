// internal/common/validation/schema.go
package validation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ValidationResult collects every problem found in a document.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Schema is a compiled JSON Schema.
type Schema struct {
	schema *gojsonschema.Schema
}

// CompileSchema compiles a schema given as a Go value (map, struct) or as a
// JSON string.
func CompileSchema(raw interface{}) (*Schema, error) {
	var loader gojsonschema.JSONLoader
	switch v := raw.(type) {
	case string:
		loader = gojsonschema.NewStringLoader(v)
	case []byte:
		loader = gojsonschema.NewBytesLoader(v)
	default:
		loader = gojsonschema.NewGoLoader(v)
	}

	s, err := gojsonschema.NewSchema(loader)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Schema{schema: s}, nil
}

// MustCompileSchema is CompileSchema for package-level schemas.
func MustCompileSchema(raw interface{}) *Schema {
	s, err := CompileSchema(raw)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate checks doc against the schema. The error is non-nil only when the
// document itself cannot be loaded.
func (s *Schema) Validate(doc interface{}) (*ValidationResult, error) {
	result, err := s.schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("validate document: %w", err)
	}
	return toResult(result), nil
}

// ValidateDocument compiles schema and validates doc in one step. An empty
// schema accepts everything.
func ValidateDocument(schema map[string]interface{}, doc interface{}) (*ValidationResult, error) {
	if len(schema) == 0 {
		return &ValidationResult{Valid: true}, nil
	}
	s, err := CompileSchema(schema)
	if err != nil {
		return nil, err
	}
	return s.Validate(doc)
}

func toResult(r *gojsonschema.Result) *ValidationResult {
	out := &ValidationResult{Valid: r.Valid()}
	for _, e := range r.Errors() {
		field := e.Field()
		if e.Type() == "required" {
			if prop, ok := e.Details()["property"].(string); ok {
				field = joinField(field, prop)
			}
		}
		if field == gojsonschema.STRING_CONTEXT_ROOT {
			field = ""
		}
		out.Errors = append(out.Errors, ValidationError{
			Field:   field,
			Message: e.Description(),
			Code:    strings.ToUpper(e.Type()),
		})
	}
	return out
}

func joinField(parent, child string) string {
	if parent == "" || parent == gojsonschema.STRING_CONTEXT_ROOT {
		return child
	}
	return parent + "." + child
}

// RequiredFieldsSchema builds an object schema demanding every dotted path in
// required, e.g. "resident.name" requires a "resident" object with "name".
func RequiredFieldsSchema(required []string) map[string]interface{} {
	root := map[string]interface{}{"type": "object"}
	for _, path := range required {
		node := root
		parts := strings.Split(path, ".")
		for i, part := range parts {
			addRequired(node, part)
			if i == len(parts)-1 {
				break
			}
			props, _ := node["properties"].(map[string]interface{})
			if props == nil {
				props = map[string]interface{}{}
				node["properties"] = props
			}
			child, _ := props[part].(map[string]interface{})
			if child == nil {
				child = map[string]interface{}{"type": "object"}
				props[part] = child
			}
			node = child
		}
	}
	return root
}

func addRequired(node map[string]interface{}, name string) {
	req, _ := node["required"].([]interface{})
	for _, r := range req {
		if r == name {
			return
		}
	}
	req = append(req, name)
	sort.Slice(req, func(i, j int) bool { return req[i].(string) < req[j].(string) })
	node["required"] = req
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		if err.Field == "" {
			messages[i] = err.Message
			continue
		}
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// HasErrors checks if validation has errors for specific field
func (vr *ValidationResult) HasErrors(field string) bool {
	return len(vr.GetErrorsForField(field)) > 0
}

// GetErrorsForField returns errors for a field and anything nested below it.
func (vr *ValidationResult) GetErrorsForField(field string) []ValidationError {
	var fieldErrors []ValidationError
	for _, err := range vr.Errors {
		if err.Field == field || strings.HasPrefix(err.Field, field+".") {
			fieldErrors = append(fieldErrors, err)
		}
	}
	return fieldErrors
}

var (
	emailPattern      = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phonePattern      = regexp.MustCompile(`^\+[1-9]\d{9,14}$`)
	activityIDPattern = regexp.MustCompile(`^[a-z]+\.[a-z]+\.[a-z]+$`)
)

// ValidateEmail validates email format
func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidatePhone accepts E.164 numbers, the format SNS requires.
func ValidatePhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

// ValidateActivityNaming validates activity ID follows naming convention
func ValidateActivityNaming(activityID string) error {
	if !activityIDPattern.MatchString(activityID) {
		return fmt.Errorf("activity ID %q must follow format: domain.subdomain.action (e.g., matching.facility.score)", activityID)
	}
	return nil
}
