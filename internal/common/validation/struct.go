// internal/common/validation/struct.go
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	structValidator *validator.Validate
	structOnce      sync.Once
)

// Struct returns the shared go-playground validator. Field names in errors
// are the json tag names.
func Struct() *validator.Validate {
	structOnce.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		structValidator = v
	})
	return structValidator
}

// ValidateStruct runs struct tag validation and reports every failure.
func ValidateStruct(s interface{}) *ValidationResult {
	err := Struct().Struct(s)
	if err == nil {
		return &ValidationResult{Valid: true}
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ValidationResult{Errors: []ValidationError{{Message: err.Error(), Code: "INVALID"}}}
	}

	out := &ValidationResult{}
	for _, e := range verrs {
		out.Errors = append(out.Errors, ValidationError{
			Field:   fieldPath(e.Namespace()),
			Message: tagMessage(e.Tag(), e.Param()),
			Code:    strings.ToUpper(e.Tag()),
		})
	}
	return out
}

// fieldPath drops the root type name from a namespace such as
// "CareNeeds.location.radiusMiles".
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func tagMessage(tag, param string) string {
	switch tag {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(param, " ", ", "))
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", param)
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", param)
	case "gtefield":
		return fmt.Sprintf("must not be less than %s", param)
	case "len":
		return fmt.Sprintf("must be exactly %s characters", param)
	case "numeric":
		return "must contain only digits"
	case "latitude", "longitude":
		return "must be a valid " + tag
	case "email":
		return "must be a valid email address"
	default:
		return fmt.Sprintf("failed %s validation", tag)
	}
}
