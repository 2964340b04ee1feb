// Teamlink - Real-time Event Delivery for Team Collaboration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/teamlink

package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ErrorCode is the API error code for validation failures.
const ErrorCode = "VALIDATION_ERROR"

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// FieldError is one failed rule on one field.
type FieldError struct {
	Field   string      `json:"field"`
	Tag     string      `json:"tag"`
	Param   string      `json:"param,omitempty"`
	Message string      `json:"message"`
	Value   interface{} `json:"-"`
}

func (e FieldError) Error() string { return e.Message }

// RequestValidationError collects every failed rule of one struct.
type RequestValidationError struct {
	Fields []FieldError
}

func (ve *RequestValidationError) Error() string {
	if len(ve.Fields) == 0 {
		return "validation failed"
	}
	return ve.joined()
}

func (ve *RequestValidationError) joined() string {
	var b strings.Builder
	for i, f := range ve.Fields {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(f.Message)
	}
	return b.String()
}

// APIError is the error body shape returned by the HTTP layer.
type APIError struct {
	Code    string
	Message string
	Details interface{}
}

// ToAPIError converts the failure to an API error body. A single failure is
// reported as that field; several are listed under "fields".
func (ve *RequestValidationError) ToAPIError() *APIError {
	switch len(ve.Fields) {
	case 0:
		return &APIError{Code: ErrorCode, Message: "Validation failed"}
	case 1:
		return &APIError{Code: ErrorCode, Message: ve.Fields[0].Message, Details: ve.Fields[0]}
	default:
		return &APIError{
			Code:    ErrorCode,
			Message: ve.joined(),
			Details: map[string][]FieldError{"fields": ve.Fields},
		}
	}
}

// GetValidator returns the process-wide validator. Safe for concurrent use.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(fieldName)

		// Registration only fails on an empty tag or nil func.
		_ = v.RegisterValidation("notblank", notBlank)

		validate = v
	})
	return validate
}

// fieldName reports struct fields by their json name, falling back to the
// koanf name for configuration structs.
func fieldName(fld reflect.StructField) string {
	for _, key := range []string{"json", "koanf"} {
		name, _, _ := strings.Cut(fld.Tag.Get(key), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return fld.Name
}

func notBlank(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.String {
		return true
	}
	return strings.TrimSpace(field.String()) != ""
}

// ValidateStruct validates s and returns nil when every rule passes.
func ValidateStruct(s interface{}) *RequestValidationError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		// Not a struct, or a nil pointer.
		return &RequestValidationError{Fields: []FieldError{{
			Field:   "",
			Tag:     "invalid",
			Message: err.Error(),
		}}}
	}

	out := &RequestValidationError{Fields: make([]FieldError, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		path := fieldPath(fe)
		out.Fields = append(out.Fields, FieldError{
			Field:   path,
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Message: message(path, fe),
			Value:   fe.Value(),
		})
	}
	return out
}

// fieldPath drops the top-level struct name from the namespace so nested
// config fields read as "bus.nats.url".
func fieldPath(fe validator.FieldError) string {
	if _, rest, ok := strings.Cut(fe.Namespace(), "."); ok {
		return rest
	}
	return fe.Field()
}

func message(field string, fe validator.FieldError) string {
	param := fe.Param()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "required_if":
		return fmt.Sprintf("%s is required when %s", field, param)
	case "notblank":
		return field + " must not be blank"
	case "url":
		return field + " must be a valid URL"
	case "hostname_port":
		return field + " must be a host:port address"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, param)
	case "nefield":
		return fmt.Sprintf("%s must differ from %s", field, param)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, param)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "lt":
		return fmt.Sprintf("%s must be less than %s", field, param)
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, param)
	case "min", "max":
		bound := "at least"
		if fe.Tag() == "max" {
			bound = "at most"
		}
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be %s %s characters", field, bound, param)
		}
		return fmt.Sprintf("%s must be %s %s", field, bound, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
