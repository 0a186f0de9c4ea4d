// Concepto - Collaborative Episode Production
// Copyright 2026 Project EAX
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/projecteax/concepto-sub007

package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/projecteax/concepto-sub007/internal/models"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// ValidationError is one failed field.
type ValidationError struct {
	field   string
	tag     string
	value   interface{}
	message string
}

// Field returns the struct field that failed.
func (e *ValidationError) Field() string { return e.field }

func (e *ValidationError) Error() string { return e.message }

// RequestValidationError aggregates all failed fields of one request
// payload and converts them to the API error envelope.
type RequestValidationError struct {
	errors []ValidationError
}

// Errors returns the individual field failures.
func (ve *RequestValidationError) Errors() []ValidationError { return ve.errors }

func (ve *RequestValidationError) Error() string {
	if len(ve.errors) == 0 {
		return "validation failed"
	}
	messages := make([]string, len(ve.errors))
	for i, err := range ve.errors {
		messages[i] = err.message
	}
	return strings.Join(messages, "; ")
}

// APIError mirrors the api package's envelope fields; validation cannot
// import api without a cycle.
type APIError struct {
	Code    string
	Message string
	Details map[string]interface{}
}

// ToAPIError renders the failures as a VALIDATION_ERROR envelope. A single
// failure names its field directly; multiple failures carry a fields list.
func (ve *RequestValidationError) ToAPIError() *APIError {
	switch len(ve.errors) {
	case 0:
		return &APIError{Code: "VALIDATION_ERROR", Message: "Validation failed"}
	case 1:
		err := ve.errors[0]
		return &APIError{
			Code:    "VALIDATION_ERROR",
			Message: err.message,
			Details: map[string]interface{}{
				"field": err.field,
				"tag":   err.tag,
				"value": err.value,
			},
		}
	}

	fields := make([]map[string]interface{}, len(ve.errors))
	messages := make([]string, len(ve.errors))
	for i, err := range ve.errors {
		fields[i] = map[string]interface{}{
			"field":   err.field,
			"tag":     err.tag,
			"message": err.message,
		}
		messages[i] = fmt.Sprintf("%s: %s", err.field, err.message)
	}
	return &APIError{
		Code:    "VALIDATION_ERROR",
		Message: strings.Join(messages, "; "),
		Details: map[string]interface{}{"fields": fields},
	}
}

// GetValidator returns the singleton instance, registering Concepto's
// custom tags on first use.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		_ = validate.RegisterValidation("grantable_role", func(fl validator.FieldLevel) bool {
			return models.ParseRole(fl.Field().String()).IsGrantable()
		})
	})
	return validate
}

// ValidateStruct validates s and returns nil on success.
func ValidateStruct(s interface{}) *RequestValidationError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &RequestValidationError{errors: []ValidationError{
			{field: "unknown", tag: "unknown", message: err.Error()},
		}}
	}

	out := make([]ValidationError, len(fieldErrs))
	for i, fe := range fieldErrs {
		out[i] = ValidationError{
			field:   fe.Field(),
			tag:     fe.Tag(),
			value:   fe.Value(),
			message: translate(fe),
		}
	}
	return &RequestValidationError{errors: out}
}

// translate produces the human-readable message for one failure. Tags not
// listed here fall through to a generic "failed <tag>" message, which is
// fine: handlers only use a handful of tags and each gets a real sentence.
func translate(fe validator.FieldError) string {
	field, param := fe.Field(), fe.Param()
	isString := fe.Kind().String() == "string"

	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "uuid":
		return field + " must be a valid UUID"
	case "grantable_role":
		return field + " must be a grantable role (viewer, commenter, editor)"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, param)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, param)
	case "min":
		if isString {
			return fmt.Sprintf("%s must be at least %s characters", field, param)
		}
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		if isString {
			return fmt.Sprintf("%s must be at most %s characters", field, param)
		}
		return fmt.Sprintf("%s must be at most %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
