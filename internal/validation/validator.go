// Save Earth Ride - Drive Events API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/saveearthride

// Package validation provides struct and field validation using
// go-playground/validator v10.
//
// Features:
//   - Singleton validator instance (thread-safe, caches struct info)
//   - Field names reported by their JSON names ("contactEmail", not "ContactEmail")
//   - isodate validator for strict YYYY-MM-DD calendar dates
//   - Every failing field is collected; missing required fields are listed
//     together in one message
//
// Example usage:
//
//	type createDrive struct {
//	    Title string `json:"title" validate:"required"`
//	    Date  string `json:"date"  validate:"required,isodate"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    apiErr := verr.ToAPIError()
//	    // apiErr.Message == "Missing required fields: title, date"
//	}
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// singleton validator instance
var (
	validate     *validator.Validate
	validateOnce sync.Once
)

var isoDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ValidationError represents a single field validation error.
type ValidationError struct {
	field   string
	tag     string
	param   string
	value   interface{}
	message string
}

// Field returns the JSON name of the field that failed validation.
func (e *ValidationError) Field() string {
	return e.field
}

// Tag returns the validation tag that failed.
func (e *ValidationError) Tag() string {
	return e.tag
}

// Param returns the parameter for the validation tag (e.g., "0" for "min=0").
func (e *ValidationError) Param() string {
	return e.param
}

// Value returns the actual value that failed validation.
func (e *ValidationError) Value() interface{} {
	return e.value
}

// Error returns a human-readable error message.
func (e *ValidationError) Error() string {
	return e.message
}

// RequestValidationError represents a collection of validation errors.
type RequestValidationError struct {
	errors []ValidationError
}

// NewRequestValidationError builds an error for a single field outside of
// struct validation, e.g. a malformed query parameter.
func NewRequestValidationError(field, tag, message string) *RequestValidationError {
	return &RequestValidationError{errors: []ValidationError{{field: field, tag: tag, message: message}}}
}

// Errors returns the slice of validation errors.
func (ve *RequestValidationError) Errors() []ValidationError {
	return ve.errors
}

// MissingFields returns the fields that failed the required check, in order.
func (ve *RequestValidationError) MissingFields() []string {
	var missing []string
	for _, e := range ve.errors {
		if e.tag == "required" {
			missing = append(missing, e.field)
		}
	}
	return missing
}

// Error implements the error interface with the same text as ToAPIError.
func (ve *RequestValidationError) Error() string {
	return ve.ToAPIError().Message
}

// APIError is the transport-neutral form of a validation failure.
type APIError struct {
	Code    string
	Message string
	Details map[string]interface{}
}

// ToAPIError converts validation errors to the API error format. Missing
// fields are grouped into one "Missing required fields: a, b" sentence;
// other failures follow, separated by "; ".
func (ve *RequestValidationError) ToAPIError() *APIError {
	if len(ve.errors) == 0 {
		return &APIError{Code: "VALIDATION_ERROR", Message: "Validation failed"}
	}

	var messages []string
	if missing := ve.MissingFields(); len(missing) > 0 {
		messages = append(messages, "Missing required fields: "+strings.Join(missing, ", "))
	}

	fields := make([]map[string]interface{}, 0, len(ve.errors))
	for _, err := range ve.errors {
		fields = append(fields, map[string]interface{}{
			"field":   err.field,
			"tag":     err.tag,
			"message": err.message,
		})
		if err.tag != "required" {
			messages = append(messages, err.message)
		}
	}

	details := map[string]interface{}{"fields": fields}
	if missing := ve.MissingFields(); len(missing) > 0 {
		details["missingFields"] = missing
	}

	return &APIError{
		Code:    "VALIDATION_ERROR",
		Message: strings.Join(messages, "; "),
		Details: details,
	}
}

// GetValidator returns the singleton validator instance.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})

		// Registration only fails for empty tags or nil funcs.
		_ = validate.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
			return IsISODate(fl.Field().String())
		})
	})

	return validate
}

// IsISODate reports whether s is a real calendar date in YYYY-MM-DD form.
func IsISODate(s string) bool {
	if !isoDatePattern.MatchString(s) {
		return false
	}
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

// ValidateStruct validates a struct using the singleton validator.
// Returns nil if validation passes.
func ValidateStruct(s interface{}) *RequestValidationError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}
	return fromValidatorError(err, "")
}

// FieldCheck describes one value to validate against a tag expression.
type FieldCheck struct {
	Field string
	Value interface{}
	Tag   string
}

// ValidateFields validates individual values, collecting every failure.
// It backs partial updates, where only the fields present are checked.
func ValidateFields(checks ...FieldCheck) *RequestValidationError {
	v := GetValidator()

	var collected []ValidationError
	for _, c := range checks {
		err := v.Var(c.Value, c.Tag)
		if err == nil {
			continue
		}
		if verr := fromValidatorError(err, c.Field); verr != nil {
			collected = append(collected, verr.errors...)
		}
	}

	if len(collected) == 0 {
		return nil
	}
	return &RequestValidationError{errors: collected}
}

// fromValidatorError converts validator output. fieldOverride names the
// field when validating a bare value, which has no field name of its own.
func fromValidatorError(err error, fieldOverride string) *RequestValidationError {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		field := fieldOverride
		if field == "" {
			field = "unknown"
		}
		return &RequestValidationError{
			errors: []ValidationError{{field: field, tag: "unknown", message: err.Error()}},
		}
	}

	fieldErrors := make([]ValidationError, len(validationErrs))
	for i, fieldErr := range validationErrs {
		field := fieldErr.Field()
		if fieldOverride != "" {
			field = fieldOverride
		}
		fieldErrors[i] = ValidationError{
			field:   field,
			tag:     fieldErr.Tag(),
			param:   fieldErr.Param(),
			value:   fieldErr.Value(),
			message: translateError(fieldErr, field),
		}
	}

	return &RequestValidationError{errors: fieldErrors}
}

// errorMessageTemplates maps validation tags to message templates.
var errorMessageTemplates = map[string]string{
	"required": "%s is required",
	"email":    "%s must be a valid email address",
	"isodate":  "%s must be a valid date in YYYY-MM-DD format",
	"datauri":  "%s must be a data URI",
	"uuid":     "%s must be a valid UUID",
}

// errorMessageWithParam maps validation tags to templates that include param.
var errorMessageWithParam = map[string]string{
	"oneof": "%s must be one of: %s",
	"gte":   "%s must be greater than or equal to %s",
	"lte":   "%s must be less than or equal to %s",
}

// translateError converts a validator.FieldError to a human-readable message.
func translateError(fe validator.FieldError, field string) string {
	tag := fe.Tag()
	param := fe.Param()

	if template, ok := errorMessageTemplates[tag]; ok {
		return fmt.Sprintf(template, field)
	}
	if template, ok := errorMessageWithParam[tag]; ok {
		return fmt.Sprintf(template, field, param)
	}

	isString := fe.Kind() == reflect.String
	switch tag {
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
		return fmt.Sprintf("%s failed %s validation", field, tag)
	}
}
