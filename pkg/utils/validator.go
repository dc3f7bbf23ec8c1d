// Package utils provides helpers shared across layers.
package utils

import (
	goerrors "errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/credicefi/crediface/pkg/errors"
)

// Validator holds the singleton instance of the validator.
var defaultValidator *validator.Validate

var (
	matchFirstCap = regexp.MustCompile("(.)([A-Z][a-z]+)")
	matchAllCap   = regexp.MustCompile("([a-z0-9])([A-Z])")
	tenantIDRe    = regexp.MustCompile(`^[a-z0-9][a-z0-9_\-]{0,63}$`)
)

func init() {
	defaultValidator = validator.New()
	// report json names instead of Go field names
	defaultValidator.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	// Register custom validation functions
	_ = defaultValidator.RegisterValidation("uuid", validateUUID)
	_ = defaultValidator.RegisterValidation("tenant_id", validateTenantID)
}

// ValidateStruct validates a struct using the default validator.
// It returns an invalid_request AppError if validation fails.
func ValidateStruct(s interface{}) error {
	err := defaultValidator.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !goerrors.As(err, &validationErrors) {
		return errors.ErrInvalidRequest(err.Error())
	}

	fields := make([]string, 0, len(validationErrors))
	details := make(map[string]string, len(validationErrors))
	for _, fe := range validationErrors {
		name := toSnakeCase(fe.Field())
		details[name] = formatValidationError(fe)
		fields = append(fields, name)
	}

	appErr := errors.ErrInvalidRequest(fmt.Sprintf("invalid fields: %s", strings.Join(fields, ", ")))
	for name, msg := range details {
		appErr.WithMetadata(name, msg)
	}
	return appErr
}

// ValidateTenantID checks that a tenant identifier is a safe, lower-case slug.
// Identifiers become file names and cache keys, so anything else is rejected.
func ValidateTenantID(id string) error {
	if !tenantIDRe.MatchString(id) {
		return errors.ErrInvalidRequest(fmt.Sprintf("invalid tenant id %q", id)).
			WithMetadata("tenant_id", id)
	}
	return nil
}

// validateUUID is a custom validation function for UUIDs.
func validateUUID(fl validator.FieldLevel) bool {
	_, err := uuid.Parse(fl.Field().String())
	return err == nil
}

func validateTenantID(fl validator.FieldLevel) bool {
	return tenantIDRe.MatchString(fl.Field().String())
}

// formatValidationError creates a user-friendly error message for a validation error.
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "uuid":
		return "must be a valid UUID"
	case "tenant_id":
		return "must be a lower-case identifier"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "min", "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max", "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "dive":
		return "contains an invalid element"
	default:
		return fmt.Sprintf("failed on the '%s' tag", fe.Tag())
	}
}

// toSnakeCase converts a string from CamelCase to snake_case.
func toSnakeCase(str string) string {
	snake := matchFirstCap.ReplaceAllString(str, "${1}_${2}")
	snake = matchAllCap.ReplaceAllString(snake, "${1}_${2}")
	return strings.ToLower(snake)
}
