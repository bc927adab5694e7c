package core

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"potager/internal/types"
)

// errCodeValidationInvalidField is the fallback error code for validation
// failures on tags that have no dedicated code in the shared catalog.
const errCodeValidationInvalidField types.ErrorCode = "validation_invalid_field"

// ValidationError describes a single field-level validation failure in a
// form suitable for API error details.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult carries the outcome of a validation pass. Errors block
// the request; warnings are advisory and never fail validation.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []string
}

// IsValid reports whether the result contains no blocking errors.
func (r ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// Validator wraps go-playground/validator with the domain-specific rules the
// API DTOs rely on. A single instance lives on the Server and is shared by
// all handlers; the underlying validator caches struct metadata, so reuse
// matters.
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator creates a Validator and registers the custom validation tags:
//
//   - is_timezone:       value must be a loadable IANA timezone name
//   - soil_type:         value must parse as a known soil type
//   - cultivation_mode:  value must parse as a known cultivation mode
func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}

	v := validator.New()

	// RegisterValidation only errors on an empty tag name.
	_ = v.RegisterValidation("is_timezone", validateTimezone)
	_ = v.RegisterValidation("soil_type", validateSoilType)
	_ = v.RegisterValidation("cultivation_mode", validateCultivationMode)

	return &Validator{
		validate: v,
		logger:   logger,
	}
}

// ValidateStruct validates s against its `validate` tags. It returns nil on
// success. On failure it returns a *types.AppError whose Code reflects the
// first field failure and whose Details carry the full list under the
// "validation_errors" key.
func (v *Validator) ValidateStruct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var invalidErr *validator.InvalidValidationError
	if errors.As(err, &invalidErr) {
		// Programming error: a non-struct was passed in.
		v.logger.Error("validator received invalid input", slog.String("error", err.Error()))
		return types.NewAppError(errCodeValidationInvalidField, "invalid input passed to validation", err)
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return types.NewAppError(errCodeValidationInvalidField, "request validation failed", err)
	}

	verrs := collectFieldErrors(fieldErrs)

	return types.NewAppErrorWithDetails(
		types.ErrorCode(verrs[0].Code),
		"request validation failed",
		nil,
		map[string]any{"validation_errors": verrs},
	)
}

// ValidateStructWithWarnings validates s and returns the full result instead
// of collapsing it into an error. Use this where the caller wants to surface
// advisory warnings alongside blocking errors.
func (v *Validator) ValidateStructWithWarnings(s any) ValidationResult {
	var result ValidationResult

	err := v.validate.Struct(s)
	if err == nil {
		return result
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		result.Errors = collectFieldErrors(fieldErrs)
		return result
	}

	result.Errors = append(result.Errors, ValidationError{
		Code:    string(errCodeValidationInvalidField),
		Message: err.Error(),
	})
	return result
}

// collectFieldErrors converts validator field errors into the API shape.
func collectFieldErrors(fieldErrs validator.ValidationErrors) []ValidationError {
	verrs := make([]ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		verrs = append(verrs, ValidationError{
			Field:   fe.Field(),
			Code:    tagToErrorCode(fe.Tag()),
			Message: fieldMessage(fe),
		})
	}
	return verrs
}

// tagToErrorCode maps a validation tag to its error code from the shared
// catalog. Numeric range tags (gt, gte, lt, lte) map to the cut-height code
// because heights are the only DTO fields carrying them; new DTOs with other
// numeric ranges need their own entries here.
func tagToErrorCode(tag string) string {
	switch tag {
	case "required":
		return string(types.ErrCodeValidationMissingField)
	case "email":
		return string(types.ErrCodeValidationInvalidEmail)
	case "latitude":
		return string(types.ErrCodeValidationInvalidLat)
	case "longitude":
		return string(types.ErrCodeValidationInvalidLon)
	case "is_timezone":
		return string(types.ErrCodeValidationInvalidTZ)
	case "soil_type":
		return string(types.ErrCodeValidationInvalidSoil)
	case "cultivation_mode":
		return string(types.ErrCodeValidationInvalidMode)
	case "min":
		// Only the plant lists carry a min tag.
		return string(types.ErrCodeValidationEmptyPlants)
	case "gt", "gte", "lt", "lte":
		return string(types.ErrCodeValidationInvalidHeight)
	default:
		return string(errCodeValidationInvalidField)
	}
}

// fieldMessage builds a human-readable message for a field error.
func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "must be a valid email address"
	case "latitude":
		return "must be a valid latitude between -90 and 90"
	case "longitude":
		return "must be a valid longitude between -180 and 180"
	case "is_timezone":
		return "must be a valid IANA timezone name"
	case "soil_type":
		return fmt.Sprintf("unknown soil type %q", fe.Value())
	case "cultivation_mode":
		return fmt.Sprintf("unknown cultivation mode %q", fe.Value())
	case "min":
		return fmt.Sprintf("must contain at least %s item(s)", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lt":
		return fmt.Sprintf("must be less than %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// validateTimezone checks that the field holds a loadable IANA timezone
// name. The empty string is rejected: time.LoadLocation("") silently means
// UTC, which is never what a stored garden profile intends.
func validateTimezone(fl validator.FieldLevel) bool {
	tz := fl.Field().String()
	if tz == "" {
		return false
	}
	_, err := time.LoadLocation(tz)
	return err == nil
}

// validateSoilType checks that the field parses as a known soil type.
func validateSoilType(fl validator.FieldLevel) bool {
	_, err := types.ParseSoilType(fl.Field().String())
	return err == nil
}

// validateCultivationMode checks that the field parses as a known
// cultivation mode.
func validateCultivationMode(fl validator.FieldLevel) bool {
	_, err := types.ParseCultivationMode(fl.Field().String())
	return err == nil
}
