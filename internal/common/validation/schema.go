package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Schema describes the acceptable values for a group of form fields.
type Schema struct {
	Required   []string            `json:"required,omitempty"`
	Properties map[string]Property `json:"properties"`
}

type Property struct {
	Description string  `json:"description,omitempty"`
	Pattern     *string `json:"pattern,omitempty"`
	MinLength   *int    `json:"minLength,omitempty"`
	MaxLength   *int    `json:"maxLength,omitempty"`
	Enum        []string `json:"enum,omitempty"`
	// Year constrains a numeric-string field to a model-year range.
	Year *YearRange `json:"year,omitempty"`
}

type YearRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ValidateFields validates form field values against a schema with detailed
// per-field errors. Values are compared after trimming surrounding space.
func ValidateFields(fields map[string]string, schema Schema) *ValidationResult {
	errors := []ValidationError{}

	for _, requiredField := range schema.Required {
		if strings.TrimSpace(fields[requiredField]) == "" {
			errors = append(errors, ValidationError{
				Field:   requiredField,
				Message: "required field missing",
				Code:    "REQUIRED_FIELD_MISSING",
			})
		}
	}

	for fieldName, value := range fields {
		prop, exists := schema.Properties[fieldName]
		if !exists {
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" {
			// Emptiness is handled by the required check above.
			continue
		}
		if fieldErrors := validateField(fieldName, value, prop); len(fieldErrors) > 0 {
			errors = append(errors, fieldErrors...)
		}
	}

	return &ValidationResult{
		Valid:  len(errors) == 0,
		Errors: errors,
	}
}

func validateField(fieldName, value string, prop Property) []ValidationError {
	errors := []ValidationError{}

	if prop.MinLength != nil && len(value) < *prop.MinLength {
		errors = append(errors, ValidationError{
			Field:   fieldName,
			Message: fmt.Sprintf("value must be at least %d characters", *prop.MinLength),
			Code:    "MIN_LENGTH_VIOLATION",
		})
	}
	if prop.MaxLength != nil && len(value) > *prop.MaxLength {
		errors = append(errors, ValidationError{
			Field:   fieldName,
			Message: fmt.Sprintf("value must be at most %d characters", *prop.MaxLength),
			Code:    "MAX_LENGTH_VIOLATION",
		})
	}

	if prop.Pattern != nil {
		matched, err := regexp.MatchString(*prop.Pattern, value)
		if err != nil || !matched {
			errors = append(errors, ValidationError{
				Field:   fieldName,
				Message: fmt.Sprintf("value must match pattern %s", *prop.Pattern),
				Code:    "PATTERN_MISMATCH",
			})
		}
	}

	if len(prop.Enum) > 0 {
		found := false
		for _, enumVal := range prop.Enum {
			if value == enumVal {
				found = true
				break
			}
		}
		if !found {
			errors = append(errors, ValidationError{
				Field:   fieldName,
				Message: fmt.Sprintf("value must be one of %v", prop.Enum),
				Code:    "INVALID_ENUM_VALUE",
			})
		}
	}

	if prop.Year != nil {
		year, err := strconv.Atoi(value)
		if err != nil {
			errors = append(errors, ValidationError{
				Field:   fieldName,
				Message: "value must be a numeric year",
				Code:    "INVALID_TYPE",
			})
		} else if year < prop.Year.Min || year > prop.Year.Max {
			errors = append(errors, ValidationError{
				Field:   fieldName,
				Message: fmt.Sprintf("year must be between %d and %d", prop.Year.Min, prop.Year.Max),
				Code:    "YEAR_OUT_OF_RANGE",
			})
		}
	}

	return errors
}

// GetErrorMessages returns a simple list of error messages.
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// FieldErrors flattens the result to a field -> message map, keeping the
// first error per field.
func (vr *ValidationResult) FieldErrors() map[string]string {
	out := make(map[string]string, len(vr.Errors))
	for _, err := range vr.Errors {
		if _, seen := out[err.Field]; !seen {
			out[err.Field] = err.Message
		}
	}
	return out
}

// HasErrors checks if validation has errors for a specific field.
func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}

var (
	curpPattern = regexp.MustCompile(`^[A-Z]{4}\d{6}[HM][A-Z]{5}[A-Z0-9]\d$`)
	rfcPattern  = regexp.MustCompile(`^[A-ZÑ&]{3,4}\d{6}[A-Z0-9]{3}$`)
)

// ValidateCURPOrRFC accepts either an 18-character CURP or a 12/13-character
// RFC, matching what the permit platform accepts in the curp_rfc field.
func ValidateCURPOrRFC(value string) bool {
	value = strings.ToUpper(strings.TrimSpace(value))
	return curpPattern.MatchString(value) || rfcPattern.MatchString(value)
}

// CURPOrRFCPattern is the combined pattern usable in a Property.
const CURPOrRFCPattern = `^([A-Z]{4}\d{6}[HM][A-Z]{5}[A-Z0-9]\d|[A-ZÑ&]{3,4}\d{6}[A-Z0-9]{3})$`

// ModelYearRange returns the acceptable vehicle model-year window.
func ModelYearRange() *YearRange {
	return &YearRange{Min: 1950, Max: time.Now().Year() + 1}
}

// ValidateEmail validates email format.
func ValidateEmail(email string) bool {
	emailPattern := regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	return emailPattern.MatchString(email)
}
