// Package validation checks row values against the introspected table schema
// before they are written. It is the default validation a record performs
// when the form builder is configured to validate on process.
package validation

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/thalib/formbuilder/cmd/formbuilder/internal/registry"
)

// Error codes reported by the validator
const (
	CodeRequired        = "REQUIRED_FIELD"
	CodeInvalidInteger  = "INVALID_INTEGER"
	CodeInvalidBoolean  = "INVALID_BOOLEAN"
	CodeInvalidDate     = "INVALID_DATE"
	CodeInvalidTime     = "INVALID_TIME"
	CodeInvalidDatetime = "INVALID_DATETIME"
	CodeInvalidEnum     = "INVALID_ENUM"
)

// ValidationError represents a single validation error
type ValidationError struct {
	Field       string `json:"field"`
	Message     string `json:"message"`
	ActualValue any    `json:"actual_value,omitempty"`
	Code        string `json:"code"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors represents a collection of validation errors
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (e ValidationErrors) Error() string {
	if len(e.Errors) == 0 {
		return "no validation errors"
	}

	messages := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		messages[i] = err.Error()
	}
	return strings.Join(messages, "; ")
}

// HasErrors returns true if there are validation errors
func (e *ValidationErrors) HasErrors() bool {
	return e != nil && len(e.Errors) > 0
}

// Map returns the errors keyed by field. When a field has several errors the
// first one wins.
func (e *ValidationErrors) Map() map[string]string {
	if !e.HasErrors() {
		return nil
	}
	out := make(map[string]string, len(e.Errors))
	for _, err := range e.Errors {
		if _, ok := out[err.Field]; !ok {
			out[err.Field] = err.Message
		}
	}
	return out
}

// Rule is an extra per-column check
type Rule func(value any) *ValidationError

// SchemaValidator validates values against a table definition
type SchemaValidator struct {
	mu    sync.RWMutex
	rules map[string][]Rule
}

// NewSchemaValidator creates a new schema validator
func NewSchemaValidator() *SchemaValidator {
	return &SchemaValidator{rules: make(map[string][]Rule)}
}

// AddRule adds a rule for table.column
func (v *SchemaValidator) AddRule(table, column string, rule Rule) {
	key := table + "." + column
	v.mu.Lock()
	defer v.mu.Unlock()
	v.rules[key] = append(v.rules[key], rule)
}

// Validate checks data against table. Columns missing from data are treated
// as NULL. A NULL auto-increment key is accepted since the database fills it.
// It returns nil when everything is valid.
func (v *SchemaValidator) Validate(table *registry.Table, data map[string]any) *ValidationErrors {
	errs := &ValidationErrors{}

	for _, col := range table.Columns {
		value := data[col.Name]

		if isEmpty(value) {
			if value == nil && col.Flags.Has(registry.FlagNotNull) && !col.AutoIncrement && col.DefaultValue == nil {
				errs.Errors = append(errs.Errors, ValidationError{
					Field:   col.Name,
					Message: fmt.Sprintf("required field '%s' is missing", col.Name),
					Code:    CodeRequired,
				})
			}
			continue
		}

		if fieldErr := v.ValidateField(col, value); fieldErr != nil {
			errs.Errors = append(errs.Errors, *fieldErr)
			continue
		}

		v.mu.RLock()
		rules := v.rules[table.Name+"."+col.Name]
		v.mu.RUnlock()
		for _, rule := range rules {
			if ruleErr := rule(value); ruleErr != nil {
				errs.Errors = append(errs.Errors, *ruleErr)
			}
		}
	}

	if !errs.HasErrors() {
		return nil
	}
	return errs
}

// ValidateField checks a single non-empty value against its column
func (v *SchemaValidator) ValidateField(col registry.Column, value any) *ValidationError {
	flags := col.Flags

	switch {
	case flags.Has(registry.FlagInt):
		if !isInteger(value) {
			return &ValidationError{
				Field:       col.Name,
				Message:     fmt.Sprintf("field '%s' must be an integer", col.Name),
				ActualValue: value,
				Code:        CodeInvalidInteger,
			}
		}
	case flags.Has(registry.FlagDate | registry.FlagTime):
		if !parsesAs(value, datetimeLayouts) {
			return &ValidationError{
				Field:       col.Name,
				Message:     fmt.Sprintf("field '%s' has invalid datetime format", col.Name),
				ActualValue: value,
				Code:        CodeInvalidDatetime,
			}
		}
	case flags.Has(registry.FlagDate):
		if !parsesAs(value, dateLayouts) {
			return &ValidationError{
				Field:       col.Name,
				Message:     fmt.Sprintf("field '%s' has invalid date format", col.Name),
				ActualValue: value,
				Code:        CodeInvalidDate,
			}
		}
	case flags.Has(registry.FlagTime):
		if !parsesAs(value, timeLayouts) {
			return &ValidationError{
				Field:       col.Name,
				Message:     fmt.Sprintf("field '%s' has invalid time format", col.Name),
				ActualValue: value,
				Code:        CodeInvalidTime,
			}
		}
	case flags.Has(registry.FlagBool):
		if !isBoolean(value) {
			return &ValidationError{
				Field:       col.Name,
				Message:     fmt.Sprintf("field '%s' must be a boolean", col.Name),
				ActualValue: value,
				Code:        CodeInvalidBoolean,
			}
		}
	}

	if len(col.EnumValues) > 0 {
		if !slices.Contains(col.EnumValues, fmt.Sprint(value)) {
			return &ValidationError{
				Field:       col.Name,
				Message:     fmt.Sprintf("field '%s' must be one of: %s", col.Name, strings.Join(col.EnumValues, ", ")),
				ActualValue: value,
				Code:        CodeInvalidEnum,
			}
		}
	}

	return nil
}

var (
	datetimeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"}
	dateLayouts     = []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05"}
	timeLayouts     = []string{"15:04:05", "15:04"}
)

func isEmpty(value any) bool {
	if value == nil {
		return true
	}
	s, ok := value.(string)
	return ok && s == ""
}

func isInteger(value any) bool {
	switch v := value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	case float64:
		return v == math.Trunc(v)
	case string:
		_, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return err == nil
	case []byte:
		_, err := strconv.ParseInt(string(v), 10, 64)
		return err == nil
	}
	return false
}

func isBoolean(value any) bool {
	switch v := value.(type) {
	case bool:
		return true
	case int64:
		return v == 0 || v == 1
	case int:
		return v == 0 || v == 1
	case string:
		_, err := strconv.ParseBool(v)
		return err == nil
	}
	return false
}

func parsesAs(value any, layouts []string) bool {
	switch v := value.(type) {
	case time.Time:
		return true
	case []byte:
		value = string(v)
	}

	s, ok := value.(string)
	if !ok {
		return false
	}
	for _, layout := range layouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

// MaxLengthRule creates a rule limiting the length of string values
func MaxLengthRule(fieldName string, maxLength int) Rule {
	return func(value any) *ValidationError {
		str, ok := value.(string)
		if !ok {
			return nil
		}

		if len(str) > maxLength {
			return &ValidationError{
				Field:       fieldName,
				Message:     fmt.Sprintf("field '%s' must be at most %d characters", fieldName, maxLength),
				ActualValue: len(str),
				Code:        "STRING_TOO_LONG",
			}
		}
		return nil
	}
}
