// Package api provides validation utilities for API request handling.
package api

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/go-geocode-keys/model"
)

// maxTermLength bounds the terms accepted by the degens route.
const maxTermLength = 256

// ValidationError represents a validation error with field context
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResult holds the result of validation operations
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// AddError adds a validation error to the result
func (vr *ValidationResult) AddError(field, message string) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, ValidationError{
		Field:   field,
		Message: message,
	})
}

// HasErrors returns true if there are validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// ValidateTerm validates a single normalized term
func ValidateTerm(term string) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if term == "" {
		result.AddError("term", "Term is required")
		return result
	}

	if strings.ContainsAny(term, " \t\n") {
		result.AddError("term", "Term must be a single token")
	}

	if utf8.RuneCountInString(term) > maxTermLength {
		result.AddError("term", fmt.Sprintf("Term cannot be longer than %d characters", maxTermLength))
	}

	return result
}

// ValidateZXY validates a "z/x/y" tile path. Segments are not required to be
// numeric; non-numeric segments encode as 0.
func ValidateZXY(zxy string) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if zxy == "" {
		result.AddError("zxy", "Tile path is required")
		return result
	}

	if parts := strings.Split(zxy, "/"); len(parts) != 3 {
		result.AddError("zxy", "Tile path must have the form z/x/y")
	}

	return result
}

// ValidateExternalIDs validates the external IDs of a context chain
func ValidateExternalIDs(ids []string) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if len(ids) == 0 {
		result.AddError("ids", "At least one external ID is required")
		return result
	}

	for i, id := range ids {
		if strings.TrimSpace(id) == "" {
			result.AddError(fmt.Sprintf("ids[%d]", i), "External ID cannot be empty or whitespace-only")
		}
	}

	return result
}

// ValidateRecords validates a slice of records for indexing
func ValidateRecords(records []model.MatchRecord) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if len(records) == 0 {
		result.AddError("records", "No records provided")
		return result
	}

	for i, rec := range records {
		if strings.TrimSpace(rec.ExternalID) == "" {
			result.AddError(fmt.Sprintf("records[%d]._extid", i), "Record must have a non-empty '_extid' field")
		}
		if len(rec.Synonyms()) == 0 {
			result.AddError(fmt.Sprintf("records[%d]._text", i), "Record must have a non-empty '_text' field")
		}
		if rec.Center == nil {
			result.AddError(fmt.Sprintf("records[%d]._center", i), "Record must have a '_center' field")
		}
	}

	return result
}

// SendValidationError sends a standardized validation error response
func SendValidationError(c *gin.Context, result *ValidationResult) {
	SendStructuredValidationError(c, result)
}

// ValidateJSONBinding validates JSON binding and returns a standardized error
func ValidateJSONBinding(c *gin.Context, target interface{}) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if err := c.ShouldBindJSON(target); err != nil {
		result.AddError("request_body", "Invalid request body: "+err.Error())
	}

	return result
}

// ValidateQueryBinding validates query parameter binding
func ValidateQueryBinding(c *gin.Context, target interface{}) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if err := c.ShouldBindQuery(target); err != nil {
		result.AddError("query_parameters", "Invalid query parameters: "+err.Error())
	}

	return result
}
