package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestValidationError(t *testing.T) {
	// Test with field
	field := "center"
	message := "feature has no center"
	err := NewValidationError(field, message)

	expectedMsg := "validation error for field 'center': feature has no center"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message '%s', got '%s'", expectedMsg, err.Error())
	}

	// Test without field
	err2 := NewValidationError("", message)

	expectedMsg2 := "validation error: feature has no center"
	if err2.Error() != expectedMsg2 {
		t.Errorf("Expected error message '%s', got '%s'", expectedMsg2, err2.Error())
	}

	// Test Is() method
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("Expected error to match ErrInvalidInput sentinel")
	}
	if !errors.Is(err2, ErrInvalidInput) {
		t.Error("Expected error without field to match ErrInvalidInput sentinel")
	}
	if errors.Is(err, ErrRecordNotFound) {
		t.Error("Error should not match ErrRecordNotFound")
	}
}

func TestRecordNotFoundError(t *testing.T) {
	err := NewRecordNotFoundError("place.42")

	expectedMsg := "record with external ID 'place.42' not found"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message '%s', got '%s'", expectedMsg, err.Error())
	}

	if !errors.Is(err, ErrRecordNotFound) {
		t.Error("Expected error to match ErrRecordNotFound sentinel")
	}
}

func TestTileRangeError(t *testing.T) {
	err := NewTileRangeError(1<<25, 1<<25-1)

	expectedMsg := "local id 33554432 exceeds maximum 33554431"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message '%s', got '%s'", expectedMsg, err.Error())
	}

	if !errors.Is(err, ErrTileRange) {
		t.Error("Expected error to match ErrTileRange sentinel")
	}
}

func TestUnknownKindError(t *testing.T) {
	err := NewUnknownKindError("freq")

	expectedMsg := "index kind 'freq' is not one of term, phrase, degen, grid"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message '%s', got '%s'", expectedMsg, err.Error())
	}

	if !errors.Is(err, ErrUnknownKind) {
		t.Error("Expected error to match ErrUnknownKind sentinel")
	}
}

func TestJobNotFoundError(t *testing.T) {
	err := NewJobNotFoundError("job-1")

	expectedMsg := "job with ID 'job-1' not found"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message '%s', got '%s'", expectedMsg, err.Error())
	}

	if !errors.Is(err, ErrJobNotFound) {
		t.Error("Expected error to match ErrJobNotFound sentinel")
	}
	if errors.Is(err, ErrRecordNotFound) {
		t.Error("Job errors must not match ErrRecordNotFound")
	}
}

func TestErrorChaining(t *testing.T) {
	// Test that our custom errors can be wrapped and unwrapped
	originalErr := NewValidationError("context[1].externalID", "feature has no external id")
	wrappedErr := fmt.Errorf("failed to assemble feature: %w", originalErr)

	// Should still be able to detect the original error
	if !errors.Is(wrappedErr, ErrInvalidInput) {
		t.Error("Expected wrapped error to still match ErrInvalidInput sentinel")
	}

	// Should be able to unwrap to get the original error
	var validationErr *ValidationError
	if !errors.As(wrappedErr, &validationErr) {
		t.Error("Expected to be able to unwrap to ValidationError")
	}

	if validationErr.Field != "context[1].externalID" {
		t.Errorf("Expected field 'context[1].externalID', got '%s'", validationErr.Field)
	}
}
