package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions
var (
	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrRecordNotFound is returned when a match record is not in the feature store
	ErrRecordNotFound = errors.New("record not found")

	// ErrTileRange is returned when a local feature ID does not fit its tile field
	ErrTileRange = errors.New("local id out of tile range")

	// ErrUnknownKind is returned for an index kind the cache does not hold
	ErrUnknownKind = errors.New("unknown index kind")

	// ErrJobNotFound is returned when a job is not found
	ErrJobNotFound = errors.New("job not found")
)

// ValidationError represents an input validation error with context
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// RecordNotFoundError represents a missing match record with context
type RecordNotFoundError struct {
	ExternalID string
}

func (e *RecordNotFoundError) Error() string {
	return fmt.Sprintf("record with external ID '%s' not found", e.ExternalID)
}

func (e *RecordNotFoundError) Is(target error) bool {
	return target == ErrRecordNotFound
}

// NewRecordNotFoundError creates a new RecordNotFoundError
func NewRecordNotFoundError(externalID string) *RecordNotFoundError {
	return &RecordNotFoundError{ExternalID: externalID}
}

// TileRangeError reports a local ID that would spill into the y field of a tile ID
type TileRangeError struct {
	LocalID uint64
	Max     uint64
}

func (e *TileRangeError) Error() string {
	return fmt.Sprintf("local id %d exceeds maximum %d", e.LocalID, e.Max)
}

func (e *TileRangeError) Is(target error) bool {
	return target == ErrTileRange
}

// NewTileRangeError creates a new TileRangeError
func NewTileRangeError(localID, max uint64) *TileRangeError {
	return &TileRangeError{LocalID: localID, Max: max}
}

// UnknownKindError represents a request for an index kind that does not exist
type UnknownKindError struct {
	Kind string
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("index kind '%s' is not one of term, phrase, degen, grid", e.Kind)
}

func (e *UnknownKindError) Is(target error) bool {
	return target == ErrUnknownKind
}

// NewUnknownKindError creates a new UnknownKindError
func NewUnknownKindError(kind string) *UnknownKindError {
	return &UnknownKindError{Kind: kind}
}

// JobNotFoundError represents a job not found error with context
type JobNotFoundError struct {
	JobID string
}

func (e *JobNotFoundError) Error() string {
	return fmt.Sprintf("job with ID '%s' not found", e.JobID)
}

func (e *JobNotFoundError) Is(target error) bool {
	return target == ErrJobNotFound
}

// NewJobNotFoundError creates a new JobNotFoundError
func NewJobNotFoundError(jobID string) *JobNotFoundError {
	return &JobNotFoundError{JobID: jobID}
}
