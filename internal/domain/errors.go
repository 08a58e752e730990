// Package domain contains the pure advisory models: participants, experts,
// templates, recommendations and feedback, together with the matching and
// rating rules and the coded errors every layer reports.
package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so that callers can react to the category of an
// error without matching every individual sentinel.
type Kind uint8

const (
	// KindInternal covers broken invariants and infrastructure failures.
	KindInternal Kind = iota
	// KindAuthorization means the caller lacks the required role or ownership.
	KindAuthorization
	// KindNotFound means a referenced entity does not exist.
	KindNotFound
	// KindConflict means the target is already in a terminal state.
	KindConflict
	// KindInvalidInput means a value is outside its declared domain.
	KindInvalidInput
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInvalidInput:
		return "invalid_input"
	default:
		return "internal"
	}
}

// CodedError is a sentinel error that carries a stable wire code and a Kind.
// Values are compared by identity, so errors.Is works against the exported
// sentinels below.
type CodedError struct {
	// Code is the stable identifier surfaced to API clients.
	Code string

	// Kind is the taxonomy bucket of the error.
	Kind Kind

	msg string
}

// Error implements the error interface for CodedError.
func (e *CodedError) Error() string { return e.msg }

func newCoded(kind Kind, code, msg string) *CodedError {
	return &CodedError{Code: code, Kind: kind, msg: msg}
}

// Errors returned by the advisory engine. The codes are part of the public
// contract and must not change.
var (
	// ErrNotAuthorized indicates the caller lacks the role or ownership the
	// operation requires.
	ErrNotAuthorized = newCoded(KindAuthorization, "ERR-NOT-AUTHORIZED", "not authorized")

	// ErrExpertAlreadyVerified indicates the expert has already been verified.
	ErrExpertAlreadyVerified = newCoded(KindConflict, "ERR-EXPERT-ALREADY-VERIFIED", "expert already verified")

	// ErrExpertNotFound indicates the referenced expert does not exist.
	ErrExpertNotFound = newCoded(KindNotFound, "ERR-EXPERT-NOT-FOUND", "expert not found")

	// ErrFarmNotFound indicates the caller has no registered farm profile.
	ErrFarmNotFound = newCoded(KindNotFound, "ERR-FARM-NOT-FOUND", "farm not found")

	// ErrFarmAlreadyRegistered indicates the caller already owns a farm profile.
	ErrFarmAlreadyRegistered = newCoded(KindConflict, "ERR-FARM-ALREADY-REGISTERED", "farm already registered")

	// ErrInvalidWeatherData indicates a weather reading outside the sane domain.
	ErrInvalidWeatherData = newCoded(KindInvalidInput, "ERR-INVALID-WEATHER-DATA", "invalid weather data")

	// ErrAnalysisNotFound indicates no analysis template exists or matches.
	ErrAnalysisNotFound = newCoded(KindNotFound, "ERR-ANALYSIS-NOT-FOUND", "analysis not found")

	// ErrRecommendationNotFound indicates the recommendation id is unknown.
	ErrRecommendationNotFound = newCoded(KindNotFound, "ERR-RECOMMENDATION-NOT-FOUND", "recommendation not found")

	// ErrAlreadyRated indicates feedback was already recorded for the
	// recommendation.
	ErrAlreadyRated = newCoded(KindConflict, "ERR-ALREADY-RATED", "recommendation already rated")

	// ErrInvalidRating indicates a rating outside [1,100].
	ErrInvalidRating = newCoded(KindInvalidInput, "ERR-INVALID-RATING", "invalid rating")

	// ErrInvalidCropType indicates a crop type missing from the vocabulary.
	ErrInvalidCropType = newCoded(KindInvalidInput, "ERR-INVALID-CROP-TYPE", "invalid crop type")

	// ErrInvalidVocabularyTerm indicates a health metric or goal missing from
	// its vocabulary, or a malformed term.
	ErrInvalidVocabularyTerm = newCoded(KindInvalidInput, "ERR-INVALID-VOCABULARY-TERM", "invalid vocabulary term")

	// ErrVocabularyTermExists indicates the term is already in the vocabulary.
	ErrVocabularyTermExists = newCoded(KindConflict, "ERR-VOCABULARY-TERM-EXISTS", "vocabulary term already exists")

	// ErrInvalidInput indicates a malformed request body or argument.
	ErrInvalidInput = newCoded(KindInvalidInput, "ERR-INVALID-INPUT", "invalid input")

	// ErrInvariantViolated indicates an internal invariant did not hold. It
	// is never the caller's fault.
	ErrInvariantViolated = newCoded(KindInternal, "ERR-INVARIANT-VIOLATED", "invariant violated")
)

// KindOf reports the Kind of err by searching its chain for a CodedError.
// Errors without a code are KindInternal.
func KindOf(err error) Kind {
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Kind
	}
	return KindInternal
}

// CodeOf returns the wire code for err, or "ERR-INTERNAL" when the chain
// carries no CodedError.
func CodeOf(err error) string {
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code
	}
	return "ERR-INTERNAL"
}

// OperationError records which engine operation failed and why.
type OperationError struct {
	// Operation is the name of the engine operation that failed.
	Operation string

	// Err is the underlying error that caused the operation to fail.
	Err error
}

// Error implements the error interface for OperationError.
func (e *OperationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying error, supporting Go 1.13+ error unwrapping.
func (e *OperationError) Unwrap() error { return e.Err }

// NewOperationError creates a new OperationError with the given details.
func NewOperationError(operation string, err error) *OperationError {
	return &OperationError{
		Operation: operation,
		Err:       err,
	}
}

// ValidationError represents an error that occurred during input validation.
// It can contain multiple validation failures and always unwraps to a
// KindInvalidInput sentinel.
type ValidationError struct {
	// Entity is the name of the entity that failed validation.
	Entity string

	// Errors contains the list of validation error messages.
	Errors []string

	// Cause is the sentinel the error unwraps to. Defaults to ErrInvalidInput.
	Cause *CodedError
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

// Unwrap returns the sentinel cause so errors.Is and KindOf see through the
// validation detail.
func (e *ValidationError) Unwrap() error {
	if e.Cause == nil {
		return ErrInvalidInput
	}
	return e.Cause
}

// AddError adds a new error message to the validation error.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// HasErrors returns true if there are any validation errors.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// NewValidationError creates a new ValidationError for the given entity.
func NewValidationError(entity string, cause *CodedError) *ValidationError {
	return &ValidationError{
		Entity: entity,
		Errors: make([]string, 0),
		Cause:  cause,
	}
}
