// Package errs defines the typed failure taxonomy shared across the
// ingestion and catalog pipeline, plus the record-level sanitizer and
// batch validator that use it.
package errs

import "fmt"

// Kind enumerates the typed failure categories from the error taxonomy.
type Kind string

const (
	KindInvalidGigData              Kind = "INVALID_GIG_DATA"
	KindMissingRequiredField        Kind = "MISSING_REQUIRED_FIELD"
	KindInvalidDateFormat           Kind = "INVALID_DATE_FORMAT"
	KindInvalidVenueData            Kind = "INVALID_VENUE_DATA"
	KindInvalidPriceData            Kind = "INVALID_PRICE_DATA"
	KindInvalidURLFormat            Kind = "INVALID_URL_FORMAT"
	KindHashGenerationFailed        Kind = "HASH_GENERATION_FAILED"
	KindSimilarityCalculationFailed Kind = "SIMILARITY_CALCULATION_FAILED"
	KindDataCorruption              Kind = "DATA_CORRUPTION"

	// Boundary kinds from §7, surfaced to the query shell.
	KindInvalidQuery    Kind = "INVALID_QUERY"
	KindNotFound        Kind = "NOT_FOUND"
	KindNetworkFailure  Kind = "NETWORK_FAILURE"
	KindRateLimited     Kind = "RATE_LIMITED"
	KindUpstreamParse   Kind = "UPSTREAM_PARSE_FAILURE"
	KindCorruptSnapshot Kind = "CORRUPT_SNAPSHOT"
	KindCorruptCatalog  Kind = "CORRUPT_CATALOG"
	KindServiceUnavailable Kind = "SERVICE_UNAVAILABLE"
)

// ValidationError is a single field-level failure attached to a record
// during validation or sanitization.
type ValidationError struct {
	Kind    Kind
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	other, ok := target.(*ValidationError)
	return ok && other.Kind == e.Kind
}

// New constructs a ValidationError of the given kind.
func New(kind Kind, field, message string) *ValidationError {
	return &ValidationError{Kind: kind, Field: field, Message: message}
}

// TypedError wraps boundary/dependency/system failures with a Kind so
// callers can switch on category without string matching.
type TypedError struct {
	Kind Kind
	Err  error
}

func (e *TypedError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *TypedError) Unwrap() error { return e.Err }

// Wrap attaches a Kind to an underlying error.
func Wrap(kind Kind, err error) *TypedError {
	return &TypedError{Kind: kind, Err: err}
}
