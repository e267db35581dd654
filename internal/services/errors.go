package services

import (
	"errors"

	"github.com/certprep-labs/analysis-service/internal/llm"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrNotFound      = errors.New("resource not found")
	ErrInternalError = errors.New("internal server error")

	// Analysis pipeline errors
	ErrNotAuthenticated = errors.New("User not authenticated")
	ErrNoDataAvailable  = errors.New("No completed quiz attempts found")
	ErrEmptyAttemptSet  = errors.New("no attempts available to format")

	// Report errors
	ErrReportNotFound = errors.New("analysis report not found")
)

// ===== ERROR HELPERS =====

// IsNoData checks if error means the user has nothing to analyze.
func IsNoData(err error) bool {
	return errors.Is(err, ErrNoDataAvailable) || errors.Is(err, ErrEmptyAttemptSet)
}

// IsNotAuthenticated checks if error represents a missing user identity.
func IsNotAuthenticated(err error) bool {
	return errors.Is(err, ErrNotAuthenticated)
}

// IsGenerationTimeout checks if error means an AI call or the whole pipeline
// ran out of time. Surfaced to users as a retry-by-hand condition; the system
// itself never retries.
func IsGenerationTimeout(err error) bool {
	return errors.Is(err, llm.ErrGenerationTimeout)
}

// IsMalformedAIResponse checks if error means the model output could not be
// parsed after fence stripping.
func IsMalformedAIResponse(err error) bool {
	var malformed *llm.MalformedResponseError
	return errors.As(err, &malformed)
}

// IsNotFound checks if error represents a "not found" condition.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrReportNotFound)
}
