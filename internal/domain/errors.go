package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidQuery signals a malformed search request.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrInvalidActivity signals a malformed activity (negative quantity, unknown unit).
	ErrInvalidActivity = errors.New("invalid activity")
	// ErrProviderUnavailable signals a transient embedding provider failure (timeout, 5xx, empty response).
	ErrProviderUnavailable = errors.New("embedding provider unavailable")
	// ErrBudgetExceeded signals that a provider's token budget is spent.
	ErrBudgetExceeded = errors.New("embedding token budget exceeded")
	// ErrEmbedding signals that every configured embedding provider failed.
	ErrEmbedding = errors.New("embedding failed")
	// ErrIndexBuild signals a corrupt catalog that cannot be indexed.
	ErrIndexBuild = errors.New("index build failed")
	// ErrCatalogEmpty signals that no catalog is loaded.
	ErrCatalogEmpty = errors.New("emission factor catalog is empty")
	// ErrUnparsableQuantity signals that no number/unit pair was found in an activity.
	ErrUnparsableQuantity = errors.New("unparsable quantity")
	// ErrNoMatchingFactor signals that no compatible emission factor was found for a process.
	ErrNoMatchingFactor = errors.New("no matching emission factor")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
)

// IndexBuildError wraps ErrIndexBuild with the offending factor.
type IndexBuildError struct {
	FactorID string
	Reason   string
}

func (e *IndexBuildError) Error() string {
	if e.FactorID == "" {
		return fmt.Sprintf("%s: %s", ErrIndexBuild.Error(), e.Reason)
	}
	return fmt.Sprintf("%s: factor %q: %s", ErrIndexBuild.Error(), e.FactorID, e.Reason)
}

func (e *IndexBuildError) Unwrap() error { return ErrIndexBuild }

// NewIndexBuildError creates an index build error.
func NewIndexBuildError(factorID, reason string) error {
	return &IndexBuildError{FactorID: factorID, Reason: reason}
}

// UnparsableQuantityError wraps ErrUnparsableQuantity with the rejected input.
type UnparsableQuantityError struct {
	Input string
}

func (e *UnparsableQuantityError) Error() string {
	return fmt.Sprintf("%s: no number/unit pair in %q", ErrUnparsableQuantity.Error(), e.Input)
}

func (e *UnparsableQuantityError) Unwrap() error { return ErrUnparsableQuantity }

// NoMatchingFactorError wraps ErrNoMatchingFactor with the process that could not be matched.
type NoMatchingFactorError struct {
	Process string
	Reason  string
}

func (e *NoMatchingFactorError) Error() string {
	return fmt.Sprintf("%s for %q: %s", ErrNoMatchingFactor.Error(), e.Process, e.Reason)
}

func (e *NoMatchingFactorError) Unwrap() error { return ErrNoMatchingFactor }

// NewNoMatchingFactor creates a no-matching-factor error.
func NewNoMatchingFactor(process, reason string) error {
	return &NoMatchingFactorError{Process: process, Reason: reason}
}
