package composer

import (
	"errors"
	"fmt"
)

// Reason classifies composition failures so callers can tell a bad request
// from a missing asset, a render crash, or a silently broken output file.
type Reason string

const (
	ReasonValidation         Reason = "validation"
	ReasonAssetUnavailable   Reason = "asset_unavailable"
	ReasonEngineInvocation   Reason = "engine_invocation_failed"
	ReasonOutputVerification Reason = "output_verification_failed"
)

// CompositionError wraps a failure with its classification. A nonzero engine
// exit and a zero-duration output file carry different reasons even though
// both leave no usable video behind.
type CompositionError struct {
	Reason Reason
	Err    error
}

func (e *CompositionError) Error() string {
	return fmt.Sprintf("composition failed (%s): %v", e.Reason, e.Err)
}

func (e *CompositionError) Unwrap() error { return e.Err }

func failure(reason Reason, format string, args ...any) *CompositionError {
	return &CompositionError{Reason: reason, Err: fmt.Errorf(format, args...)}
}

// ReasonOf extracts the failure classification, or "" for errors that did
// not come from a composition.
func ReasonOf(err error) Reason {
	var ce *CompositionError
	if errors.As(err, &ce) {
		return ce.Reason
	}
	return ""
}
