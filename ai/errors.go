package ai

import (
	"context"
	"errors"

	"github.com/chattyhq/ragstore/core"
)

var (
	// ErrInputRejected indicates the provider permanently refused an input,
	// for example text exceeding the model's context window. Retrying the
	// same input will not help; the failure is scoped to that input only.
	ErrInputRejected = errors.New("input rejected by embedding provider")

	// ErrEmptyResult indicates the provider returned fewer embeddings than
	// inputs.
	ErrEmptyResult = errors.New("embedding provider returned empty result")
)

// IsRetryable reports whether a provider error is worth retrying.
// Permanent input rejections, dimensionality mismatches and context
// cancellation are not; everything else is treated as transient.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrInputRejected) || errors.Is(err, core.ErrDimensionMismatch) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}
