// Package errors provides classified error handling for larder.
//
// Errors carry a category (for routing and metrics), a severity, a retry
// strategy, and structured context. Construction goes through ErrorBuilder
// so call sites stay uniform:
//
//	return errors.StoreError("insert ingredient").WithCause(err).Build()
package errors
