// Package errors provides structured error types for the plugin host.
//
// Errors are categorized by Phase (where in the host lifecycle the error
// occurred) and Kind (error category). Every phase is terminal for the
// process: startup, contract, call and input failures abort the host with
// the rendered message. A guest reporting zero matches is not an error.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseCall, errors.KindTypeMismatch).
//		Subject("generate-completions").
//		Detail("result is %T", v).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.NotFound(path, cause)
//	err := errors.Trap(export, cause)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
