// Package errors provides structured error types for the napi-go layer.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). A boundary failure additionally carries the raw sys.Status and
// the name of the boundary operation that produced it.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseCast, errors.KindTypeMismatch).
//		Op("napi_is_array").
//		HostType("object").
//		GoType("Array").
//		Detail("value is not an array").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Status(errors.PhaseCall, "napi_get_property", sys.StatusObjectExpected, "object expected")
//	err := errors.TypeMismatch(errors.PhaseCast, "Array", "object")
//
// The three top-level failure classes of the layer map to kinds:
//
//	KindStatus           - a boundary call returned a non-Ok status
//	KindPendingException - the host already holds an unhandled exception
//	KindTypeMismatch     - a local check rejected a value or wrapped payload
//
// All errors implement the standard error interface and support errors.Is/As.
// Kind-only sentinels such as ErrPendingException match any phase.
package errors
