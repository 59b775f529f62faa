// Package ftdberr provides structured error handling for ftengine,
// recoded from the teacher's internal/errors around this engine's own
// taxonomy (spec.md §7) instead of AmanMCP's config/IO/network
// categories: Input errors are surfaced to the caller verbatim,
// Resource errors describe degraded-but-legitimate outcomes, and
// Internal errors should not occur in steady state and get an
// obfuscated detail when logged.
package ftdberr

import "fmt"

// Category classifies an error per spec.md §7.
type Category string

const (
	CategoryInput    Category = "INPUT"
	CategoryResource Category = "RESOURCE"
	CategoryInternal Category = "INTERNAL"
)

// Code enumerates the named error codes spec.md §7 lists per category.
type Code string

const (
	// Input: surfaced to the caller verbatim.
	CodeSyntax    Code = "SYNTAX"
	CodeParseArgs Code = "PARSE_ARGS"
	CodeBadAttr   Code = "BAD_ATTR"
	CodeNoParam   Code = "NO_PARAM"
	CodeDupParam  Code = "DUP_PARAM"
	CodeBadVal    Code = "BAD_VAL"

	// Resource.
	CodeNoResults   Code = "NO_RESULTS"
	CodeTimedOut    Code = "TIMED_OUT"
	CodeGeneric     Code = "GENERIC"
	CodeUnsupported Code = "UNSUPPORTED"

	// Internal: should not occur in steady state.
	CodeIndexCorrupt      Code = "INDEX_CORRUPT"
	CodeGCPipeEOF         Code = "GC_PIPE_EOF"
	CodeRefcountUnderflow Code = "REFCOUNT_UNDERFLOW"
)

var categoryOf = map[Code]Category{
	CodeSyntax:    CategoryInput,
	CodeParseArgs: CategoryInput,
	CodeBadAttr:   CategoryInput,
	CodeNoParam:   CategoryInput,
	CodeDupParam:  CategoryInput,
	CodeBadVal:    CategoryInput,

	CodeNoResults:   CategoryResource,
	CodeTimedOut:    CategoryResource,
	CodeGeneric:     CategoryResource,
	CodeUnsupported: CategoryResource,

	CodeIndexCorrupt:      CategoryInternal,
	CodeGCPipeEOF:         CategoryInternal,
	CodeRefcountUnderflow: CategoryInternal,
}

// Error is ftengine's structured error type. Every layer that returns
// one of these either clones an error produced by a lower layer or
// replaces it only when its own result was otherwise Ok (spec.md §7
// "Propagation").
type Error struct {
	Code Code

	// Detail is the human-readable message. For Internal errors this is
	// shown to operators via logs; callers instead see Obfuscated.
	Detail string

	// Cause is the underlying error, if any.
	Cause error

	// Partial marks a Resource-category error that still carries usable
	// results (e.g. a fan-out that timed out after collecting some
	// shard replies) rather than a hard failure.
	Partial bool
}

// Category derives this error's category from its Code.
func (e *Error) Category() Category {
	if c, ok := categoryOf[e.Code]; ok {
		return c
	}
	return CategoryInternal
}

// Error implements the error interface. Internal-category errors never
// leak their Detail verbatim, matching spec.md §7's "logged and
// surfaced as Generic with an obfuscated detail".
func (e *Error) Error() string {
	if e.Category() == CategoryInternal {
		return fmt.Sprintf("[%s] internal error (see logs)", CodeGeneric)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Detail)
}

// Unwrap supports errors.Is/As chains.
func (e *Error) Unwrap() error { return e.Cause }

// Is matches another *Error by Code, so errors.Is(err, ftdberr.New(ftdberr.CodeTimedOut, "")) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New builds an Error.
func New(code Code, detail string) *Error {
	return &Error{Code: code, Detail: detail}
}

// Wrap attaches code to an existing error, preserving it as Cause.
// Returns nil if err is nil, so it composes with `if err := ...; err != nil`.
func Wrap(code Code, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Detail: err.Error(), Cause: err}
}

// WithPartial marks the error as carrying partial, still-usable results.
func (e *Error) WithPartial() *Error {
	e.Partial = true
	return e
}

// IsPartial reports whether err is a *Error with Partial set.
func IsPartial(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Partial
}

// IsInternal reports whether err is an Internal-category *Error.
func IsInternal(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Category() == CategoryInternal
}

// CodeOf extracts the Code from err, or "" if err isn't a *Error.
func CodeOf(err error) Code {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return ""
}

// AggregateShardErrors folds per-shard errors into one top-level
// Generic error whose detail names the first failure and the total
// failure count (spec.md §7: "The cluster coordinator aggregates shard
// errors into a single top-level error whose detail lists the first
// failure and the count"). Returns nil if errs is empty.
func AggregateShardErrors(errs []error) *Error {
	if len(errs) == 0 {
		return nil
	}
	return &Error{
		Code:   CodeGeneric,
		Detail: fmt.Sprintf("%d shard(s) failed, first: %v", len(errs), errs[0]),
		Cause:  errs[0],
	}
}
