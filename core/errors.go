package core

import "errors"

// The error taxonomy of the engine. Query-time failures are returned to the
// caller typed by kind and never retried or downgraded to an empty result.
var (
	// ErrConfigInvalid marks a malformed rule definition, e.g. a template
	// referencing a capture its expression never declares. Detected when an
	// entry is loaded or added; the entry is rejected, the process keeps
	// serving everything else.
	ErrConfigInvalid = errors.New("invalid rule definition")

	// ErrSyntaxInvalid means the body does not parse under the claimed
	// language grammar.
	ErrSyntaxInvalid = errors.New("body is not syntactically valid")

	// ErrUnsupportedLanguage means the language tag is not in the registry.
	ErrUnsupportedLanguage = errors.New("unsupported language")

	// ErrNoCollectionMatch means the index has nothing to search: it is
	// empty, or the namespace for the requested language is.
	ErrNoCollectionMatch = errors.New("no collection matches the description")

	// ErrNoMatch means a collection was selected but none of its rules'
	// patterns matched the given body.
	ErrNoMatch = errors.New("no rule matched the body")

	// ErrBackendUnavailable means the embedding compute resource could not
	// be initialized or used.
	ErrBackendUnavailable = errors.New("embedding backend unavailable")

	// ErrCaptureUnbound means a template referenced a capture absent from
	// the match. Load-time validation makes this unreachable; seeing it at
	// query time indicates a validation bug.
	ErrCaptureUnbound = errors.New("capture not bound in match")
)
