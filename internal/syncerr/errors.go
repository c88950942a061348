// Package syncerr defines the error taxonomy shared by the rule package lifecycle components.
//
// Every failure raised by the fetcher, verifier, cache store, orchestrator and coordinator
// carries a Kind so callers can map outcomes (exit codes, retry policy) with errors.Is or
// KindOf instead of inspecting messages.
package syncerr

import (
	"errors"
	"fmt"
)

// Kind classifies a rule sync failure
type Kind string

const (
	// KindSourceNotFound means the source does not resolve to readable content
	KindSourceNotFound Kind = "SourceNotFound"

	// KindFetch means a transport, tool or remote path resolution failure
	KindFetch Kind = "FetchError"

	// KindChecksumMismatch means the computed digest differs from the expected one
	KindChecksumMismatch Kind = "ChecksumMismatch"

	// KindExtract means the archive is not a valid gzip-compressed tar
	KindExtract Kind = "ExtractError"

	// KindVersionNotFound means the referenced version is not cached
	KindVersionNotFound Kind = "VersionNotFound"

	// KindNoEarlierVersion means a rollback has no predecessor to activate
	KindNoEarlierVersion Kind = "NoEarlierVersion"

	// KindOfflineCacheMiss means offline mode was requested without a usable cached version
	KindOfflineCacheMiss Kind = "OfflineCacheMiss"

	// KindInvalidSource means a source string or regulation identifier could not be parsed
	KindInvalidSource Kind = "InvalidSource"

	// KindSync is the generic failure kind for everything else
	KindSync Kind = "SyncError"
)

// Sentinels for use with errors.Is
var (
	ErrSourceNotFound   = &Error{Kind: KindSourceNotFound}
	ErrFetch            = &Error{Kind: KindFetch}
	ErrChecksumMismatch = &Error{Kind: KindChecksumMismatch}
	ErrExtract          = &Error{Kind: KindExtract}
	ErrVersionNotFound  = &Error{Kind: KindVersionNotFound}
	ErrNoEarlierVersion = &Error{Kind: KindNoEarlierVersion}
	ErrOfflineCacheMiss = &Error{Kind: KindOfflineCacheMiss}
	ErrInvalidSource    = &Error{Kind: KindInvalidSource}
	ErrSync             = &Error{Kind: KindSync}
)

// Error is a classified rule sync failure
type Error struct {
	Kind Kind
	// Op names the operation that failed, e.g. "fetch" or "activate"
	Op  string
	Err error
}

// New creates a classified error wrapping err
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf creates a classified error with a formatted cause
func Newf(kind Kind, op string, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same Kind, so the package sentinels work with errors.Is
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the Kind of the outermost classified error in err's chain.
// Unclassified non-nil errors report KindSync.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindSync
}

// Classify wraps err with kind unless it already carries a classification
func Classify(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return New(kind, op, err)
}
