package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// InputUnavailable indicates no source could be obtained for the scope
	InputUnavailable ErrorCode = "INPUT_UNAVAILABLE"
	// NoMatchingFiles indicates the source was reachable but held nothing analyzable
	NoMatchingFiles ErrorCode = "NO_MATCHING_FILES"
	// ValidationFailed indicates a synthesized document failed its sanity checks
	ValidationFailed ErrorCode = "VALIDATION_FAILED"
	// CacheStoreFailed indicates a generated artifact could not be persisted
	CacheStoreFailed ErrorCode = "CACHE_STORE_FAILED"
	// UnsupportedKind indicates an unknown diagram kind was requested
	UnsupportedKind ErrorCode = "UNSUPPORTED_KIND"
	// ScopeInvalid indicates an empty or malformed scope identifier
	ScopeInvalid ErrorCode = "SCOPE_INVALID"
	// ConfigInvalid indicates the configuration could not be loaded or validated
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// OpenDocs suggests opening documentation
	OpenDocs FixActionType = "open-docs"
	// Configure suggests changing configuration
	Configure FixActionType = "configure"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
	URL         string        `json:"url,omitempty"`
}

// CodemapError is a coded error carrying user-facing remediation hints.
type CodemapError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // not exported to JSON
}

// New creates a CodemapError. When fixes is nil the default
// actions registered for the code are attached.
func New(code ErrorCode, message string, cause error, fixes []FixAction) *CodemapError {
	if fixes == nil {
		fixes = GetSuggestedFixes(code)
	}
	return &CodemapError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: fixes,
	}
}

// Newf creates a CodemapError with a formatted message and default fixes.
func Newf(code ErrorCode, format string, args ...interface{}) *CodemapError {
	return New(code, fmt.Sprintf(format, args...), nil, nil)
}

// Error implements the error interface
func (e *CodemapError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *CodemapError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *CodemapError) WithDetails(details interface{}) *CodemapError {
	e.Details = details
	return e
}

// CodeOf returns the code of the first CodemapError in err's chain,
// or InternalError when there is none.
func CodeOf(err error) ErrorCode {
	var ce *CodemapError
	if stderrors.As(err, &ce) {
		return ce.Code
	}
	return InternalError
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code ErrorCode) bool {
	var ce *CodemapError
	return stderrors.As(err, &ce) && ce.Code == code
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	InputUnavailable: {
		{
			Type:        Configure,
			Description: "Connect a repository first: pass --path or configure a source for this scope",
		},
	},
	NoMatchingFiles: {
		{
			Type:        RunCommand,
			Command:     "codemap extract --path <dir>",
			Safe:        true,
			Description: "No Python or Angular files matched; check the path and analysis.ignore",
		},
	},
	ValidationFailed: {
		{
			Type:        Configure,
			Description: "Review uml.maxClasses or narrow the analyzed path",
		},
	},
	CacheStoreFailed: {
		{
			Type:        RunCommand,
			Command:     "codemap cache cleanup",
			Safe:        true,
			Description: "Remove expired entries and retry",
		},
	},
	UnsupportedKind: {
		{
			Type:        RunCommand,
			Command:     "codemap generate --help",
			Safe:        true,
			Description: "List supported diagram kinds",
		},
	},
	ConfigInvalid: {
		{
			Type:        RunCommand,
			Command:     "codemap config show",
			Safe:        true,
			Description: "Inspect the effective configuration",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
