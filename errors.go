package snbuild

import (
	"fmt"
	"strings"
)

// ErrorKind classifies the fatal failure modes of a resolution.
//
// Only these three kinds halt the resolver. An unsupported compiler flag is
// silently dropped, and an unrecognized platform axis value falls through to
// a conservative default branch instead of failing.
type ErrorKind int

const (
	// ErrMissingSignal means a mandatory input signal is absent,
	// e.g. the NDK root when cross-compiling for Android.
	ErrMissingSignal ErrorKind = iota

	// ErrMutualExclusion means the chunk-size feature group has zero or
	// more than one member selected. Raised before any backend runs.
	ErrMutualExclusion

	// ErrBackendFailure means a backend process (compiler driver or
	// generator) exited non-zero. The partial artifact must not be linked.
	ErrBackendFailure
)

func (k ErrorKind) String() string {
	switch k {
	case ErrMissingSignal:
		return "missing required signal"
	case ErrMutualExclusion:
		return "invalid mutual exclusion"
	case ErrBackendFailure:
		return "backend process failure"
	default:
		return "unknown error"
	}
}

// ConfigError is the error type returned for all fatal resolution failures.
//
// Use errors.As to recover the Kind. For backend failures, Output holds the
// captured process output for diagnostics.
type ConfigError struct {
	Kind   ErrorKind
	Detail string   // human-readable description
	Output []string // captured build output, backend failures only
	Err    error    // underlying error, if any
}

func (e *ConfigError) Error() string {
	msg := e.Detail
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if len(e.Output) > 0 {
		return fmt.Sprintf("%s\n\nBuild output:\n%s", msg, strings.Join(e.Output, "\n"))
	}
	return msg
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// missingSignal reports an absent mandatory input by name.
func missingSignal(name string) error {
	return &ConfigError{
		Kind:   ErrMissingSignal,
		Detail: fmt.Sprintf("required signal %q is not set", name),
	}
}

// BuildError creates a standardized backend failure with output context.
//
// The builder name identifies which backend failed; output is the captured
// process output, included verbatim for debugging.
func BuildError(builder string, output []string, err error) error {
	return &ConfigError{
		Kind:   ErrBackendFailure,
		Detail: fmt.Sprintf("%s build failed", builder),
		Output: trimBlankTail(output),
		Err:    err,
	}
}

func trimBlankTail(lines []string) []string {
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
