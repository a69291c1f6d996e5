package snbuild

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigErrorMessage(t *testing.T) {
	err := &ConfigError{Kind: ErrMutualExclusion, Detail: "conflicting selections"}
	require.Equal(t, "conflicting selections", err.Error())

	wrapped := errors.New("exit status 2")
	err = &ConfigError{Kind: ErrBackendFailure, Detail: "CMake build failed", Err: wrapped}
	require.Equal(t, "CMake build failed: exit status 2", err.Error())
	require.Equal(t, wrapped, errors.Unwrap(err))
}

func TestBuildErrorIncludesOutput(t *testing.T) {
	err := BuildError("Cc", []string{"shim.cc:1: error: expected ';'", "", "  "}, errors.New("exit status 1"))

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	require.Equal(t, ErrBackendFailure, cfgErr.Kind)

	// Trailing blank lines are trimmed from the captured output.
	require.Equal(t, []string{"shim.cc:1: error: expected ';'"}, cfgErr.Output)
	require.Contains(t, cfgErr.Error(), "Build output:")
	require.Contains(t, cfgErr.Error(), "expected ';'")
}

func TestErrorKindString(t *testing.T) {
	require.Equal(t, "missing required signal", ErrMissingSignal.String())
	require.Equal(t, "invalid mutual exclusion", ErrMutualExclusion.String())
	require.Equal(t, "backend process failure", ErrBackendFailure.String())
}
