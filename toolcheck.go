package snbuild

import (
	"fmt"
	"os/exec"
	"strings"
)

// ToolChecker is an optional interface for backends that require external
// tools.
//
// Backends implement it to declare their tool dependencies so the resolver
// can fail fast, with a useful message, before any process is spawned.
//
// # Platform Support
//
// Tool alternatives handle platform differences:
//   - Windows/MSVC: cl and lib instead of a GNU driver and ar
//   - macOS and the BSDs: clang++ by default
//   - Linux: g++ or clang++
//
// # Consumer Usage
//
// Check tools before building:
//
//	if checker, ok := backend.(ToolChecker); ok {
//	    if err := checker.CheckTools(); err != nil {
//	        return fmt.Errorf("build tools missing: %w", err)
//	    }
//	}
type ToolChecker interface {
	// RequiredTools returns the list of tools this backend needs,
	// including optional tools and alternatives.
	RequiredTools() []ToolRequirement

	// CheckTools verifies that all required tools are available.
	// Returns nil if all required tools are found, or an error naming
	// which are missing. Optional tools never cause errors.
	CheckTools() error
}

// ToolRequirement describes a build tool dependency.
//
// A requirement is satisfied by its primary tool or any of its alternatives.
// Optional tools are checked but never fail the build.
type ToolRequirement struct {
	// Name is the primary tool binary name (e.g., "cmake", "clang++").
	Name string

	// Alternatives are alternative tool names that can satisfy this
	// requirement. Example: []string{"g++", "clang++", "c++"}
	Alternatives []string

	// Optional indicates this tool won't cause an error if missing.
	Optional bool

	// Purpose is a human-readable description of why the tool is needed.
	Purpose string
}

// CheckToolAvailable checks if a tool is available in the system PATH.
func CheckToolAvailable(tool string) error {
	_, err := exec.LookPath(tool)
	if err != nil {
		return fmt.Errorf("%s not found in PATH", tool)
	}
	return nil
}

// CheckRequiredTools verifies all required tools are available.
//
// The primary tool name is checked first, then each alternative in order.
// All missing required tools are reported in a single error.
func CheckRequiredTools(requirements []ToolRequirement) error {
	var missingTools []string

	for _, req := range requirements {
		found := CheckToolAvailable(req.Name) == nil

		if !found {
			for _, alt := range req.Alternatives {
				if CheckToolAvailable(alt) == nil {
					found = true
					break
				}
			}
		}

		if !found && !req.Optional {
			if req.Purpose != "" {
				missingTools = append(missingTools, fmt.Sprintf("%s (%s)", req.Name, req.Purpose))
			} else {
				missingTools = append(missingTools, req.Name)
			}
		}
	}

	if len(missingTools) == 0 {
		return nil
	}

	if len(missingTools) == 1 {
		return fmt.Errorf("%s not found in PATH", missingTools[0])
	}

	return fmt.Errorf("missing required tools: %s", strings.Join(missingTools, ", "))
}
