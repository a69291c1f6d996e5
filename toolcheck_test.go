package snbuild

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeTool drops an executable stub into a temp dir and puts that dir on
// PATH for the remainder of the test.
func fakeTool(t *testing.T, name string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		name += ".bat"
	}
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("#!/bin/sh\n"), 0o755))
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func TestCheckToolAvailable(t *testing.T) {
	fakeTool(t, "snbuild-test-tool")
	require.NoError(t, CheckToolAvailable("snbuild-test-tool"))

	err := CheckToolAvailable("snbuild-surely-absent-tool")
	require.Error(t, err)
	require.Contains(t, err.Error(), "not found in PATH")
}

func TestCheckRequiredToolsAlternatives(t *testing.T) {
	fakeTool(t, "snbuild-alt-compiler")

	require.NoError(t, CheckRequiredTools([]ToolRequirement{
		{Name: "snbuild-missing-compiler", Alternatives: []string{"snbuild-alt-compiler"}, Purpose: "C++ compiler"},
	}))
}

func TestCheckRequiredToolsOptionalNeverFails(t *testing.T) {
	require.NoError(t, CheckRequiredTools([]ToolRequirement{
		{Name: "snbuild-absent-accelerator", Optional: true, Purpose: "build accelerator"},
	}))
}

func TestCheckRequiredToolsReportsAllMissing(t *testing.T) {
	err := CheckRequiredTools([]ToolRequirement{
		{Name: "snbuild-absent-one", Purpose: "first tool"},
		{Name: "snbuild-absent-two"},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "snbuild-absent-one (first tool)")
	require.Contains(t, err.Error(), "snbuild-absent-two")
}

func TestBackendsDeclareTools(t *testing.T) {
	desc := descriptorFor(t, linuxSignals(), &FeatureSet{Chunks: Chunks16MiB})

	var checker ToolChecker = NewCcBuilder(desc, Signals{})
	reqs := checker.RequiredTools()
	require.Len(t, reqs, 2)
	require.Equal(t, "g++", reqs[0].Name)

	checker = NewCmakeBuilder(desc, Signals{})
	reqs = checker.RequiredTools()
	require.Equal(t, "cmake", reqs[0].Name)
	require.True(t, reqs[1].Optional)
}