package snbuild

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Build tool constants
const (
	unixMakefiles = "Unix Makefiles"
)

// CmakeBuilder is the generator-based backend. It accumulates cache
// definitions and compiler flag strings, then delegates configure and build
// to CMake against the vendored native source tree.
type CmakeBuilder struct {
	desc      *PlatformDescriptor
	sourceDir string
	outDir    string
	buildType string
	generator string
	parallel  int

	defines  []define
	cxxFlags []string
	cFlags   []string
}

// NewCmakeBuilder creates the generator backend. The generator is taken
// from the cmake_generator signal when set, otherwise a platform default is
// used at configure time.
func NewCmakeBuilder(desc *PlatformDescriptor, sig Signals) *CmakeBuilder {
	parallel, _ := strconv.Atoi(sig.Get(SigJobs))
	return &CmakeBuilder{
		desc:      desc,
		generator: sig.Get(SigGenerator),
		parallel:  parallel,
	}
}

// Name returns the backend name.
func (b *CmakeBuilder) Name() string {
	return "CMake"
}

// Define records a cache definition passed as -D at configure time.
func (b *CmakeBuilder) Define(key, value string) {
	b.defines = setDefine(b.defines, key, value)
}

// DefineBool records a boolean option in CMake's ON/OFF encoding.
func (b *CmakeBuilder) DefineBool(key string, enabled bool) {
	if enabled {
		b.Define(key, "ON")
	} else {
		b.Define(key, "OFF")
	}
}

// CompilerDefine records a preprocessor definition. The generator does not
// forward cache entries to the compiler, so the define is spliced into both
// the C++ and C flag strings.
func (b *CmakeBuilder) CompilerDefine(key, value string) {
	flag := "-D" + renderDefine(define{key: key, value: value})
	b.cxxFlags = append(b.cxxFlags, flag)
	b.cFlags = append(b.cFlags, flag)
}

// FlagIfSupported is a no-op for this backend: the generated build probes
// compiler flags itself, so unsupported flags are already dropped there.
func (b *CmakeBuilder) FlagIfSupported(flag string) {}

// ConfigureOutputDir sets the directory the build tree is created under.
func (b *CmakeBuilder) ConfigureOutputDir(dir string) {
	b.outDir = dir
}

// ConfigureCpp applies the shared wiring: source tree, build profile,
// language standard, shim support, and the static C runtime under MSVC.
func (b *CmakeBuilder) ConfigureCpp(desc *PlatformDescriptor) {
	b.desc = desc
	b.sourceDir = desc.SourceDir
	b.buildType = desc.BuildType

	b.Define("SNMALLOC_SHIM_SUPPORT", "ON")
	b.Define("CMAKE_CXX_STANDARD", desc.CxxStandard)
	b.Define("CMAKE_SH", "CMAKE_SH-NOTFOUND")
	if desc.IsMsvc() {
		b.Define("CMAKE_MSVC_RUNTIME_LIBRARY", "MultiThreaded$<$<CONFIG:Debug>:Debug>")
	}
}

// BuildLib configures and builds the target through CMake, then locates the
// built static archive. It returns the directory containing the archive.
func (b *CmakeBuilder) BuildLib(ctx context.Context, targetLib string) (string, error) {
	if b.outDir == "" {
		return "", BuildError(b.Name(), nil, fmt.Errorf("output directory not configured"))
	}
	buildDir := filepath.Join(b.outDir, "build")
	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		return "", BuildError(b.Name(), nil, err)
	}

	output, err := runCommand(ctx, "", nil, "cmake", b.configureArgs(buildDir)...)
	if err != nil {
		return "", BuildError(b.Name(), output, err)
	}

	buildArgs := []string{"--build", buildDir, "--target", targetLib, "--config", b.buildType}
	if b.parallel > 0 {
		buildArgs = append(buildArgs, "--parallel", strconv.Itoa(b.parallel))
	}
	lines, err := runCommand(ctx, "", nil, "cmake", buildArgs...)
	output = append(output, lines...)
	if err != nil {
		return "", BuildError(b.Name(), output, err)
	}

	artifactDir, err := b.findArtifactDir(buildDir, targetLib)
	if err != nil {
		return "", BuildError(b.Name(), output, err)
	}
	return artifactDir, nil
}

func (b *CmakeBuilder) configureArgs(buildDir string) []string {
	args := []string{"-S", b.sourceDir, "-B", buildDir}

	if generator := b.effectiveGenerator(); generator != "" {
		args = append(args, "-G", generator)
	}

	defines := append([]define(nil), b.defines...)
	defines = setDefine(defines, "CMAKE_BUILD_TYPE", b.buildType)
	defines = mergeFlagDefine(defines, "CMAKE_CXX_FLAGS", b.cxxFlags)
	defines = mergeFlagDefine(defines, "CMAKE_C_FLAGS", b.cFlags)

	for _, d := range defines {
		args = append(args, "-D"+renderDefine(d))
	}
	return args
}

// mergeFlagDefine folds accumulated compiler flags into a flag-string cache
// entry, preserving any value the rule table already set for it.
func mergeFlagDefine(defines []define, key string, flags []string) []define {
	if len(flags) == 0 {
		return defines
	}
	joined := strings.Join(flags, " ")
	for i := range defines {
		if defines[i].key == key {
			if defines[i].value != "" {
				defines[i].value += " " + joined
			} else {
				defines[i].value = joined
			}
			return defines
		}
	}
	return append(defines, define{key: key, value: joined})
}

func (b *CmakeBuilder) effectiveGenerator() string {
	if b.generator != "" {
		return b.generator
	}
	if b.desc.IsWindows() && !b.desc.IsMsvc() {
		// MSYS2 and MinGW toolchains cannot drive the Visual Studio
		// generator.
		return unixMakefiles
	}
	return ""
}

// findArtifactDir locates the built static archive. Generators place
// outputs in different subdirectories depending on configuration.
func (b *CmakeBuilder) findArtifactDir(buildDir, targetLib string) (string, error) {
	searchDirs := []string{
		".",
		b.buildType, // multi-config generators
		"Release",
		"Debug",
		"lib",
	}
	names := []string{
		"lib" + targetLib + ".a",
		targetLib + ".lib",
	}

	for _, dir := range searchDirs {
		full := filepath.Join(buildDir, dir)
		for _, name := range names {
			if info, err := os.Stat(filepath.Join(full, name)); err == nil && info.Mode().IsRegular() {
				return full, nil
			}
		}
	}

	return "", fmt.Errorf("built archive for %q not found under %s", targetLib, buildDir)
}

// RequiredTools declares the external tools this backend drives.
func (b *CmakeBuilder) RequiredTools() []ToolRequirement {
	return []ToolRequirement{
		{Name: "cmake", Purpose: "CMake build system"},
		{Name: "ninja", Optional: true, Purpose: "Ninja build tool (faster than make)"},
	}
}

// CheckTools verifies CMake is available.
func (b *CmakeBuilder) CheckTools() error {
	return CheckRequiredTools(b.RequiredTools())
}
