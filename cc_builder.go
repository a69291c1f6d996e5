package snbuild

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/sh"
)

// ccOptionMacros translates generator-facing option keys into the
// preprocessor macros the shim sources check when no meta-build system sits
// in between. Values for these keys are encoded as "1"/"0".
var ccOptionMacros = map[string]string{
	"SNMALLOC_ENABLE_WAIT_ON_ADDRESS": "SNMALLOC_USE_WAIT_ON_ADDRESS",
}

// FlagProbe reports whether the given compiler driver accepts a flag.
// Probes run external processes; tests inject a stub instead.
type FlagProbe func(compiler, flag string, probeDir string) bool

// CcBuilder is the direct compiler driver backend. It compiles each shim
// source with the resolved toolchain and packs the objects into a static
// archive, probing every best-effort flag against the real compiler first.
type CcBuilder struct {
	desc     *PlatformDescriptor
	compiler string

	includes []string
	sources  []string
	defines  []define
	flags    []string // candidate flags, probed at build time
	outDir   string

	// Probe overrides the real flag-support probe. Nil means probe by
	// compiling a scratch file with the candidate flag.
	Probe FlagProbe
}

// NewCcBuilder creates the direct driver backend. An explicit compiler
// override signal selects the driver program; otherwise the descriptor's
// detected compiler picks a default.
func NewCcBuilder(desc *PlatformDescriptor, sig Signals) *CcBuilder {
	return &CcBuilder{
		desc:     desc,
		compiler: compilerProgram(desc, sig),
	}
}

func compilerProgram(desc *PlatformDescriptor, sig Signals) string {
	if cc := sig.Get(SigCCOverride); cc != "" {
		return cc
	}
	switch desc.Compiler {
	case CompilerMsvc:
		return "cl"
	case CompilerGcc:
		return "g++"
	case CompilerClang:
		return "clang++"
	default:
		return "c++"
	}
}

// Name returns the backend name.
func (b *CcBuilder) Name() string {
	return "Cc"
}

// Define records a definition; for the direct driver every definition
// reaches the compiler command line.
func (b *CcBuilder) Define(key, value string) {
	b.defines = setDefine(b.defines, key, value)
}

// DefineBool records a boolean option as a preprocessor token. Generator
// option keys are translated to their macro spelling.
func (b *CcBuilder) DefineBool(key string, enabled bool) {
	if macro, ok := ccOptionMacros[key]; ok {
		value := "0"
		if enabled {
			value = "1"
		}
		b.Define(macro, value)
		return
	}
	b.Define(key, boolValue(enabled))
}

// CompilerDefine is identical to Define for this backend.
func (b *CcBuilder) CompilerDefine(key, value string) {
	b.Define(key, value)
}

// FlagIfSupported offers a flag for probing. Unsupported flags are dropped
// at build time without failing the resolution.
func (b *CcBuilder) FlagIfSupported(flag string) {
	b.flags = append(b.flags, flag)
}

// ConfigureOutputDir sets where objects and the archive are written.
func (b *CcBuilder) ConfigureOutputDir(dir string) {
	b.outDir = dir
}

// ConfigureCpp wires the shim include path and sources along with debug
// information and, under MSVC, the static C runtime.
func (b *CcBuilder) ConfigureCpp(desc *PlatformDescriptor) {
	b.desc = desc
	b.includes = append(b.includes, filepath.Join(desc.SourceDir, "src"))
	b.sources = append(b.sources, filepath.Join(desc.SourceDir, "src", "snmalloc", "override", "shim.cc"))

	if desc.Debug {
		b.FlagIfSupported("-g")
		b.FlagIfSupported("/Z7")
	}
	if desc.IsMsvc() {
		if desc.Debug {
			b.FlagIfSupported("/MTd")
		} else {
			b.FlagIfSupported("/MT")
		}
	}
}

// BuildLib probes the accumulated flags, compiles each source, and packs a
// static archive named after targetLib. It returns the output directory.
func (b *CcBuilder) BuildLib(ctx context.Context, targetLib string) (string, error) {
	if b.outDir == "" {
		return "", BuildError(b.Name(), nil, fmt.Errorf("output directory not configured"))
	}
	if err := os.MkdirAll(b.outDir, 0o755); err != nil {
		return "", BuildError(b.Name(), nil, err)
	}

	kept := b.probeFlags()

	var output []string
	var objects []string
	for _, src := range b.sources {
		obj := filepath.Join(b.outDir, objectName(src, b.desc.IsMsvc()))
		lines, err := runCommand(ctx, "", nil, b.compiler, b.compileArgs(kept, src, obj)...)
		output = append(output, lines...)
		if err != nil {
			return "", BuildError(b.Name(), output, err)
		}
		objects = append(objects, obj)
	}

	archiver, archiveArgs := b.archiveCommand(targetLib, objects)
	lines, err := runCommand(ctx, "", nil, archiver, archiveArgs...)
	output = append(output, lines...)
	if err != nil {
		return "", BuildError(b.Name(), output, err)
	}

	return b.outDir, nil
}

// probeFlags filters the candidate flags down to those the toolchain
// accepts. Probe failures drop the flag and never abort the build.
func (b *CcBuilder) probeFlags() []string {
	probe := b.Probe
	if probe == nil {
		probe = realFlagProbe
	}

	var kept []string
	for _, flag := range b.flags {
		if probe(b.compiler, flag, b.outDir) {
			kept = append(kept, flag)
		}
	}
	return kept
}

// realFlagProbe compiles a scratch translation unit with the candidate flag
// and reports whether the compiler accepted it.
func realFlagProbe(compiler, flag, probeDir string) bool {
	src := filepath.Join(probeDir, "flag-probe.cc")
	if err := os.WriteFile(src, []byte("int main() { return 0; }\n"), 0o644); err != nil {
		return false
	}
	obj := filepath.Join(probeDir, "flag-probe"+objectExt(isMsvcDriver(compiler)))

	var args []string
	if isMsvcDriver(compiler) {
		args = []string{"/nologo", flag, "/c", src, "/Fo" + obj}
	} else {
		args = []string{"-Werror", flag, "-c", src, "-o", obj}
	}

	_, err := sh.Exec(nil, io.Discard, io.Discard, compiler, args...)
	return err == nil
}

func isMsvcDriver(compiler string) bool {
	base := strings.TrimSuffix(strings.ToLower(filepath.Base(compiler)), ".exe")
	return base == "cl" || base == "clang-cl"
}

func (b *CcBuilder) compileArgs(flags []string, src, obj string) []string {
	var args []string
	if b.desc.IsMsvc() {
		args = append(args, flags...)
		for _, d := range b.defines {
			args = append(args, "/D"+renderDefine(d))
		}
		for _, inc := range b.includes {
			args = append(args, "/I"+inc)
		}
		args = append(args, "/c", src, "/Fo"+obj)
		return args
	}

	args = append(args, flags...)
	for _, d := range b.defines {
		args = append(args, "-D"+renderDefine(d))
	}
	for _, inc := range b.includes {
		args = append(args, "-I"+inc)
	}
	args = append(args, "-c", src, "-o", obj)
	return args
}

func (b *CcBuilder) archiveCommand(targetLib string, objects []string) (string, []string) {
	if b.desc.IsMsvc() {
		out := filepath.Join(b.outDir, targetLib+".lib")
		return "lib", append([]string{"/nologo", "/OUT:" + out}, objects...)
	}
	out := filepath.Join(b.outDir, "lib"+targetLib+".a")
	return "ar", append([]string{"crs", out}, objects...)
}

func renderDefine(d define) string {
	if d.value == "" {
		return d.key
	}
	return d.key + "=" + d.value
}

func objectName(src string, msvc bool) string {
	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	return base + objectExt(msvc)
}

func objectExt(msvc bool) string {
	if msvc {
		return ".obj"
	}
	return ".o"
}

// RequiredTools declares the external tools this backend drives.
func (b *CcBuilder) RequiredTools() []ToolRequirement {
	return []ToolRequirement{
		{Name: b.compiler, Alternatives: []string{"clang++", "g++", "c++"}, Purpose: "C++ compiler"},
		{Name: "ar", Alternatives: []string{"lib", "llvm-ar"}, Purpose: "static archiver"},
	}
}

// CheckTools verifies the compiler and archiver are available.
func (b *CcBuilder) CheckTools() error {
	return CheckRequiredTools(b.RequiredTools())
}
