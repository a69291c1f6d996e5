package snbuild

import (
	"runtime"
	"strings"
)

// Compiler identifies the effective toolchain flavor for a build. It is
// derived from platform signals, never supplied directly, although an
// explicit compiler override signal can force it.
type Compiler int

const (
	CompilerUnknown Compiler = iota
	CompilerClang
	CompilerGcc
	CompilerMsvc
)

func (c Compiler) String() string {
	switch c {
	case CompilerClang:
		return "Clang"
	case CompilerGcc:
		return "Gcc"
	case CompilerMsvc:
		return "Msvc"
	default:
		return "Unknown"
	}
}

// Shim artifact names. The checked variant carries the allocator's internal
// consistency checks.
const (
	targetLibDefault = "snmallocshim"
	targetLibChecks  = "snmallocshim-checks"
)

// PlatformDescriptor collects the raw platform signals for one build into an
// immutable typed form. Build it once with NewPlatformDescriptor and never
// mutate it afterwards.
type PlatformDescriptor struct {
	TargetOS     string // "linux", "windows", "freebsd", ...
	TargetEnv    string // "gnu", "msvc", "musl", ...
	TargetFamily string // "unix" or "windows"
	Triple       string // full target triple

	// Msystem is the optional MSYS2 subsystem marker ("CLANG64",
	// "UCRT64", ...), empty outside such environments.
	Msystem string

	OutDir    string
	SourceDir string // root of the vendored native source tree

	Debug       bool
	BuildType   string // "Debug" or "Release"
	OptimLevel  string // "-O0" or "-O3"
	CxxStandard string // "17" or "20"
	TargetLib   string // artifact name, checked variant aware
	CxxStdlib   string // optional override for the fallback C++ runtime

	// Android cross-compilation signals. NdkRoot is mandatory when the
	// triple targets Android.
	NdkRoot          string
	NdkPlatformLevel string

	// External security-tooling paths for the GWP-ASan integration.
	GwpAsanInclude string
	GwpAsanLibrary string

	Compiler Compiler
}

// NewPlatformDescriptor builds the descriptor from signals and the resolved
// feature set. The four target signals and the output directory are
// mandatory; a missing one is a fatal configuration error.
func NewPlatformDescriptor(sig Signals, features *FeatureSet) (*PlatformDescriptor, error) {
	for _, key := range []string{SigTargetOS, SigTargetEnv, SigTargetFamily, SigTarget, SigOutDir} {
		if _, ok := sig.Lookup(key); !ok {
			return nil, missingSignal(key)
		}
	}

	debug := isTruthy(sig.Get(SigDebug))

	desc := &PlatformDescriptor{
		TargetOS:     sig.Get(SigTargetOS),
		TargetEnv:    sig.Get(SigTargetEnv),
		TargetFamily: sig.Get(SigTargetFamily),
		Triple:       sig.Get(SigTarget),
		Msystem:      sig.Get(SigMsystem),
		OutDir:       sig.Get(SigOutDir),
		SourceDir:    sourceDirOrDefault(sig),
		Debug:        debug,
		CxxStdlib:    sig.Get(SigCxxStdlib),

		NdkRoot:          sig.Get(SigNdkRoot),
		NdkPlatformLevel: sig.Get(SigNdkLevel),
		GwpAsanInclude:   sig.Get(SigGwpAsanInclude),
		GwpAsanLibrary:   sig.Get(SigGwpAsanLibrary),
	}

	if debug {
		desc.BuildType = "Debug"
		desc.OptimLevel = "-O0"
	} else {
		desc.BuildType = "Release"
		desc.OptimLevel = "-O3"
	}

	if features.UseCxx17 {
		desc.CxxStandard = "17"
	} else {
		desc.CxxStandard = "20"
	}

	if features.Check {
		desc.TargetLib = targetLibChecks
	} else {
		desc.TargetLib = targetLibDefault
	}

	desc.Compiler = DetectCompiler(desc.Msystem, desc.TargetEnv, sig.Get(SigCCOverride), desc.Triple, runtime.GOOS)
	return desc, nil
}

func sourceDirOrDefault(sig Signals) string {
	if dir := sig.Get(SigSourceDir); dir != "" {
		return dir
	}
	return "native"
}

// DetectCompiler resolves the effective compiler identity.
//
// Resolution order, first match wins:
//  1. MSYS2 subsystem marker: Clang-flavored subsystems select Clang,
//     GNU/UCRT-flavored ones select Gcc; unrecognized markers fall through.
//  2. Target environment: "msvc" or "gnu".
//  3. Compiler override: substring match on known program names.
//  4. Platform default: "msvc" in the triple, otherwise the host family.
//
// No step fails; an absent signal advances to the next step.
func DetectCompiler(msystem, targetEnv, ccOverride, triple, hostOS string) Compiler {
	switch msystem {
	case "CLANG64", "CLANGARM64":
		return CompilerClang
	case "MINGW64", "UCRT64":
		return CompilerGcc
	}

	switch targetEnv {
	case "msvc":
		return CompilerMsvc
	case "gnu":
		return CompilerGcc
	}

	if cc := strings.ToLower(ccOverride); cc != "" {
		if strings.Contains(cc, "clang") {
			return CompilerClang
		}
		if strings.Contains(cc, "gcc") {
			return CompilerGcc
		}
	}

	switch {
	case strings.Contains(triple, "msvc"):
		return CompilerMsvc
	case hostOS == "windows":
		// Assume GCC for non-MSVC Windows environments.
		return CompilerGcc
	case isUnixHost(hostOS):
		return CompilerClang
	default:
		return CompilerUnknown
	}
}

func isUnixHost(hostOS string) bool {
	switch hostOS {
	case "linux", "darwin", "freebsd", "netbsd", "openbsd", "dragonfly",
		"solaris", "illumos", "aix", "android", "ios":
		return true
	default:
		return false
	}
}

// Platform predicates used by the rule table and link emitter.

func (d *PlatformDescriptor) IsMsvc() bool    { return d.TargetEnv == "msvc" }
func (d *PlatformDescriptor) IsGnu() bool     { return d.TargetEnv == "gnu" }
func (d *PlatformDescriptor) IsWindows() bool { return d.TargetOS == "windows" }
func (d *PlatformDescriptor) IsLinux() bool   { return d.TargetOS == "linux" }
func (d *PlatformDescriptor) IsUnix() bool    { return d.TargetFamily == "unix" }

// IsAndroid reports an Android cross-compilation target.
func (d *PlatformDescriptor) IsAndroid() bool { return strings.Contains(d.Triple, "android") }

// IsClangMsys reports a Clang-flavored MSYS2 subsystem.
func (d *PlatformDescriptor) IsClangMsys() bool { return strings.Contains(d.Msystem, "CLANG") }

// IsUcrt64 reports the UCRT64 MSYS2 subsystem.
func (d *PlatformDescriptor) IsUcrt64() bool { return d.Msystem == "UCRT64" }

// CppStdFlags returns the standard-selection flag in both the GNU-style and
// MSVC-style spellings. Each is offered through FlagIfSupported so the probed
// toolchain keeps whichever it understands.
func (d *PlatformDescriptor) CppStdFlags() [2]string {
	return [2]string{"-std=c++" + d.CxxStandard, "/std:c++" + d.CxxStandard}
}

// BuildInfoEntry is one embedded build-info key/value pair.
type BuildInfoEntry struct {
	Key   string
	Value string
}

// BuildInfo returns the resolved configuration as ordered key/value strings
// for compile-time embedding in the calling program.
func (d *PlatformDescriptor) BuildInfo() []BuildInfoEntry {
	info := []BuildInfoEntry{
		{"BUILD_TARGET_OS", d.TargetOS},
		{"BUILD_TARGET_ENV", d.TargetEnv},
		{"BUILD_TARGET_FAMILY", d.TargetFamily},
		{"BUILD_TARGET", d.Triple},
		{"BUILD_CC", d.Compiler.String()},
		{"BUILD_TYPE", d.BuildType},
		{"BUILD_DEBUG", boolValue(d.Debug)},
		{"BUILD_OPTIM_LEVEL", d.OptimLevel},
		{"BUILD_CXX_STANDARD", d.CxxStandard},
	}
	if d.Msystem != "" {
		info = append(info, BuildInfoEntry{"BUILD_MSYSTEM", d.Msystem})
	}
	return info
}

func boolValue(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
