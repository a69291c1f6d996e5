package snbuild

import "strings"

// Canonical signal keys.
//
// Signals are environment-style key/value inputs. They are read exactly once
// at resolution start - never re-read mid-resolution - so a resolver run can
// be reproduced from an injected Signals map.
const (
	SigTargetOS     = "target_os"     // e.g. "linux", "windows", "freebsd"
	SigTargetEnv    = "target_env"    // e.g. "gnu", "msvc", "musl"
	SigTargetFamily = "target_family" // e.g. "unix", "windows"
	SigTarget       = "target"        // full target triple
	SigOutDir       = "out_dir"       // build output directory
	SigBackend      = "backend"       // "cc" or "cmake"; default "cmake"
	SigDebug        = "debug"         // "1"/"true" for a debug build
	SigJobs         = "jobs"          // parallel build jobs
	SigFeatures     = "features"      // comma-separated feature names

	SigMsystem    = "msystem"      // optional MSYS2 subsystem marker
	SigCCOverride = "cc"           // explicit compiler program override
	SigCxxStdlib  = "cxxstdlib"    // override for the fallback C++ runtime
	SigSourceDir  = "source_dir"   // native source tree, default "native"
	SigNdkRoot    = "android_ndk"  // NDK root, required for Android targets
	SigNdkLevel   = "android_platform"
	SigShimPaths  = "shim_search_path" // ';'-separated extra search paths
	SigGenerator  = "cmake_generator"  // generator for the cmake backend

	SigGwpAsanInclude = "gwp_asan_include_path"
	SigGwpAsanLibrary = "gwp_asan_library_path"
)

// featureSigPrefix prefixes per-toggle signals, e.g. "feature.lto" = "1".
// Individual toggle signals override membership in SigFeatures.
const featureSigPrefix = "feature."

// Signals is the immutable set of key/value inputs driving one resolution.
//
// Construct it with ReadSignals, LoadProfile, or a literal map in tests,
// then treat it as read-only.
type Signals map[string]string

// envSignals maps process environment variables to canonical signal keys,
// in precedence order: a later entry overwrites an earlier one for the same
// signal, so the SNBUILD_-prefixed spellings win over the passthrough
// toolchain variables.
var envSignals = []struct {
	env string
	key string
}{
	// Well-known toolchain variables pass through under their own names.
	{"MSYSTEM", SigMsystem},
	{"CC", SigCCOverride},
	{"CXXSTDLIB", SigCxxStdlib},
	{"CMAKE_GENERATOR", SigGenerator},
	{"ANDROID_NDK", SigNdkRoot},
	{"ANDROID_PLATFORM", SigNdkLevel},
	{"SNMALLOC_GWP_ASAN_INCLUDE_PATH", SigGwpAsanInclude},
	{"SNMALLOC_GWP_ASAN_LIBRARY_PATH", SigGwpAsanLibrary},

	{"SNBUILD_TARGET_OS", SigTargetOS},
	{"SNBUILD_TARGET_ENV", SigTargetEnv},
	{"SNBUILD_TARGET_FAMILY", SigTargetFamily},
	{"SNBUILD_TARGET", SigTarget},
	{"SNBUILD_OUT_DIR", SigOutDir},
	{"SNBUILD_BACKEND", SigBackend},
	{"SNBUILD_DEBUG", SigDebug},
	{"SNBUILD_JOBS", SigJobs},
	{"SNBUILD_FEATURES", SigFeatures},
	{"SNBUILD_SOURCE_DIR", SigSourceDir},
	{"SNBUILD_CXXSTDLIB", SigCxxStdlib},
	{"SNBUILD_CMAKE_GENERATOR", SigGenerator},
	{"SNBUILD_SHIM_SEARCH_PATH", SigShimPaths},
}

// ReadSignals collects build signals from an environment lookup function,
// typically os.LookupEnv.
//
// Per-feature toggles are read as SNBUILD_FEATURE_<NAME>=0|1, where <NAME>
// is the feature name uppercased with '-' mapped to '_'.
func ReadSignals(lookup func(string) (string, bool)) Signals {
	sig := Signals{}
	for _, entry := range envSignals {
		if v, ok := lookup(entry.env); ok && v != "" {
			sig[entry.key] = v
		}
	}
	for _, name := range FeatureNames() {
		env := "SNBUILD_FEATURE_" + strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(name))
		if v, ok := lookup(env); ok && v != "" {
			sig[featureSigPrefix+name] = v
		}
	}
	return sig
}

// Get returns the value for key, or "" if unset.
func (s Signals) Get(key string) string {
	return s[key]
}

// Lookup returns the value for key and whether it was set.
func (s Signals) Lookup(key string) (string, bool) {
	v, ok := s[key]
	return v, ok
}

// Merged returns a new Signals with overlay values taking precedence.
// Neither input is modified.
func (s Signals) Merged(overlay Signals) Signals {
	out := make(Signals, len(s)+len(overlay))
	for k, v := range s {
		out[k] = v
	}
	for k, v := range overlay {
		out[k] = v
	}
	return out
}

// isTruthy interprets boolean-ish signal values.
func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	default:
		return false
	}
}
