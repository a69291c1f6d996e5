package snbuild

import "context"

// Builder is the capability interface both build backends implement.
//
// It is the sole channel through which the platform rule table expresses
// decisions: the table calls these operations in a fixed order and must
// never branch on which backend is active. Identical inputs fed to either
// backend must yield functionally equivalent artifacts.
//
// # Builder Lifecycle
//
//  1. ConfigureCpp() - shared standard/include/source wiring
//  2. ConfigureOutputDir() - where the artifact lands
//  3. Define/DefineBool/CompilerDefine/FlagIfSupported - rule application
//  4. BuildLib() - compile and archive, returning the artifact directory
//
// # Boolean Encoding
//
// The two backends encode boolean options differently: the generator
// backend uses "ON"/"OFF" cache strings while the direct driver emits
// "1"/"0" or "true"/"false" preprocessor tokens. DefineBool hides that
// mismatch; callers state intent, backends choose the encoding.
//
// # Thread Safety
//
// Builders accumulate state and are not safe for concurrent use. One
// builder instance serves exactly one resolution.
type Builder interface {
	// Name returns the human-readable backend name, used in error
	// messages and logs. Examples: "Cc", "CMake".
	Name() string

	// Define records a build-system definition with an explicit value.
	Define(key, value string)

	// DefineBool records a boolean option in the backend's encoding.
	DefineBool(key string, enabled bool)

	// CompilerDefine records a preprocessor definition that must reach
	// the compiler command line regardless of backend. An empty value
	// produces a value-less define.
	CompilerDefine(key, value string)

	// FlagIfSupported offers a best-effort compiler flag. Flags the
	// probed toolchain rejects are silently dropped; this operation
	// never fails a build.
	FlagIfSupported(flag string)

	// ConfigureOutputDir sets the build output directory.
	ConfigureOutputDir(dir string)

	// ConfigureCpp applies the shared C++ wiring for the native shim:
	// language standard, include paths, shim sources, debug level, and
	// static C runtime selection.
	ConfigureCpp(desc *PlatformDescriptor)

	// BuildLib compiles and links the native shim, returning the
	// directory containing the built static archive. A process failure
	// is fatal to the resolution; no partial artifact is returned.
	BuildLib(ctx context.Context, targetLib string) (string, error)
}
