// Package snbuild resolves the cross-platform build configuration for the
// embedded snmalloc allocation shim and drives one of two interchangeable
// backends to compile and link it.
//
// Given a set of platform signals (target OS, environment, family, triple)
// and a feature matrix, the package decides which compiler definitions,
// flags, and system libraries apply, compiles the native shim, and emits the
// ordered linker directives the surrounding build needs to consume it.
//
// # Supported Backends
//
// The package includes two backend drivers:
//   - CcBuilder - invokes the C++ toolchain directly, one source at a time
//   - CmakeBuilder - delegates to CMake as a meta-build generator
//
// Both implement the Builder interface and must produce functionally
// equivalent artifacts for identical inputs. All platform logic lives in the
// rule table and link emitter, which only ever speak to the Builder
// interface and never branch on which backend is active.
//
// # Basic Usage
//
// Read signals once, then resolve:
//
//	sig := snbuild.ReadSignals(os.LookupEnv)
//
//	res, err := snbuild.Resolve(ctx, sig)
//	if err != nil {
//	    // a ConfigError carries the failure kind and any build output
//	}
//
//	for _, d := range res.Link.Directives {
//	    fmt.Println(d)
//	}
//
// Signals may also come from a TOML build profile (see LoadProfile);
// environment values override profile values. Signals are read exactly once
// into the immutable PlatformDescriptor and FeatureSet, so the resolver can
// be driven entirely by injected fixtures in tests.
//
// # Architecture
//
// The resolution pipeline:
//
//	Signals
//	├── FeatureSet (16 toggles + chunk-size group, validated)
//	├── PlatformDescriptor (compiler identification, build info)
//	└── BackendFactory
//	    ├── CcBuilder (direct driver)
//	    └── CmakeBuilder (generator driver)
//	ApplyPlatformRules → Builder calls
//	BuildLib → static archive
//	EmitLinkPlan → ordered LinkDirectives
//
// # Error Handling
//
// Missing required signals and invalid feature combinations abort resolution
// before any backend process runs. A flag the probed toolchain does not
// support is silently dropped. A backend process failure is fatal; a
// partially built artifact is never surfaced.
//
// # Requirements
//
// Requires Go 1.25 or later, plus a working C++ toolchain (and CMake for the
// generator backend) on the build host.
package snbuild
