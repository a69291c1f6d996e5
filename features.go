package snbuild

import (
	"fmt"
	"sort"
	"strings"
)

// ChunkConfig selects the memory-page grouping granularity of the native
// allocator. Exactly one chunk configuration must be chosen per build.
type ChunkConfig string

const (
	ChunksNone  ChunkConfig = ""
	Chunks1MiB  ChunkConfig = "1mib"
	Chunks16MiB ChunkConfig = "16mib"
)

// FeatureSet is the resolved feature matrix for one build.
//
// Each toggle is independent. Chunks is a mutually exclusive group: zero or
// multiple selections make the set invalid, mirroring the native component's
// hard requirement of exactly one size configuration.
type FeatureSet struct {
	NativeCPU       bool // tune generated code for the build machine
	Qemu            bool // pagemap workaround for QEMU user-mode emulation
	WaitOnAddress   bool // futex-style waiting instead of spinning
	LTO             bool // link-time optimization
	NoTLS           bool // dynamic-loading mode without thread-local state
	Win8Compat      bool // target Windows 8.1 APIs instead of Windows 10
	Stats           bool // allocation statistics
	AndroidLLD      bool // use lld when targeting Android
	LocalDynamicTLS bool // local-dynamic TLS model instead of initial-exec
	LibcAPI         bool // export the libc malloc surface from the shim
	Tracing         bool // verbose allocation tracing
	Fuzzing         bool // fuzzing instrumentation hooks
	VendoredSTL     bool // use the allocator's self-vendored STL subset
	CheckLoads      bool // bounds-check loads through the pagemap
	PageID          bool // tag pages with ownership identifiers
	GwpAsan         bool // GWP-ASan sampling integration

	// Check selects the checked shim artifact variant.
	Check bool

	// UseCxx17 compiles against C++17 instead of the default C++20.
	UseCxx17 bool

	// CacheFriendly is deprecated and has no effect. It is retained so old
	// configurations keep parsing.
	CacheFriendly bool

	// Chunks is the chunk-size configuration. Exactly one must be selected.
	Chunks ChunkConfig
}

// featureToggles maps feature names to FeatureSet fields. Names follow the
// upstream manifest spelling, inconsistencies included.
var featureToggles = map[string]func(*FeatureSet, bool){
	"native-cpu":         func(f *FeatureSet, on bool) { f.NativeCPU = on },
	"qemu":               func(f *FeatureSet, on bool) { f.Qemu = on },
	"usewait-on-address": func(f *FeatureSet, on bool) { f.WaitOnAddress = on },
	"lto":                func(f *FeatureSet, on bool) { f.LTO = on },
	"notls":              func(f *FeatureSet, on bool) { f.NoTLS = on },
	"win8compat":         func(f *FeatureSet, on bool) { f.Win8Compat = on },
	"stats":              func(f *FeatureSet, on bool) { f.Stats = on },
	"android-lld":        func(f *FeatureSet, on bool) { f.AndroidLLD = on },
	"local_dynamic_tls":  func(f *FeatureSet, on bool) { f.LocalDynamicTLS = on },
	"libc-api":           func(f *FeatureSet, on bool) { f.LibcAPI = on },
	"tracing":            func(f *FeatureSet, on bool) { f.Tracing = on },
	"fuzzing":            func(f *FeatureSet, on bool) { f.Fuzzing = on },
	"vendored-stl":       func(f *FeatureSet, on bool) { f.VendoredSTL = on },
	"check-loads":        func(f *FeatureSet, on bool) { f.CheckLoads = on },
	"pageid":             func(f *FeatureSet, on bool) { f.PageID = on },
	"gwp-asan":           func(f *FeatureSet, on bool) { f.GwpAsan = on },
	"check":              func(f *FeatureSet, on bool) { f.Check = on },
	"usecxx17":           func(f *FeatureSet, on bool) { f.UseCxx17 = on },
	"cache-friendly":     func(f *FeatureSet, on bool) { f.CacheFriendly = on },
}

var chunkConfigs = map[string]ChunkConfig{
	"1mib":  Chunks1MiB,
	"16mib": Chunks16MiB,
}

// FeatureNames returns every recognized feature name, sorted, including the
// chunk-size variants.
func FeatureNames() []string {
	names := make([]string, 0, len(featureToggles)+len(chunkConfigs))
	for name := range featureToggles {
		names = append(names, name)
	}
	for name := range chunkConfigs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseFeatures builds a FeatureSet from signals.
//
// Membership in the comma-separated SigFeatures list enables a feature;
// an individual "feature.<name>" signal overrides the list either way.
// Unknown feature names are rejected.
func ParseFeatures(sig Signals) (*FeatureSet, error) {
	features := &FeatureSet{}
	chunks := map[ChunkConfig]bool{}

	apply := func(name string, on bool) error {
		if set, ok := featureToggles[name]; ok {
			set(features, on)
			return nil
		}
		if cc, ok := chunkConfigs[name]; ok {
			chunks[cc] = on
			return nil
		}
		return fmt.Errorf("unknown feature %q", name)
	}

	if list := sig.Get(SigFeatures); list != "" {
		for _, name := range strings.Split(list, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			if err := apply(name, true); err != nil {
				return nil, err
			}
		}
	}

	for _, name := range FeatureNames() {
		if v, ok := sig.Lookup(featureSigPrefix + name); ok {
			if err := apply(name, isTruthy(v)); err != nil {
				return nil, err
			}
		}
	}

	var selected []string
	for name, cc := range chunkConfigs {
		if chunks[cc] {
			selected = append(selected, name)
			features.Chunks = cc
		}
	}
	if len(selected) > 1 {
		sort.Strings(selected)
		features.Chunks = ChunksNone
		return features, chunkSelectionError(selected)
	}

	return features, nil
}

// Validate enforces the chunk-size mutual-exclusion group. It must pass
// before any backend process is started.
func (f *FeatureSet) Validate() error {
	if f.Chunks == ChunksNone {
		return chunkSelectionError(nil)
	}
	if _, ok := chunkConfigs[string(f.Chunks)]; !ok {
		return chunkSelectionError([]string{string(f.Chunks)})
	}
	return nil
}

func chunkSelectionError(selected []string) error {
	detail := "no chunk-size feature selected; choose exactly one of 1mib, 16mib"
	if len(selected) > 0 {
		detail = fmt.Sprintf("chunk-size features are mutually exclusive, got %s", strings.Join(selected, ", "))
	}
	return &ConfigError{Kind: ErrMutualExclusion, Detail: detail}
}
