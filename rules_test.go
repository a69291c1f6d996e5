package snbuild

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// recordingBuilder captures capability calls for rule-table assertions
// without touching any toolchain.
type recordingBuilder struct {
	defines         map[string]string
	defineOrder     []string
	compilerDefines map[string]string
	bools           map[string]bool
	flags           []string
	outDir          string
	cppConfigured   bool
	builtTargets    []string
	artifactDir     string
	buildErr        error
}

func newRecordingBuilder() *recordingBuilder {
	return &recordingBuilder{
		defines:         map[string]string{},
		compilerDefines: map[string]string{},
		bools:           map[string]bool{},
		artifactDir:     "out",
	}
}

func (r *recordingBuilder) Name() string { return "Recording" }

func (r *recordingBuilder) Define(key, value string) {
	if _, seen := r.defines[key]; !seen {
		r.defineOrder = append(r.defineOrder, key)
	}
	r.defines[key] = value
}

func (r *recordingBuilder) DefineBool(key string, enabled bool) {
	r.bools[key] = enabled
}

func (r *recordingBuilder) CompilerDefine(key, value string) {
	r.compilerDefines[key] = value
}

func (r *recordingBuilder) FlagIfSupported(flag string) {
	r.flags = append(r.flags, flag)
}

func (r *recordingBuilder) ConfigureOutputDir(dir string) { r.outDir = dir }

func (r *recordingBuilder) ConfigureCpp(desc *PlatformDescriptor) { r.cppConfigured = true }

func (r *recordingBuilder) BuildLib(ctx context.Context, targetLib string) (string, error) {
	r.builtTargets = append(r.builtTargets, targetLib)
	if r.buildErr != nil {
		return "", r.buildErr
	}
	return r.artifactDir, nil
}

func descriptorFor(t *testing.T, sig Signals, features *FeatureSet) *PlatformDescriptor {
	t.Helper()
	desc, err := NewPlatformDescriptor(sig, features)
	require.NoError(t, err)
	return desc
}

func windowsSignals(env string) Signals {
	return Signals{
		SigTargetOS:     "windows",
		SigTargetEnv:    env,
		SigTargetFamily: "windows",
		SigTarget:       "x86_64-pc-windows-" + env,
		SigOutDir:       "out",
	}
}

func TestRulesBaseFlagsAlwaysFirst(t *testing.T) {
	features := &FeatureSet{Chunks: Chunks16MiB}
	desc := descriptorFor(t, linuxSignals(), features)

	b := newRecordingBuilder()
	require.NoError(t, ApplyPlatformRules(desc, features, b))

	require.GreaterOrEqual(t, len(b.flags), 4)
	require.Equal(t, "-O3", b.flags[0])
	require.Equal(t, "-fomit-frame-pointer", b.flags[1])
	require.Equal(t, "-std=c++20", b.flags[2])
	require.Equal(t, "/std:c++20", b.flags[3])
}

func TestRulesWin8CompatDefinePair(t *testing.T) {
	testCases := []struct {
		name       string
		win8compat bool
		expected   string
	}{
		{"win8compat", true, "0x0603"},
		{"default", false, "0x0A00"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			features := &FeatureSet{Chunks: Chunks16MiB, Win8Compat: tc.win8compat}
			desc := descriptorFor(t, windowsSignals("msvc"), features)

			b := newRecordingBuilder()
			require.NoError(t, ApplyPlatformRules(desc, features, b))

			// Exactly one NT version pair, never both, never neither.
			require.Equal(t, tc.expected, b.compilerDefines["WINVER"])
			require.Equal(t, tc.expected, b.compilerDefines["_WIN32_WINNT"])
		})
	}
}

func TestRulesMsvcLto(t *testing.T) {
	features := &FeatureSet{Chunks: Chunks16MiB, LTO: true}
	desc := descriptorFor(t, windowsSignals("msvc"), features)

	b := newRecordingBuilder()
	require.NoError(t, ApplyPlatformRules(desc, features, b))

	require.Contains(t, b.flags, "/GL")
	require.Equal(t, "TRUE", b.defines["CMAKE_INTERPROCEDURAL_OPTIMIZATION"])
	require.Equal(t, "ON", b.defines["SNMALLOC_IPO"])
}

func TestRulesSubsystemRedirectSupplementsGenericFlags(t *testing.T) {
	sig := windowsSignals("gnu")
	sig[SigMsystem] = "CLANG64"

	features := &FeatureSet{Chunks: Chunks16MiB, LTO: true}
	desc := descriptorFor(t, sig, features)

	b := newRecordingBuilder()
	require.NoError(t, ApplyPlatformRules(desc, features, b))

	// Generic non-MSVC Windows flags survive the redirect.
	require.Contains(t, b.flags, "-mcx16")
	require.Contains(t, b.flags, "-pthread")

	require.Equal(t, "clang++", b.defines["CMAKE_CXX_COMPILER"])
	require.Contains(t, b.defines["CMAKE_CXX_FLAGS"], "-stdlib=libc++")
	require.Contains(t, b.flags, "-flto=thin")
}

func TestRulesUcrt64Redirect(t *testing.T) {
	sig := windowsSignals("gnu")
	sig[SigMsystem] = "UCRT64"

	features := &FeatureSet{Chunks: Chunks16MiB}
	desc := descriptorFor(t, sig, features)

	b := newRecordingBuilder()
	require.NoError(t, ApplyPlatformRules(desc, features, b))

	require.Equal(t, "Windows", b.defines["CMAKE_SYSTEM_NAME"])
	require.Contains(t, b.defines["CMAKE_EXE_LINKER_FLAGS"], "-fuse-ld=lld")
	require.NotContains(t, b.defines, "CMAKE_CXX_COMPILER")
}

func TestRulesUnrecognizedSubsystemFallsThrough(t *testing.T) {
	sig := windowsSignals("gnu")
	sig[SigMsystem] = "MSYS"

	features := &FeatureSet{Chunks: Chunks16MiB}
	desc := descriptorFor(t, sig, features)

	b := newRecordingBuilder()
	require.NoError(t, ApplyPlatformRules(desc, features, b))

	require.Contains(t, b.flags, "-mcx16")
	require.NotContains(t, b.defines, "CMAKE_CXX_COMPILER")
	require.NotContains(t, b.defines, "CMAKE_SYSTEM_NAME")
}

func TestRulesUnixAxis(t *testing.T) {
	t.Run("linux defines", func(t *testing.T) {
		features := &FeatureSet{Chunks: Chunks16MiB}
		desc := descriptorFor(t, linuxSignals(), features)

		b := newRecordingBuilder()
		require.NoError(t, ApplyPlatformRules(desc, features, b))

		require.Contains(t, b.flags, "-fPIC")
		require.Contains(t, b.flags, "-ftls-model=initial-exec")
		require.Contains(t, b.compilerDefines, "SNMALLOC_HAS_LINUX_FUTEX_H")
		require.Contains(t, b.compilerDefines, "SNMALLOC_HAS_LINUX_RANDOM_H")
		require.Contains(t, b.compilerDefines, "SNMALLOC_PLATFORM_HAS_GETENTROPY")
	})

	t.Run("local-dynamic tls", func(t *testing.T) {
		features := &FeatureSet{Chunks: Chunks16MiB, LocalDynamicTLS: true}
		desc := descriptorFor(t, linuxSignals(), features)

		b := newRecordingBuilder()
		require.NoError(t, ApplyPlatformRules(desc, features, b))

		require.Contains(t, b.flags, "-ftls-model=local-dynamic")
		require.NotContains(t, b.flags, "-ftls-model=initial-exec")
	})

	t.Run("freebsd suppression", func(t *testing.T) {
		sig := Signals{
			SigTargetOS:     "freebsd",
			SigTargetEnv:    "",
			SigTargetFamily: "unix",
			SigTarget:       "x86_64-unknown-freebsd",
			SigOutDir:       "out",
		}
		features := &FeatureSet{Chunks: Chunks16MiB}
		desc := descriptorFor(t, sig, features)

		b := newRecordingBuilder()
		require.NoError(t, ApplyPlatformRules(desc, features, b))

		require.Contains(t, b.flags, "-w")
		require.NotContains(t, b.compilerDefines, "SNMALLOC_HAS_LINUX_FUTEX_H")
	})

	t.Run("haiku tls exclusion", func(t *testing.T) {
		sig := Signals{
			SigTargetOS:     "haiku",
			SigTargetEnv:    "",
			SigTargetFamily: "unix",
			SigTarget:       "x86_64-unknown-haiku",
			SigOutDir:       "out",
		}
		features := &FeatureSet{Chunks: Chunks16MiB}
		desc := descriptorFor(t, sig, features)

		b := newRecordingBuilder()
		require.NoError(t, ApplyPlatformRules(desc, features, b))

		for _, flag := range b.flags {
			require.False(t, strings.HasPrefix(flag, "-ftls-model"), "haiku must not select a TLS model, got %s", flag)
		}
	})
}

func TestRulesFeaturePass(t *testing.T) {
	features := &FeatureSet{
		Chunks:        Chunks1MiB,
		Qemu:          true,
		Stats:         true,
		Tracing:       true,
		GwpAsan:       true,
		WaitOnAddress: true,
	}
	sig := linuxSignals()
	sig[SigGwpAsanInclude] = "/opt/gwp/include"
	desc := descriptorFor(t, sig, features)

	b := newRecordingBuilder()
	require.NoError(t, ApplyPlatformRules(desc, features, b))

	require.True(t, b.bools["SNMALLOC_QEMU_WORKAROUND"])
	require.True(t, b.bools["USE_SNMALLOC_STATS"])
	require.False(t, b.bools["SNMALLOC_ENABLE_DYNAMIC_LOADING"])
	require.False(t, b.bools["SNMALLOC_CHECK_LOADS"])
	require.True(t, b.bools["SNMALLOC_ENABLE_WAIT_ON_ADDRESS"])
	require.Equal(t, "ON", b.defines["SNMALLOC_TRACING"])
	require.Equal(t, "ON", b.defines["SNMALLOC_ENABLE_GWP_ASAN_INTEGRATION"])
	require.Equal(t, "/opt/gwp/include", b.defines["SNMALLOC_GWP_ASAN_INCLUDE_PATH"])
	require.NotContains(t, b.defines, "SNMALLOC_GWP_ASAN_LIBRARY_PATH")
	require.Equal(t, "1mib", b.defines["SNMALLOC_CHUNK_CONFIGURATION"])
}

func androidSignals(triple string) Signals {
	return Signals{
		SigTargetOS:     "android",
		SigTargetEnv:    "gnu",
		SigTargetFamily: "unix",
		SigTarget:       triple,
		SigOutDir:       "out",
	}
}

func TestRulesAndroidRequiresNdk(t *testing.T) {
	features := &FeatureSet{Chunks: Chunks16MiB}
	desc := descriptorFor(t, androidSignals("aarch64-linux-android"), features)

	err := ApplyPlatformRules(desc, features, newRecordingBuilder())

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	require.Equal(t, ErrMissingSignal, cfgErr.Kind)
	require.Contains(t, cfgErr.Error(), SigNdkRoot)
}

func TestRulesAndroidABISelection(t *testing.T) {
	testCases := []struct {
		triple  string
		abi     string
		armMode bool
	}{
		{"aarch64-linux-android", "arm64-v8a", false},
		{"armv7-linux-androideabi", "armeabi-v7a", true},
		{"x86_64-linux-android", "x86_64", false},
		{"i686-linux-android", "x86", false},
		{"arm-linux-androideabi", "armeabi-v7a", false},
	}

	for _, tc := range testCases {
		t.Run(tc.triple, func(t *testing.T) {
			sig := androidSignals(tc.triple)
			sig[SigNdkRoot] = "/opt/ndk"
			sig[SigNdkLevel] = "android-33"

			features := &FeatureSet{Chunks: Chunks16MiB, AndroidLLD: true}
			desc := descriptorFor(t, sig, features)

			b := newRecordingBuilder()
			require.NoError(t, ApplyPlatformRules(desc, features, b))

			require.Equal(t, "/opt/ndk/build/cmake/android.toolchain.cmake", b.defines["CMAKE_TOOLCHAIN_FILE"])
			require.Equal(t, "android-33", b.defines["ANDROID_PLATFORM"])
			require.Equal(t, "lld", b.defines["ANDROID_LD"])
			require.Equal(t, tc.abi, b.defines["ANDROID_ABI"])
			if tc.armMode {
				require.Equal(t, "arm", b.defines["ANDROID_ARM_MODE"])
			} else {
				require.NotContains(t, b.defines, "ANDROID_ARM_MODE")
			}
		})
	}
}

func TestRulesAndroidUnknownArch(t *testing.T) {
	sig := androidSignals("riscv64gc-linux-android")
	sig[SigNdkRoot] = "/opt/ndk"

	features := &FeatureSet{Chunks: Chunks16MiB}
	desc := descriptorFor(t, sig, features)

	err := ApplyPlatformRules(desc, features, newRecordingBuilder())
	require.Error(t, err)
	require.Contains(t, err.Error(), "riscv64gc")
}

// semanticDefines flattens a concrete backend's accumulated definitions into
// canonical (key, value) form, undoing backend-specific encoding so the two
// backends can be compared.
func semanticDefines(t *testing.T, b Builder) map[string]string {
	t.Helper()
	out := map[string]string{}

	record := func(key, value string) {
		for canonical, macro := range ccOptionMacros {
			if key == macro {
				key = canonical
			}
		}
		out[key] = normalizeBool(value)
	}

	switch backend := b.(type) {
	case *CcBuilder:
		for _, d := range backend.defines {
			record(d.key, d.value)
		}
	case *CmakeBuilder:
		for _, d := range backend.defines {
			record(d.key, d.value)
		}
		for _, flag := range backend.cxxFlags {
			kv := strings.TrimPrefix(flag, "-D")
			key, value, _ := strings.Cut(kv, "=")
			record(key, value)
		}
	default:
		t.Fatalf("unexpected backend type %T", b)
	}
	return out
}

func normalizeBool(v string) string {
	switch strings.ToLower(v) {
	case "on", "1", "true":
		return "on"
	case "off", "0", "false":
		return "off"
	default:
		return v
	}
}

// Identical inputs must resolve the same semantic define set on both
// backends, differing only in encoding.
func TestBackendParity(t *testing.T) {
	scenarios := []struct {
		name     string
		sig      Signals
		features *FeatureSet
	}{
		{
			name: "linux many toggles",
			sig:  linuxSignals(),
			features: &FeatureSet{
				Chunks: Chunks16MiB, Qemu: true, Stats: true,
				WaitOnAddress: true, CheckLoads: true, PageID: true,
				VendoredSTL: true, NativeCPU: true,
			},
		},
		{
			name:     "msvc lto",
			sig:      windowsSignals("msvc"),
			features: &FeatureSet{Chunks: Chunks1MiB, LTO: true},
		},
		{
			name:     "win8compat gnu",
			sig:      windowsSignals("gnu"),
			features: &FeatureSet{Chunks: Chunks16MiB, Win8Compat: true, NoTLS: true},
		},
	}

	for _, tc := range scenarios {
		t.Run(tc.name, func(t *testing.T) {
			desc := descriptorFor(t, tc.sig, tc.features)

			cc := NewCcBuilder(desc, tc.sig)
			cmake := NewCmakeBuilder(desc, tc.sig)

			require.NoError(t, ApplyPlatformRules(desc, tc.features, cc))
			require.NoError(t, ApplyPlatformRules(desc, tc.features, cmake))

			require.Equal(t, semanticDefines(t, cmake), semanticDefines(t, cc))
		})
	}
}
