package snbuild

import (
	"fmt"
	"strings"
)

// ApplyPlatformRules maps the (descriptor, features) pair onto an ordered
// sequence of capability calls against the active backend.
//
// Axis order is fixed: base optimization and standard flags, then the
// native-cpu/LTO flags, then the OS axis, then the independent feature
// toggles, then the Android cross-compilation axis. More specific axis
// values supplement more general ones, never replace them.
//
// The function is deterministic, backend-agnostic, and side-effect free
// apart from the capability calls themselves.
func ApplyPlatformRules(desc *PlatformDescriptor, features *FeatureSet, b Builder) error {
	applyBaseRules(desc, features, b)

	if desc.IsWindows() {
		applyWindowsRules(desc, features, b)
	} else if desc.IsUnix() {
		applyUnixRules(desc, features, b)
	}

	applyFeatureRules(desc, features, b)

	if desc.IsAndroid() {
		return applyAndroidRules(desc, features, b)
	}
	return nil
}

func applyBaseRules(desc *PlatformDescriptor, features *FeatureSet, b Builder) {
	b.FlagIfSupported(desc.OptimLevel)
	b.FlagIfSupported("-fomit-frame-pointer")
	for _, std := range desc.CppStdFlags() {
		b.FlagIfSupported(std)
	}

	if features.NativeCPU {
		b.Define("SNMALLOC_OPTIMISE_FOR_CURRENT_MACHINE", "ON")
		b.FlagIfSupported("-march=native")
	}

	// GCC needs fat LTO objects so linkers without the LTO plugin can
	// still consume the archive.
	if features.LTO && desc.Compiler == CompilerGcc && !desc.IsMsvc() {
		b.FlagIfSupported("-ffat-lto-objects")
	}
}

func applyWindowsRules(desc *PlatformDescriptor, features *FeatureSet, b Builder) {
	if features.Win8Compat {
		// Windows 8.1 (0x0603) compatibility mode.
		b.CompilerDefine("WINVER", "0x0603")
		b.CompilerDefine("_WIN32_WINNT", "0x0603")
	} else {
		// Windows 10 (0x0A00) enables VirtualAlloc2 and WaitOnAddress.
		b.CompilerDefine("WINVER", "0x0A00")
		b.CompilerDefine("_WIN32_WINNT", "0x0A00")
	}

	if desc.IsMsvc() {
		for _, flag := range []string{
			"/nologo", "/W4", "/WX", "/wd4127", "/wd4324", "/wd4201",
			"/Ob2", "/EHsc", "/Gd", "/TP", "/Gm-", "/GS",
			"/fp:precise", "/Zc:wchar_t", "/Zc:forScope", "/Zc:inline",
		} {
			b.FlagIfSupported(flag)
		}

		if !desc.Debug {
			b.CompilerDefine("NDEBUG", "")
		}

		if features.LTO {
			b.FlagIfSupported("/GL")
			b.Define("CMAKE_INTERPROCEDURAL_OPTIMIZATION", "TRUE")
			b.Define("SNMALLOC_IPO", "ON")
		}

		b.Define("CMAKE_CXX_FLAGS_RELEASE", "/O2 /Ob2 /DNDEBUG /EHsc")
		b.Define("CMAKE_C_FLAGS_RELEASE", "/O2 /Ob2 /DNDEBUG /EHsc")
		return
	}

	for _, flag := range []string{"-mcx16", "-fno-exceptions", "-fno-rtti", "-pthread"} {
		b.FlagIfSupported(flag)
	}

	applySubsystemRules(desc, features, b)
}

// applySubsystemRules redirects the toolchain for the known POSIX-on-Windows
// subsystems. The redirect supplements the generic non-MSVC Windows flags
// above, it does not replace them.
func applySubsystemRules(desc *PlatformDescriptor, features *FeatureSet, b Builder) {
	switch desc.Msystem {
	case "CLANG64", "CLANGARM64":
		b.Define("CMAKE_CXX_COMPILER", "clang++")
		b.Define("CMAKE_C_COMPILER", "clang")
		b.Define("CMAKE_CXX_FLAGS", "-fuse-ld=lld -stdlib=libc++ -mcx16 -Wno-error=unknown-pragmas -Qunused-arguments")
		b.Define("CMAKE_C_FLAGS", "-fuse-ld=lld -Wno-error=unknown-pragmas -Qunused-arguments")
		b.Define("CMAKE_EXE_LINKER_FLAGS", "-fuse-ld=lld -stdlib=libc++")
		b.Define("CMAKE_SHARED_LINKER_FLAGS", "-fuse-ld=lld -stdlib=libc++")
		if features.LTO {
			b.FlagIfSupported("-flto=thin")
		}
	case "UCRT64", "MINGW64":
		b.Define("CMAKE_CXX_FLAGS", "-fuse-ld=lld -Wno-error=unknown-pragmas")
		b.Define("CMAKE_SYSTEM_NAME", "Windows")
		b.Define("CMAKE_C_FLAGS", "-fuse-ld=lld -Wno-error=unknown-pragmas")
		b.Define("CMAKE_EXE_LINKER_FLAGS", "-fuse-ld=lld")
		b.Define("CMAKE_SHARED_LINKER_FLAGS", "-fuse-ld=lld")
	}
	// Unrecognized subsystem markers keep the generic flags only.
}

func applyUnixRules(desc *PlatformDescriptor, features *FeatureSet, b Builder) {
	for _, flag := range []string{
		"-fPIC", "-pthread", "-fno-exceptions", "-fno-rtti",
		"-mcx16", "-Wno-unused-parameter",
	} {
		b.FlagIfSupported(flag)
	}

	if desc.TargetOS == "freebsd" {
		b.FlagIfSupported("-w")
	}

	// Haiku's runtime rejects the explicit TLS models.
	if desc.TargetOS != "haiku" {
		if features.LocalDynamicTLS {
			b.FlagIfSupported("-ftls-model=local-dynamic")
		} else {
			b.FlagIfSupported("-ftls-model=initial-exec")
		}
	}

	if desc.TargetOS == "linux" || desc.TargetOS == "android" {
		b.CompilerDefine("SNMALLOC_HAS_LINUX_FUTEX_H", "")
		b.CompilerDefine("SNMALLOC_HAS_LINUX_RANDOM_H", "")
		b.CompilerDefine("SNMALLOC_PLATFORM_HAS_GETENTROPY", "")
	}
}

// applyFeatureRules emits one set of defines per independent toggle. Each
// toggle is evaluated on its own; none depends on another.
func applyFeatureRules(desc *PlatformDescriptor, features *FeatureSet, b Builder) {
	b.DefineBool("SNMALLOC_QEMU_WORKAROUND", features.Qemu)
	b.DefineBool("SNMALLOC_ENABLE_DYNAMIC_LOADING", features.NoTLS)
	b.DefineBool("USE_SNMALLOC_STATS", features.Stats)
	b.DefineBool("SNMALLOC_SHIM_LIBC_API", features.LibcAPI)
	b.DefineBool("SNMALLOC_USE_CXX17", features.UseCxx17)

	if features.Tracing {
		b.Define("SNMALLOC_TRACING", "ON")
	}
	if features.Fuzzing {
		b.Define("SNMALLOC_ENABLE_FUZZING", "ON")
	}
	if features.VendoredSTL {
		b.DefineBool("SNMALLOC_USE_SELF_VENDORED_STL", true)
	}

	b.DefineBool("SNMALLOC_CHECK_LOADS", features.CheckLoads)
	b.DefineBool("SNMALLOC_PAGEID", features.PageID)
	b.DefineBool("SNMALLOC_ENABLE_WAIT_ON_ADDRESS", features.WaitOnAddress)

	if features.GwpAsan {
		b.Define("SNMALLOC_ENABLE_GWP_ASAN_INTEGRATION", "ON")
		if desc.GwpAsanInclude != "" {
			b.Define("SNMALLOC_GWP_ASAN_INCLUDE_PATH", desc.GwpAsanInclude)
		}
		if desc.GwpAsanLibrary != "" {
			b.Define("SNMALLOC_GWP_ASAN_LIBRARY_PATH", desc.GwpAsanLibrary)
		}
	}

	b.Define("SNMALLOC_CHUNK_CONFIGURATION", string(features.Chunks))
}

// androidABIs maps target-triple substrings to Android ABI names. Entries
// are ordered: "neon" and "armv7" must match before the bare "arm".
var androidABIs = []struct {
	substr  string
	abi     string
	armMode bool
}{
	{"aarch64", "arm64-v8a", false},
	{"armv7", "armeabi-v7a", true},
	{"x86_64", "x86_64", false},
	{"i686", "x86", false},
	{"neon", "armeabi-v7a with NEON", false},
	{"arm", "armeabi-v7a", false},
}

func applyAndroidRules(desc *PlatformDescriptor, features *FeatureSet, b Builder) error {
	if desc.NdkRoot == "" {
		return missingSignal(SigNdkRoot)
	}

	b.Define("CMAKE_TOOLCHAIN_FILE", desc.NdkRoot+"/build/cmake/android.toolchain.cmake")
	b.Define("ANDROID_PLATFORM", desc.NdkPlatformLevel)

	if features.AndroidLLD {
		b.Define("ANDROID_LD", "lld")
	}

	for _, entry := range androidABIs {
		if strings.Contains(desc.Triple, entry.substr) {
			b.Define("ANDROID_ABI", entry.abi)
			if entry.armMode {
				b.Define("ANDROID_ARM_MODE", "arm")
			}
			return nil
		}
	}
	return fmt.Errorf("unsupported Android architecture: %s", desc.Triple)
}
