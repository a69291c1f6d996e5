package snbuild

import (
	"path/filepath"
	"strings"

	"github.com/magefile/mage/sh"
)

// EmitLinkPlan produces the ordered linker directives for a completed build:
// search paths first, then the shim archive, then the platform library set.
//
// shimSearchPaths carries extra library search paths for the Windows/GNU
// case (see ShimSearchPaths); it is ignored on every other axis.
//
// The decision table is keyed on the same platform axis as the rule table
// and evaluated first match wins. Axis values not covered by any branch fall
// through to the conservative default, so unknown-but-compatible platforms
// are not blocked.
func EmitLinkPlan(desc *PlatformDescriptor, features *FeatureSet, shimSearchPaths []string) *LinkPlan {
	plan := &LinkPlan{}

	plan.AddSearchPath("/usr/local/lib")
	plan.AddSearchPath(desc.OutDir)
	plan.AddSearchPath(filepath.Join(desc.OutDir, "build"))
	plan.AddSearchPath(filepath.Join(desc.OutDir, "build", "Debug"))
	plan.AddSearchPath(filepath.Join(desc.OutDir, "build", "Release"))

	appendArtifact(plan, desc)
	appendPlatformLibs(plan, desc, features, shimSearchPaths)

	return plan
}

// appendArtifact links the built shim archive. On Linux the archive is
// wrapped in whole-archive brackets so the exported allocation entry points
// survive linker garbage collection.
func appendArtifact(plan *LinkPlan, desc *PlatformDescriptor) {
	if desc.IsLinux() {
		plan.AddRawArg("-Wl,--whole-archive")
		plan.AddLibKind(LinkStatic, desc.TargetLib)
		plan.AddRawArg("-Wl,--no-whole-archive")
		return
	}
	plan.AddLib(desc.TargetLib)
}

func appendPlatformLibs(plan *LinkPlan, desc *PlatformDescriptor, features *FeatureSet, shimSearchPaths []string) {
	switch {
	case desc.IsMsvc():
		// mincore carries VirtualAlloc2; unavailable in Windows 8 mode.
		if !features.Win8Compat {
			plan.AddLib("mincore")
		}
		plan.AddLib("kernel32")
		plan.AddLib("user32")
		plan.AddLib("advapi32")
		plan.AddLib("ws2_32")
		plan.AddLib("userenv")
		plan.AddLib("bcrypt")
		if desc.Debug {
			plan.AddLib("msvcrtd")
		} else {
			plan.AddLib("msvcrt")
		}
		if features.LTO {
			plan.AddRawArg("/LTCG")
		}

	case desc.IsWindows() && desc.IsGnu():
		for _, path := range shimSearchPaths {
			plan.AddSearchPath(path)
		}
		plan.AddLib("kernel32")
		plan.AddLib("bcrypt")
		plan.AddLib("winpthread")

		switch {
		case desc.IsClangMsys():
			plan.AddLib("c++")
		case desc.IsUcrt64():
			plan.AddLib("stdc++")
		default:
			plan.AddLib("stdc++")
			plan.AddLib("atomic")
			plan.AddLib("gcc_s")
		}

	case desc.TargetOS == "freebsd":
		plan.AddLib("c++")

	case desc.IsLinux():
		plan.AddLib("atomic")
		plan.AddLib("stdc++")
		plan.AddLib("pthread")
		plan.AddLib("c")
		plan.AddLib("gcc_s")
		plan.AddLib("util")
		plan.AddLib("rt")
		plan.AddLib("dl")
		plan.AddLib("m")
		plan.AddRawArg("-fuse-ld=lld")

		// The C++17 configuration pulls in __atomic_* helpers that only
		// libgcc provides.
		if features.UseCxx17 {
			plan.AddLib("gcc")
		}

	case desc.IsUnix() && desc.TargetOS != "macos" && desc.TargetOS != "darwin":
		if desc.IsGnu() {
			plan.AddLib("c_nonshared")
		}

	case !desc.IsWindows():
		plan.AddLib(fallbackCxxRuntime(desc))
	}
}

// fallbackCxxRuntime picks the C++ runtime for Unix targets with no
// dedicated branch. A CXXSTDLIB override signal wins outright.
func fallbackCxxRuntime(desc *PlatformDescriptor) string {
	if desc.CxxStdlib != "" {
		return desc.CxxStdlib
	}
	switch desc.TargetOS {
	case "macos", "darwin", "openbsd":
		return "c++"
	default:
		return "stdc++"
	}
}

// ShimSearchPaths resolves the extra library search paths needed when
// linking against a GNU toolchain on Windows, where the C runtime shims live
// outside the default search path.
//
// A shim_search_path signal (';'-separated) overrides probing. Otherwise the
// GNU driver is asked for its search directories; a probe failure yields no
// paths and is not an error.
func ShimSearchPaths(desc *PlatformDescriptor, sig Signals) []string {
	if !desc.IsWindows() || !desc.IsGnu() {
		return nil
	}
	if override, ok := sig.Lookup(SigShimPaths); ok {
		return splitSearchPaths(override)
	}

	out, err := sh.Output("gcc", "-print-search-dirs")
	if err != nil {
		return nil
	}
	return parseGccSearchDirs(out)
}

func splitSearchPaths(v string) []string {
	var paths []string
	for _, p := range strings.Split(v, ";") {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// parseGccSearchDirs extracts the library directories from the output of
// `gcc -print-search-dirs`.
func parseGccSearchDirs(out string) []string {
	const prefix = "libraries: ="
	var paths []string
	for _, line := range splitLines(out) {
		if !strings.HasPrefix(line, prefix) {
			continue
		}
		paths = append(paths, splitSearchPaths(strings.TrimPrefix(line, prefix))...)
	}
	return paths
}
