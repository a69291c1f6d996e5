package snbuild

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml"
)

// buildProfile is the on-disk TOML shape of a build profile. The format
// mirrors the upstream manifest layout: a target table, a feature list, and
// a handful of scalar options.
//
//	[target]
//	os = "linux"
//	env = "gnu"
//	family = "unix"
//	triple = "x86_64-unknown-linux-gnu"
//
//	out-dir = "out"
//	backend = "cmake"
//	debug = false
//	features = ["16mib", "lto", "usewait-on-address"]
//
//	[android]
//	ndk = "/opt/android-ndk"
//	platform = "android-33"
type buildProfile struct {
	Target struct {
		OS     string `toml:"os"`
		Env    string `toml:"env"`
		Family string `toml:"family"`
		Triple string `toml:"triple"`
	} `toml:"target"`

	OutDir    string   `toml:"out-dir"`
	Backend   string   `toml:"backend"`
	Debug     bool     `toml:"debug"`
	Jobs      int      `toml:"jobs"`
	SourceDir string   `toml:"source-dir"`
	CxxStdlib string   `toml:"cxxstdlib"`
	Features  []string `toml:"features"`

	Android struct {
		Ndk      string `toml:"ndk"`
		Platform string `toml:"platform"`
	} `toml:"android"`

	GwpAsan struct {
		IncludePath string `toml:"include-path"`
		LibraryPath string `toml:"library-path"`
	} `toml:"gwp-asan"`
}

// LoadProfile reads a TOML build profile into Signals.
//
// Profile values sit below environment values: merge them with
// profileSignals.Merged(envSignals) so the environment wins.
func LoadProfile(path string) (Signals, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading build profile: %w", err)
	}
	return parseProfile(data)
}

func parseProfile(data []byte) (Signals, error) {
	var profile buildProfile
	if err := toml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("parsing build profile: %w", err)
	}

	sig := Signals{}
	put := func(key, value string) {
		if value != "" {
			sig[key] = value
		}
	}

	put(SigTargetOS, profile.Target.OS)
	put(SigTargetEnv, profile.Target.Env)
	put(SigTargetFamily, profile.Target.Family)
	put(SigTarget, profile.Target.Triple)
	put(SigOutDir, profile.OutDir)
	put(SigBackend, profile.Backend)
	put(SigSourceDir, profile.SourceDir)
	put(SigCxxStdlib, profile.CxxStdlib)
	put(SigNdkRoot, profile.Android.Ndk)
	put(SigNdkLevel, profile.Android.Platform)
	put(SigGwpAsanInclude, profile.GwpAsan.IncludePath)
	put(SigGwpAsanLibrary, profile.GwpAsan.LibraryPath)

	if profile.Debug {
		sig[SigDebug] = "1"
	}
	if profile.Jobs > 0 {
		sig[SigJobs] = strconv.Itoa(profile.Jobs)
	}
	if len(profile.Features) > 0 {
		for _, name := range profile.Features {
			if !knownFeature(name) {
				return nil, fmt.Errorf("build profile: unknown feature %q", name)
			}
		}
		sig[SigFeatures] = strings.Join(profile.Features, ",")
	}

	return sig, nil
}

func knownFeature(name string) bool {
	if _, ok := featureToggles[name]; ok {
		return true
	}
	_, ok := chunkConfigs[name]
	return ok
}
