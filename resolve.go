package snbuild

import (
	"context"
	"fmt"
)

// Resolve runs one full resolution: feature validation, descriptor
// construction, backend selection, rule application, native build, and link
// plan emission.
//
// The resolver is single-threaded and synchronous. It blocks on external
// processes (flag probes and the backend build) and runs to completion once
// per build invocation. Fatal errors abort before any further process runs;
// a failed build never yields a Resolution.
func Resolve(ctx context.Context, sig Signals) (*Resolution, error) {
	return resolve(ctx, sig, NewBackendFactory())
}

// resolve is the pipeline body, parameterized over the factory so tests can
// register recording backends.
func resolve(ctx context.Context, sig Signals, factory *BackendFactory) (*Resolution, error) {
	features, err := ParseFeatures(sig)
	if err != nil {
		return nil, err
	}
	if err := features.Validate(); err != nil {
		return nil, err
	}

	desc, err := NewPlatformDescriptor(sig, features)
	if err != nil {
		return nil, err
	}

	ctor, err := factory.BackendFor(sig.Get(SigBackend))
	if err != nil {
		return nil, err
	}
	backend := ctor(desc, sig)

	// Fail fast on missing tools, before any configuration is applied.
	if checker, ok := backend.(ToolChecker); ok {
		if err := checker.CheckTools(); err != nil {
			return nil, fmt.Errorf("%s backend: %w", backend.Name(), err)
		}
	}

	backend.ConfigureCpp(desc)
	backend.ConfigureOutputDir(desc.OutDir)

	if err := ApplyPlatformRules(desc, features, backend); err != nil {
		return nil, err
	}

	artifactDir, err := backend.BuildLib(ctx, desc.TargetLib)
	if err != nil {
		return nil, err
	}

	plan := EmitLinkPlan(desc, features, ShimSearchPaths(desc, sig))

	return &Resolution{
		BuildInfo:   desc.BuildInfo(),
		ArtifactDir: artifactDir,
		Link:        plan,
		Backend:     backend.Name(),
	}, nil
}
