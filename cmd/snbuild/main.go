// Command snbuild resolves the native allocator build configuration and
// compiles the shim, printing the resulting link directives for the
// surrounding build orchestrator to consume.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/pterm/pterm"

	snbuild "github.com/contriboss/snbuild-go"
)

func main() {
	// Use a minimal logger until flags are parsed.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := run(os.Stdout, os.Args[1:]); err != nil {
		var cfgErr *snbuild.ConfigError
		if errors.As(err, &cfgErr) {
			pterm.Error.Printfln("%s: %v", cfgErr.Kind, err)
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(outW io.Writer, args []string) error {
	flags := flag.NewFlagSet("snbuild", flag.ContinueOnError)
	profilePath := flags.String("profile", "", "TOML build profile; environment values override it")
	backend := flags.String("backend", "", "build backend: cc or cmake (default cmake)")
	outDir := flags.String("out", "", "build output directory")
	features := flags.String("features", "", "comma-separated feature list")
	verbose := flags.Bool("v", false, "verbose logging")
	if err := flags.Parse(args); err != nil {
		return err
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	sig := snbuild.Signals{}
	if *profilePath != "" {
		profileSig, err := snbuild.LoadProfile(*profilePath)
		if err != nil {
			return err
		}
		sig = profileSig
		slog.Debug("loaded build profile", "path", *profilePath, "signals", len(profileSig))
	}

	// Environment overrides the profile; explicit flags override both.
	sig = sig.Merged(snbuild.ReadSignals(os.LookupEnv))
	overrides := snbuild.Signals{}
	if *backend != "" {
		overrides[snbuild.SigBackend] = *backend
	}
	if *outDir != "" {
		overrides[snbuild.SigOutDir] = *outDir
	}
	if *features != "" {
		overrides[snbuild.SigFeatures] = *features
	}
	sig = sig.Merged(overrides)

	slog.Info("resolving native build", "backend", sig.Get(snbuild.SigBackend), "target", sig.Get(snbuild.SigTarget))

	res, err := snbuild.Resolve(context.Background(), sig)
	if err != nil {
		return err
	}

	printResolution(outW, res)
	return nil
}

func printResolution(w io.Writer, res *snbuild.Resolution) {
	pterm.DefaultSection.WithWriter(w).Printfln("Build info (%s backend)", res.Backend)
	infoRows := pterm.TableData{{"Key", "Value"}}
	for _, entry := range res.BuildInfo {
		infoRows = append(infoRows, []string{entry.Key, entry.Value})
	}
	_ = pterm.DefaultTable.WithWriter(w).WithHasHeader().WithData(infoRows).Render()

	pterm.DefaultSection.WithWriter(w).Println("Link directives")
	for _, d := range res.Link.Directives {
		fmt.Fprintln(w, d)
	}

	pterm.Success.WithWriter(w).Printfln("artifact directory: %s", res.ArtifactDir)
}
