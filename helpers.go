package snbuild

import (
	"context"
	"os"
	"os/exec"
	"strings"
)

// define is one accumulated (key, value) definition. Backends keep defines
// ordered; later entries for the same key win at render time.
type define struct {
	key   string
	value string
}

// setDefine appends or replaces a definition, preserving first-seen order.
func setDefine(defines []define, key, value string) []define {
	for i := range defines {
		if defines[i].key == key {
			defines[i].value = value
			return defines
		}
	}
	return append(defines, define{key: key, value: value})
}

// runCommand executes an external build tool, capturing combined output as
// lines. The command inherits the process environment plus extra entries.
func runCommand(ctx context.Context, dir string, extraEnv []string, program string, args ...string) ([]string, error) {
	cmd := exec.CommandContext(ctx, program, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), extraEnv...)

	output, err := cmd.CombinedOutput()
	return splitLines(string(output)), err
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
}
