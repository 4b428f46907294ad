// Package completion is an in-process completer with the same behavior as
// the example plugin. It backs tests and --builtin runs that need the full
// render path without a wasm binary.
package completion

import (
	"context"
	"fmt"
	"strings"

	"github.com/wippyai/wasm-plugin-host/capability"
)

// Reference is the fixed suggestion set of the example plugin.
var Reference = []string{
	"Wasm",
	"WebAssembly",
	"WASI",
	"WasmTime",
	"Components",
	"Rust",
	"Software",
	"Plugin",
}

// Filter returns the entries of set containing input, ignoring ASCII case,
// in set order. Duplicates in set are kept.
func Filter(input string, set []string) []string {
	needle := asciiLower(input)
	out := make([]string, 0, len(set))
	for _, s := range set {
		if strings.Contains(asciiLower(s), needle) {
			out = append(out, s)
		}
	}
	return out
}

func asciiLower(s string) string {
	return strings.Map(func(r rune) rune {
		if 'A' <= r && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, s)
}

// Completer filters a fixed set and logs through a capability the way the
// example plugin does.
type Completer struct {
	set    []string
	logger capability.Logger
}

// New creates a Completer over set. A nil set means Reference.
func New(set []string, l capability.Logger) *Completer {
	if set == nil {
		set = Reference
	}
	return &Completer{set: set, logger: l}
}

func (c *Completer) GenerateCompletions(ctx context.Context, input string) ([]string, error) {
	if c.logger != nil {
		c.logger.LogInfo(ctx, fmt.Sprintf("Checking %d strings", len(c.set)))
	}
	out := Filter(input, c.set)
	if len(out) == 0 && c.logger != nil {
		c.logger.LogError(ctx, "No matches found!")
	}
	return out, nil
}
