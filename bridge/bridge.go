// Package bridge exposes a plugin instance's exports as typed Go calls.
package bridge

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/tetratelabs/wazero/sys"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-plugin-host/contract"
	"github.com/wippyai/wasm-plugin-host/errors"
)

// Invoker calls a contract export on a running plugin.
type Invoker interface {
	Call(ctx context.Context, iface, fn string, args ...any) (any, error)
}

// Completer produces suggestions for an input buffer.
type Completer interface {
	GenerateCompletions(ctx context.Context, input string) ([]string, error)
}

// Autocompleter calls the plugin's generate-completions export. Every
// failure is returned in the call phase and is fatal to the caller.
type Autocompleter struct {
	inv Invoker
}

var _ Completer = (*Autocompleter)(nil)

// New creates an Autocompleter over inv.
func New(inv Invoker) *Autocompleter {
	return &Autocompleter{inv: inv}
}

// GenerateCompletions forwards input verbatim and returns the suggestions
// in guest order, copied out of guest memory.
func (a *Autocompleter) GenerateCompletions(ctx context.Context, input string) (out []string, err error) {
	if a == nil || a.inv == nil {
		return nil, errors.NotInitialized(errors.PhaseCall, "plugin instance")
	}

	defer func() {
		if r := recover(); r != nil {
			out, err = nil, errors.Trap(contract.GenerateCompletions, fmt.Errorf("panic: %v", r))
		}
	}()

	res, err := a.inv.Call(ctx, contract.AutocompleterInterface, contract.GenerateCompletions, input)
	if err != nil {
		return nil, classify(err)
	}

	out, err = toStrings(res)
	if err != nil {
		return nil, err
	}

	Logger().Debug("completions generated",
		zap.Int("input_len", len(input)),
		zap.Int("suggestions", len(out)))

	return out, nil
}

func classify(err error) error {
	var herr *errors.Error
	if stderrors.As(err, &herr) {
		return err
	}

	var exitErr *sys.ExitError
	if stderrors.As(err, &exitErr) {
		return errors.New(errors.PhaseCall, errors.KindTrap).
			Subject(contract.GenerateCompletions).
			Detail("guest module closed with exit code %d", exitErr.ExitCode()).
			Cause(err).
			Build()
	}

	return errors.Trap(contract.GenerateCompletions, err)
}

func toStrings(res any) ([]string, error) {
	switch v := res.(type) {
	case nil:
		return []string{}, nil
	case []string:
		out := make([]string, len(v))
		for i, s := range v {
			out[i] = strings.Clone(s)
		}
		return out, nil
	case []any:
		out := make([]string, len(v))
		for i, e := range v {
			s, ok := e.(string)
			if !ok {
				return nil, errors.TypeMismatch(errors.PhaseCall, fmt.Sprintf("%s[%d]", contract.GenerateCompletions, i),
					"string", fmt.Sprintf("%T", e))
			}
			out[i] = strings.Clone(s)
		}
		return out, nil
	default:
		return nil, errors.TypeMismatch(errors.PhaseCall, contract.GenerateCompletions,
			"list<string>", fmt.Sprintf("%T", res))
	}
}
