package contract

import (
	"sort"
	"strings"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/wasm-runtime/component"

	"github.com/wippyai/wasm-plugin-host/errors"
)

// Binding maps contract exports to the export names a component uses.
type Binding struct {
	exports map[string]string
}

// ExportName returns the component export implementing iface#fn.
func (b *Binding) ExportName(iface, fn string) (string, bool) {
	name, ok := b.exports[iface+"#"+fn]
	return name, ok
}

// NewBinding builds a binding from "iface#fn" keys to export names.
func NewBinding(exports map[string]string) *Binding {
	return &Binding{exports: exports}
}

// Verify checks a component's canonical lifts and lowers against the
// contract. Every exported function must be present with identical types.
// Every lower into the contract package must name a declared import with
// identical types. Lowers into other packages are left to the linker.
func (c *Contract) Verify(reg *component.CanonRegistry) (*Binding, error) {
	if reg == nil {
		return nil, errors.NotInitialized(errors.PhaseContract, "canon registry")
	}

	b := &Binding{exports: make(map[string]string)}

	for _, iface := range c.Exports {
		for _, fn := range iface.Funcs {
			subject := iface.Qualified + "#" + fn.Name
			lift := resolveLift(reg.Lifts, iface.Qualified, fn.Name)
			if lift == nil {
				return nil, errors.ContractMismatch(subject, "export not found in component")
			}
			if err := compare(subject, fn, lift.Params, lift.Results); err != nil {
				return nil, err
			}
			b.exports[subject] = lift.Name
		}
	}

	names := make([]string, 0, len(reg.Lowers))
	for name := range reg.Lowers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		ns, fnName := errors.SplitImportKey(name)
		base := BaseNamespace(ns)
		if !strings.HasPrefix(base, c.Package+"/") {
			continue
		}

		iface := c.ImportInterface(base)
		if iface == nil {
			return nil, errors.ContractMismatch(name, "imports an interface the plugin world does not declare")
		}
		fn := iface.Func(fnName)
		if fn == nil {
			return nil, errors.New(errors.PhaseContract, errors.KindContractMismatch).
				Subject(name).
				Detail("interface %s declares no function %q", iface.Name, fnName).
				Build()
		}
		lower := reg.Lowers[name]
		if err := compare(name, fn, lower.Params, lower.Results); err != nil {
			return nil, err
		}
	}

	return b, nil
}

// BaseNamespace strips an "@version" suffix from an interface name.
func BaseNamespace(ns string) string {
	if i := strings.IndexByte(ns, '@'); i >= 0 {
		return ns[:i]
	}
	return ns
}

func resolveLift(lifts map[string]*component.LiftDef, iface, fn string) *component.LiftDef {
	if l := lifts[iface+"#"+fn]; l != nil {
		return l
	}
	for name, l := range lifts {
		ns, f := errors.SplitImportKey(name)
		if f == fn && BaseNamespace(ns) == iface {
			return l
		}
	}
	return lifts[fn]
}

func compare(subject string, fn *Func, params, results []wit.Type) error {
	want := TypesString(fn.ParamTypes())
	if got := TypesString(params); got != want {
		return errors.New(errors.PhaseContract, errors.KindContractMismatch).
			Subject(subject).
			Detail("parameters: want %s, got %s", want, got).
			Build()
	}
	want = TypesString(fn.Results)
	if got := TypesString(results); got != want {
		return errors.New(errors.PhaseContract, errors.KindContractMismatch).
			Subject(subject).
			Detail("results: want %s, got %s", want, got).
			Build()
	}
	return nil
}
