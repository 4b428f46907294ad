package contract

import (
	_ "embed"
	"regexp"
	"strings"
	"sync"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/wasm-plugin-host/errors"
)

//go:embed plugin.wit
var pluginWIT string

// Names from the plugin world.
const (
	Package                = "simple-component:plugin"
	World                  = "plugin"
	AutocompleterInterface = Package + "/autocompleter"
	LoggerInterface        = Package + "/logger"

	GenerateCompletions = "generate-completions"
	LogInfo             = "log-info"
	LogError            = "log-error"
)

// Param is a named function parameter.
type Param struct {
	Name string
	Type wit.Type
}

// Func is a function signature declared in an interface.
type Func struct {
	Name    string
	Params  []Param
	Results []wit.Type
}

// ParamTypes returns the parameter types in declaration order.
func (f *Func) ParamTypes() []wit.Type {
	types := make([]wit.Type, len(f.Params))
	for i, p := range f.Params {
		types[i] = p.Type
	}
	return types
}

// Signature renders the function in WIT syntax.
func (f *Func) Signature() string {
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.Name + ": " + TypeString(p.Type)
	}
	sig := "func(" + strings.Join(params, ", ") + ")"
	switch len(f.Results) {
	case 0:
	case 1:
		sig += " -> " + TypeString(f.Results[0])
	default:
		sig += " -> " + TypesString(f.Results)
	}
	return sig
}

// Interface is a named group of functions.
type Interface struct {
	Name      string
	Qualified string
	Funcs     []*Func
}

// Func returns the named function or nil.
func (i *Interface) Func(name string) *Func {
	for _, f := range i.Funcs {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Contract is a parsed WIT package with a single world.
type Contract struct {
	Package string
	World   string
	Exports []*Interface
	Imports []*Interface
}

// Export returns the exported function iface#name or nil.
func (c *Contract) Export(iface, name string) *Func {
	return lookup(c.Exports, iface, name)
}

// Import returns the imported function iface#name or nil.
func (c *Contract) Import(iface, name string) *Func {
	return lookup(c.Imports, iface, name)
}

// ImportInterface returns the imported interface with the qualified name.
func (c *Contract) ImportInterface(qualified string) *Interface {
	for _, i := range c.Imports {
		if i.Qualified == qualified {
			return i
		}
	}
	return nil
}

func lookup(ifaces []*Interface, iface, name string) *Func {
	for _, i := range ifaces {
		if i.Qualified == iface || i.Name == iface {
			return i.Func(name)
		}
	}
	return nil
}

var loadPlugin = sync.OnceValues(func() (*Contract, error) {
	return Parse(pluginWIT)
})

// Plugin returns the embedded plugin contract.
func Plugin() (*Contract, error) {
	return loadPlugin()
}

// Text returns the embedded WIT source.
func Text() string {
	return pluginWIT
}

var (
	commentPattern   = regexp.MustCompile(`//[^\n]*`)
	packagePattern   = regexp.MustCompile(`package\s+([a-z][a-z0-9-]*:[a-z][a-z0-9-]*(?:@[^;\s]+)?)\s*;`)
	interfacePattern = regexp.MustCompile(`interface\s+([a-z][a-z0-9-]*)\s*\{([^}]*)\}`)
	worldPattern     = regexp.MustCompile(`world\s+([a-z][a-z0-9-]*)\s*\{([^}]*)\}`)
	itemPattern      = regexp.MustCompile(`(export|import)\s+([a-z][a-z0-9-]*)\s*;`)
	funcPattern      = regexp.MustCompile(`([a-z][a-z0-9-]*)\s*:\s*func\s*\(([^)]*)\)(?:\s*->\s*([^;]+))?;`)
)

// Parse parses WIT text holding one package, its interfaces and one world.
func Parse(text string) (*Contract, error) {
	text = commentPattern.ReplaceAllString(text, "")

	pkg := packagePattern.FindStringSubmatch(text)
	if pkg == nil {
		return nil, errors.New(errors.PhaseContract, errors.KindParse).
			Detail("no package declaration").
			Build()
	}

	c := &Contract{Package: pkg[1]}

	ifaces := make(map[string]*Interface)
	for _, m := range interfacePattern.FindAllStringSubmatch(text, -1) {
		iface := &Interface{
			Name:      m[1],
			Qualified: c.Package + "/" + m[1],
		}
		funcs, err := parseFuncs(m[2])
		if err != nil {
			return nil, errors.ParseFailed("interface "+m[1], err)
		}
		iface.Funcs = funcs
		ifaces[iface.Name] = iface
	}

	worlds := worldPattern.FindAllStringSubmatch(text, -1)
	if len(worlds) != 1 {
		return nil, errors.New(errors.PhaseContract, errors.KindParse).
			Detail("expected exactly one world, found %d", len(worlds)).
			Build()
	}
	c.World = worlds[0][1]

	for _, m := range itemPattern.FindAllStringSubmatch(worlds[0][2], -1) {
		iface, ok := ifaces[m[2]]
		if !ok {
			return nil, errors.New(errors.PhaseContract, errors.KindParse).
				Subject(c.World).
				Detail("%s of undeclared interface %q", m[1], m[2]).
				Build()
		}
		if m[1] == "export" {
			c.Exports = append(c.Exports, iface)
		} else {
			c.Imports = append(c.Imports, iface)
		}
	}

	return c, nil
}

func parseFuncs(body string) ([]*Func, error) {
	var funcs []*Func
	for _, m := range funcPattern.FindAllStringSubmatch(body, -1) {
		f := &Func{Name: m[1]}

		for _, p := range splitParams(m[2]) {
			name, typ, ok := strings.Cut(p, ":")
			if !ok {
				return nil, errors.New(errors.PhaseContract, errors.KindParse).
					Subject(f.Name).
					Detail("parameter %q has no type", p).
					Build()
			}
			t, err := ParseType(typ)
			if err != nil {
				return nil, errors.New(errors.PhaseContract, errors.KindParse).
					Subject(f.Name).
					Cause(err).
					Detail("parse param type %s", typ).
					Build()
			}
			f.Params = append(f.Params, Param{Name: strings.TrimSpace(name), Type: t})
		}

		result := strings.TrimSpace(m[3])
		if result != "" && result != "()" {
			t, err := ParseType(result)
			if err != nil {
				return nil, errors.New(errors.PhaseContract, errors.KindParse).
					Subject(f.Name).
					Cause(err).
					Detail("parse result type %s", result).
					Build()
			}
			f.Results = []wit.Type{t}
		}

		funcs = append(funcs, f)
	}
	return funcs, nil
}

// splitParams splits on top-level commas, ignoring commas inside <...>.
func splitParams(s string) []string {
	var result []string
	var current strings.Builder
	depth := 0

	for _, ch := range s {
		switch ch {
		case '<', '(':
			depth++
			current.WriteRune(ch)
		case '>', ')':
			depth--
			current.WriteRune(ch)
		case ',':
			if depth == 0 {
				if str := strings.TrimSpace(current.String()); str != "" {
					result = append(result, str)
				}
				current.Reset()
			} else {
				current.WriteRune(ch)
			}
		default:
			current.WriteRune(ch)
		}
	}

	if str := strings.TrimSpace(current.String()); str != "" {
		result = append(result, str)
	}

	return result
}
