package host

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-runtime/component"
	"github.com/wippyai/wasm-runtime/engine"

	"github.com/wippyai/wasm-plugin-host/contract"
	"github.com/wippyai/wasm-plugin-host/errors"
)

// Component is a validated plugin binary, immutable once loaded.
type Component struct {
	name    string
	size    int
	digest  uint64
	data    []byte
	engine  *Engine
	canon   *component.CanonRegistry
	binding *contract.Binding

	mu     sync.Mutex
	module *engine.WazeroModule
	bound  bool
}

// LoadComponent reads, validates and contract-checks the plugin at path.
func LoadComponent(ctx context.Context, e *Engine, path string) (*Component, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.NotFound(path, err)
		}
		return nil, errors.New(errors.PhaseStartup, errors.KindNotFound).
			Subject(path).
			Detail("module unreadable").
			Cause(err).
			Build()
	}
	return LoadComponentBytes(ctx, e, path, data)
}

// LoadComponentBytes validates and contract-checks an in-memory plugin.
// name identifies the binary in errors and logs.
func LoadComponentBytes(ctx context.Context, e *Engine, name string, data []byte) (*Component, error) {
	if e == nil {
		return nil, errors.NotInitialized(errors.PhaseStartup, "engine")
	}
	if !component.IsComponent(data) {
		return nil, errors.Malformed(name, "not a component binary", nil)
	}

	validated, err := component.DecodeAndValidate(data)
	if err != nil {
		return nil, errors.Malformed(name, "decode component", err)
	}
	raw := validated.Raw

	resolver := component.NewTypeResolverWithInstances(raw.TypeIndexSpace, raw.InstanceTypes)
	canon, err := component.NewCanonRegistry(raw, resolver)
	if err != nil {
		return nil, errors.Malformed(name, "build canon registry", err)
	}

	plugin, err := contract.Plugin()
	if err != nil {
		return nil, err
	}
	binding, err := plugin.Verify(canon)
	if err != nil {
		return nil, err
	}

	module, err := e.wazero.LoadModule(ctx, data)
	if err != nil {
		return nil, errors.Malformed(name, "compile", err)
	}

	c := &Component{
		name:    name,
		size:    len(data),
		digest:  xxhash.Sum64(data),
		data:    data,
		engine:  e,
		canon:   canon,
		binding: binding,
		module:  module,
	}

	Logger().Info("component loaded",
		zap.String("path", name),
		zap.Int("size", c.size),
		zap.String("xxhash", fmt.Sprintf("%016x", c.digest)),
		zap.Int("imports", len(canon.Lowers)),
		zap.Int("exports", len(canon.Lifts)))

	return c, nil
}

// Name returns the path or name the component was loaded from.
func (c *Component) Name() string { return c.name }

// Size returns the binary size in bytes.
func (c *Component) Size() int { return c.size }

// Digest returns the xxhash64 of the binary.
func (c *Component) Digest() uint64 { return c.digest }

// Imports returns the component's function imports as "namespace#function".
func (c *Component) Imports() []string {
	out := make([]string, 0, len(c.canon.Lowers))
	for name := range c.canon.Lowers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Exports returns the component's exported function names.
func (c *Component) Exports() []string {
	out := make([]string, 0, len(c.canon.Lifts))
	for name := range c.canon.Lifts {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ExportName returns the export implementing iface#fn of the contract.
func (c *Component) ExportName(iface, fn string) (string, bool) {
	return c.binding.ExportName(iface, fn)
}

// takeModule hands out the module loaded with the component the first time
// and a freshly loaded one afterwards, since host bindings are per module.
func (c *Component) takeModule(ctx context.Context) (*engine.WazeroModule, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.bound {
		c.bound = true
		return c.module, nil
	}
	m, err := c.engine.wazero.LoadModule(ctx, c.data)
	if err != nil {
		return nil, errors.Malformed(c.name, "compile", err)
	}
	return m, nil
}
