package host

import (
	"context"
	stderrors "errors"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-runtime/engine"
	"github.com/wippyai/wasm-runtime/linker"

	"github.com/wippyai/wasm-plugin-host/contract"
	"github.com/wippyai/wasm-plugin-host/errors"
)

// Instance is a running plugin bound to one Store and one Component.
// Calls are serialized.
type Instance struct {
	comp  *Component
	store *Store

	mu     sync.Mutex
	inst   *engine.WazeroInstance
	closed bool
}

// Instantiate links comp against store through l and runs guest setup.
// Every import must resolve; a guest importing anything the linker does
// not provide is rejected here rather than trapping at call time.
func Instantiate(ctx context.Context, comp *Component, l *Linker, store *Store) (*Instance, error) {
	switch {
	case comp == nil:
		return nil, errors.NotInitialized(errors.PhaseStartup, "component")
	case l == nil:
		return nil, errors.NotInitialized(errors.PhaseStartup, "linker")
	case store == nil:
		return nil, errors.NotInitialized(errors.PhaseStartup, "store")
	}

	if missing := l.Unresolved(comp.Imports()); len(missing) > 0 {
		return nil, errors.NewMissingImportsError(missing)
	}

	reg, err := l.registry(store)
	if err != nil {
		return nil, err
	}

	module, err := comp.takeModule(ctx)
	if err != nil {
		return nil, err
	}

	if err := reg.Bind(module); err != nil {
		return nil, errors.New(errors.PhaseStartup, errors.KindRegistration).
			Subject(comp.Name()).
			Detail("bind host capabilities").
			Cause(err).
			Build()
	}

	asyncify := l.engine != nil && l.engine.Config().Asyncify
	if err := module.Compile(ctx, &engine.CompileConfig{EnableAsyncify: asyncify}); err != nil {
		return nil, classifyLinkError(err)
	}

	wi, err := module.InstantiateWithConfig(ctx, &engine.InstanceConfig{EnableAsyncify: asyncify})
	if err != nil {
		return nil, classifyLinkError(err)
	}

	name, ok := comp.ExportName(contract.AutocompleterInterface, contract.GenerateCompletions)
	if !ok || wi.GetExportedFunction(name) == nil {
		_ = wi.Close(ctx)
		return nil, errors.ContractMismatch(contract.AutocompleterInterface+"#"+contract.GenerateCompletions,
			"export does not resolve on the instance")
	}

	Logger().Debug("plugin instantiated",
		zap.String("component", comp.Name()),
		zap.String("export", name),
		zap.Bool("asyncify", asyncify))

	return &Instance{comp: comp, store: store, inst: wi}, nil
}

func classifyLinkError(err error) error {
	var ie *linker.InstantiationError
	if stderrors.As(err, &ie) && ie.Phase == "import_resolution" && ie.ImportPath != "" {
		return errors.NewMissingImportsError([]string{ie.ImportPath})
	}
	return errors.Instantiation(err)
}

// Store returns the store the instance is bound to.
func (i *Instance) Store() *Store {
	return i.store
}

// Call invokes the export implementing iface#fn with args. Guest output
// written to stdout or stderr during the call goes to the debug log.
func (i *Instance) Call(ctx context.Context, iface, fn string, args ...any) (any, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed || i.inst == nil {
		return nil, errors.NotInitialized(errors.PhaseCall, "plugin instance")
	}

	name, ok := i.comp.ExportName(iface, fn)
	if !ok {
		return nil, errors.ContractMismatch(iface+"#"+fn, "not an export of the plugin world")
	}
	if err := i.exitError(name, nil); err != nil {
		return nil, err
	}

	result, err := i.inst.CallWithLift(ctx, name, args...)
	i.drain(name)
	if exitErr := i.exitError(name, err); exitErr != nil {
		return nil, exitErr
	}
	return result, err
}

// exitError reports a guest that called wasi:cli/exit. Its module is
// closed by then, so this and every later call fails.
func (i *Instance) exitError(export string, cause error) error {
	if i.store.Context == nil {
		return nil
	}
	status, ok := i.store.Context.Exited()
	if !ok {
		return nil
	}
	return errors.New(errors.PhaseCall, errors.KindTrap).
		Subject(export).
		Detail("guest exited with code %d", status).
		Cause(cause).
		Build()
}

func (i *Instance) drain(export string) {
	if i.store.Context == nil {
		return
	}
	stdout, stderr := i.store.Context.Drain()
	if len(stdout) > 0 {
		Logger().Debug("guest stdout", zap.String("export", export), zap.ByteString("data", stdout))
	}
	if len(stderr) > 0 {
		Logger().Debug("guest stderr", zap.String("export", export), zap.ByteString("data", stderr))
	}
}

// Close releases the guest. Further calls fail.
func (i *Instance) Close(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return nil
	}
	i.closed = true
	if i.inst == nil {
		return nil
	}
	return i.inst.Close(ctx)
}
