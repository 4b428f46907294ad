package host

import (
	"context"
	"sort"
	"sync"

	"github.com/wippyai/wasm-runtime/runtime"

	"github.com/wippyai/wasm-plugin-host/capability"
	"github.com/wippyai/wasm-plugin-host/contract"
	"github.com/wippyai/wasm-plugin-host/errors"
	"github.com/wippyai/wasm-plugin-host/sandbox"
)

// hostFactory produces the hosts of one registration for a given store.
type hostFactory func(*Store) ([]runtime.Host, error)

// Linker is a recipe for resolving guest imports against a Store. Hosts
// are created per instantiation so each one reads the store it is bound to.
type Linker struct {
	engine *Engine

	mu         sync.RWMutex
	factories  []hostFactory
	namespaces map[string]bool
}

// NewLinker creates an empty linker for engine.
func NewLinker(e *Engine) *Linker {
	return &Linker{
		engine:     e,
		namespaces: make(map[string]bool),
	}
}

// RegisterCapability registers the plugin's logger import. The accessor
// picks the logger out of the store at instantiation.
func (l *Linker) RegisterCapability(accessor func(*Store) capability.Logger) error {
	if accessor == nil {
		return errors.Registration(contract.LoggerInterface, "*", errors.NotInitialized(errors.PhaseStartup, "logger accessor"))
	}

	l.add([]string{contract.LoggerInterface}, func(s *Store) ([]runtime.Host, error) {
		lg := accessor(s)
		if lg == nil {
			return nil, errors.NotInitialized(errors.PhaseStartup, "logger capability")
		}
		return []runtime.Host{&loggerHost{logger: lg}}, nil
	})
	return nil
}

// RegisterAmbient registers the WASI preview2 shims backed by the store's
// execution context.
func (l *Linker) RegisterAmbient() error {
	scratch := sandbox.New()
	defer scratch.Close()

	var namespaces []string
	for _, h := range scratch.Hosts() {
		ns := h.Namespace()
		if ns == "" {
			return errors.Registration("wasi", "*", errors.NotInitialized(errors.PhaseStartup, "namespace"))
		}
		namespaces = append(namespaces, ns)
	}

	l.add(namespaces, func(s *Store) ([]runtime.Host, error) {
		if s.Context == nil {
			return nil, errors.NotInitialized(errors.PhaseStartup, "execution context")
		}
		return s.Context.Hosts(), nil
	})
	return nil
}

func (l *Linker) add(namespaces []string, f hostFactory) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, ns := range namespaces {
		l.namespaces[contract.BaseNamespace(ns)] = true
	}
	l.factories = append(l.factories, f)
}

// Provides reports whether an import namespace, with or without a
// version, is registered.
func (l *Linker) Provides(namespace string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.namespaces[contract.BaseNamespace(namespace)]
}

// Namespaces returns the registered namespaces without versions.
func (l *Linker) Namespaces() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.namespaces))
	for ns := range l.namespaces {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}

// Unresolved returns the imports, as "namespace#function", whose namespace
// no registration provides.
func (l *Linker) Unresolved(imports []string) []string {
	var missing []string
	for _, imp := range imports {
		ns, _ := errors.SplitImportKey(imp)
		if !l.Provides(ns) {
			missing = append(missing, imp)
		}
	}
	return missing
}

// registry builds the host registry for one store.
func (l *Linker) registry(s *Store) (*runtime.HostRegistry, error) {
	l.mu.RLock()
	factories := append([]hostFactory(nil), l.factories...)
	l.mu.RUnlock()

	reg := runtime.NewHostRegistry()
	for _, f := range factories {
		hosts, err := f(s)
		if err != nil {
			return nil, err
		}
		for _, h := range hosts {
			if err := reg.RegisterHost(h); err != nil {
				return nil, errors.Registration(h.Namespace(), "*", err)
			}
		}
	}
	return reg, nil
}

// loggerHost exposes a capability.Logger under the logger interface.
// Method names map to log-info and log-error.
type loggerHost struct {
	logger capability.Logger
}

func (h *loggerHost) Namespace() string {
	return contract.LoggerInterface
}

func (h *loggerHost) LogInfo(ctx context.Context, message string) {
	h.logger.LogInfo(ctx, message)
}

func (h *loggerHost) LogError(ctx context.Context, message string) {
	h.logger.LogError(ctx, message)
}
