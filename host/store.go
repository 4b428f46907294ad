package host

import (
	"github.com/wippyai/wasm-plugin-host/capability"
	"github.com/wippyai/wasm-plugin-host/sandbox"
)

// Store holds the per-instance state host capabilities read: the logger
// capability and the sandbox execution context. A Store outlives every
// instance bound to it.
type Store struct {
	Logger  capability.Logger
	Context *sandbox.Context
}

// NewStore creates a store with a fresh execution context. A nil logger
// means a console on stdout.
func NewStore(l capability.Logger) *Store {
	if l == nil {
		l = capability.NewConsole(nil)
	}
	return &Store{
		Logger:  l,
		Context: sandbox.New(),
	}
}

// Close releases the execution context.
func (s *Store) Close() {
	if s.Context != nil {
		s.Context.Close()
	}
}
