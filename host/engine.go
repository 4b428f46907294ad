package host

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-runtime/engine"

	"github.com/wippyai/wasm-plugin-host/errors"
)

const (
	// MaxMemoryLimitPages is the largest linear memory a 32-bit guest can address.
	MaxMemoryLimitPages = 65536
	pageSize            = 64 * 1024
)

// EngineConfig configures an Engine. Component-model semantics are always on.
type EngineConfig struct {
	// MemoryLimitPages bounds each instance's linear memory in 64KiB pages.
	// 0 means the engine default.
	MemoryLimitPages uint32 `validate:"lte=65536"`

	// Asyncify lets host capabilities suspend the guest.
	Asyncify bool
}

// Engine validates, compiles and instantiates plugin components.
type Engine struct {
	wazero    *engine.WazeroEngine
	cfg       EngineConfig
	closeOnce sync.Once
	closeErr  error
}

// NewEngine creates an engine. A failure here is startup-fatal.
func NewEngine(ctx context.Context, cfg EngineConfig) (*Engine, error) {
	if cfg.MemoryLimitPages > MaxMemoryLimitPages {
		return nil, errors.New(errors.PhaseStartup, errors.KindEngine).
			Detail("memory limit %d pages exceeds %d", cfg.MemoryLimitPages, MaxMemoryLimitPages).
			Build()
	}

	w, err := engine.NewWazeroEngineWithConfig(ctx, &engine.Config{
		MemoryLimitPages: cfg.MemoryLimitPages,
	})
	if err != nil {
		return nil, errors.Engine(err)
	}

	Logger().Debug("engine created",
		zap.Uint32("memory_limit_pages", cfg.MemoryLimitPages),
		zap.Uint64("memory_limit_bytes", uint64(cfg.MemoryLimitPages)*pageSize),
		zap.Bool("asyncify", cfg.Asyncify))

	return &Engine{wazero: w, cfg: cfg}, nil
}

var (
	defaultEngine    *Engine
	defaultEngineErr error
	defaultOnce      sync.Once
)

// DefaultEngine returns the process-wide engine, creating it with the
// default configuration on first use.
func DefaultEngine(ctx context.Context) (*Engine, error) {
	defaultOnce.Do(func() {
		defaultEngine, defaultEngineErr = NewEngine(ctx, EngineConfig{})
	})
	return defaultEngine, defaultEngineErr
}

// Config returns the configuration the engine was created with.
func (e *Engine) Config() EngineConfig {
	return e.cfg
}

// Close releases the engine. Instances must be closed first.
func (e *Engine) Close(ctx context.Context) error {
	e.closeOnce.Do(func() {
		e.closeErr = e.wazero.Close(ctx)
	})
	return e.closeErr
}
