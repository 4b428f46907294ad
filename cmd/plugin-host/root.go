package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/wasm-plugin-host/bridge"
	"github.com/wippyai/wasm-plugin-host/capability"
	"github.com/wippyai/wasm-plugin-host/completion"
	"github.com/wippyai/wasm-plugin-host/errors"
	"github.com/wippyai/wasm-plugin-host/host"
	"github.com/wippyai/wasm-plugin-host/session"
	"github.com/wippyai/wasm-plugin-host/terminal"
)

func newRootCmd() *cobra.Command {
	cfg := host.DefaultConfig()
	var builtin bool

	cmd := &cobra.Command{
		Use:   "plugin-host",
		Short: "Interactive autocompletion backed by a WebAssembly component",
		Long: `plugin-host loads a WebAssembly component implementing the
simple-component:plugin world and completes what you type with it.

Each keystroke updates the input buffer and asks the plugin for
suggestions. Letters, digits 1-9 and space are appended, backspace
removes the last character, and Escape exits.

The plugin runs sandboxed: no environment, no arguments, no preopened
directories and no network. Its only way out is the logger capability.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, cfg, builtin)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&cfg.PluginPath, "plugin", "p", cfg.PluginPath, "Path to the plugin component")
	flags.Uint32Var(&cfg.Engine.MemoryLimitPages, "memory-limit-pages", 0, "Guest memory limit in 64 KiB pages (0: engine default)")
	flags.BoolVar(&cfg.Engine.Asyncify, "asyncify", false, "Compile the guest with asyncify")
	flags.BoolVar(&cfg.TUI, "tui", false, "Run the full-screen interface")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Host log level: debug, info, warn, error")
	flags.BoolVar(&builtin, "builtin", false, "Use the in-process reference completer instead of a plugin")

	return cmd
}

func run(cmd *cobra.Command, cfg host.Config, builtin bool) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := newLogger(cmd.ErrOrStderr(), cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	host.SetLogger(log)
	bridge.SetLogger(log.Named("bridge"))
	session.SetLogger(log.Named("session"))

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// the full-screen interface owns stdout, so guest logs are collected
	// and shown inside it
	var logs *logBuffer
	var console *capability.Console
	if cfg.TUI {
		logs = &logBuffer{}
		console = capability.NewConsole(logs)
	} else {
		console = capability.NewConsole(cmd.OutOrStdout())
	}

	var completer bridge.Completer
	name := "builtin"
	if builtin {
		completer = completion.New(nil, console)
	} else {
		plugin, err := openPlugin(ctx, cfg, console)
		if err != nil {
			return err
		}
		defer plugin.close(ctx)
		completer = bridge.New(plugin.inst)
		name = plugin.comp.Name()
	}

	if cfg.TUI {
		return runTUI(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), name, completer, logs)
	}
	keys := terminal.NewKeyboard(cmd.InOrStdin())
	return session.New(keys, cmd.OutOrStdout(), completer).Run(ctx)
}

type plugin struct {
	engine *host.Engine
	owned  bool
	comp   *host.Component
	store  *host.Store
	inst   *host.Instance
}

// openPlugin runs startup: engine, linker, component load and
// instantiation. Anything it fails on is fatal.
func openPlugin(ctx context.Context, cfg host.Config, console capability.Logger) (*plugin, error) {
	p := &plugin{}

	var err error
	if cfg.Engine == (host.EngineConfig{}) {
		p.engine, err = host.DefaultEngine(ctx)
	} else {
		p.engine, err = host.NewEngine(ctx, cfg.Engine)
		p.owned = true
	}
	if err != nil {
		return nil, err
	}

	l := host.NewLinker(p.engine)
	if err := l.RegisterCapability(func(s *host.Store) capability.Logger { return s.Logger }); err != nil {
		p.close(ctx)
		return nil, err
	}
	if err := l.RegisterAmbient(); err != nil {
		p.close(ctx)
		return nil, err
	}

	p.comp, err = host.LoadComponent(ctx, p.engine, cfg.PluginPath)
	if err != nil {
		p.close(ctx)
		return nil, err
	}

	p.store = host.NewStore(console)
	p.inst, err = host.Instantiate(ctx, p.comp, l, p.store)
	if err != nil {
		p.close(ctx)
		return nil, err
	}
	return p, nil
}

func (p *plugin) close(ctx context.Context) {
	if p.inst != nil {
		_ = p.inst.Close(ctx)
	}
	if p.store != nil {
		p.store.Close()
	}
	if p.owned && p.engine != nil {
		_ = p.engine.Close(ctx)
	}
}

func newLogger(w io.Writer, level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, errors.InvalidConfig("log level "+level, err)
	}
	enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	core := zapcore.NewCore(enc, zapcore.AddSync(w), lvl)
	return zap.New(core), nil
}
