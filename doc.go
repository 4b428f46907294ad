// Package pluginhost runs WebAssembly component plugins that complete
// interactive input.
//
// A plugin is a component targeting the simple-component:plugin world: it
// exports autocompleter.generate-completions and imports a two-function
// logger. The host loads it, checks it against that contract, grants it
// the logger and a sandboxed WASI environment, and calls it once per
// keystroke.
//
// # Architecture Overview
//
//	pluginhost/
//	├── contract/     The plugin world in WIT and conformance checks
//	├── capability/   The logger capability granted to plugins
//	├── sandbox/      Empty WASI preview2 context plugins run in
//	├── host/         Engine, linker, component loading and instances
//	├── bridge/       Typed generate-completions calls over an instance
//	├── completion/   In-process reference completer
//	├── session/      Keystroke state machine and render loop
//	├── terminal/     Raw single-key input and screen control
//	├── errors/       Structured errors with phase and kind
//	└── cmd/plugin-host/  Command line entry point
//
// Parsing, canonical ABI lifting and lowering, and WASI host
// implementations come from github.com/wippyai/wasm-runtime on top of
// wazero.
//
// # Quick Start
//
//	e, err := host.DefaultEngine(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	l := host.NewLinker(e)
//	_ = l.RegisterCapability(func(s *host.Store) capability.Logger { return s.Logger })
//	_ = l.RegisterAmbient()
//
//	comp, err := host.LoadComponent(ctx, e, "plugin_example.wasm")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := host.NewStore(capability.NewConsole(os.Stdout))
//	defer store.Close()
//
//	inst, err := host.Instantiate(ctx, comp, l, store)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer inst.Close(ctx)
//
//	out, err := bridge.New(inst).GenerateCompletions(ctx, "wa")
//	fmt.Println(out) // [Wasm WASI WasmTime Software]
//
// # Failure Model
//
// Every error the host produces is an *errors.Error carrying a Phase.
// Startup and contract failures stop the program before the first prompt.
// Call failures (traps, result type mismatches) and input failures stop
// the session. A plugin that finds no matches is not a failure: it logs
// an error line and returns an empty list.
package pluginhost
