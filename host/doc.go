// Package host loads a plugin component and runs it in a sandbox.
//
// # Quick Start
//
//	ctx := context.Background()
//	eng, err := host.DefaultEngine(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	l := host.NewLinker(eng)
//	_ = l.RegisterCapability(func(s *host.Store) capability.Logger { return s.Logger })
//	_ = l.RegisterAmbient()
//
//	comp, err := host.LoadComponent(ctx, eng, host.DefaultPluginPath)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := host.NewStore(capability.NewConsole(os.Stdout))
//	inst, err := host.Instantiate(ctx, comp, l, store)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer inst.Close(ctx)
//
// # Failure Model
//
// Every error out of this package is fatal to the host. Loading reports
// missing or unreadable files as not_found, binaries that are not valid
// components as malformed, and components that disagree with the plugin
// contract as contract_mismatch. Instantiation rejects guests importing
// anything the linker does not provide with a MissingImportsError.
//
// # Sandbox
//
// RegisterAmbient offers the WASI preview2 command world (io, clocks,
// random, cli, filesystem) backed by an empty execution context. Sockets
// and HTTP are never offered.
package host
