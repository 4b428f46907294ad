// Package contract holds the typed interface a plugin is compiled against.
//
// The plugin world exports an autocompleter interface and imports a logger
// interface:
//
//	package simple-component:plugin;
//
//	interface autocompleter {
//	    generate-completions: func(input: string) -> list<string>;
//	}
//
//	interface logger {
//	    log-info: func(message: string);
//	    log-error: func(message: string);
//	}
//
// The WIT text is embedded and parsed once. Verify compares a decoded
// component's canonical lifts and lowers against it before instantiation.
package contract
