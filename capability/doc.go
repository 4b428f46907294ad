// Package capability defines the host services a plugin may import and
// their console implementation.
//
// Logger mirrors the logger interface of the plugin world. Console writes
// one line per call, "[INFO] <message>" or "[ERR!] <message>", synchronously,
// so lines logged during an invocation appear before it returns.
package capability
