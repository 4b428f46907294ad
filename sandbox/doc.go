// Package sandbox builds the per-store execution context a plugin runs in.
//
// A Context grants no ambient authority: no environment variables, no
// arguments, no preopened directories and no network. Guest stdout and
// stderr are captured in memory and drained by the host after each call.
// Exit requests from the guest trap the call instead of terminating the
// host process.
package sandbox
