package sandbox

import (
	"bytes"
	"sync"

	"github.com/wippyai/wasm-runtime/runtime"
	"github.com/wippyai/wasm-runtime/wasi/preview2"
	"github.com/wippyai/wasm-runtime/wasi/preview2/cli"
	"github.com/wippyai/wasm-runtime/wasi/preview2/clocks"
	"github.com/wippyai/wasm-runtime/wasi/preview2/filesystem"
	"github.com/wippyai/wasm-runtime/wasi/preview2/io"
	"github.com/wippyai/wasm-runtime/wasi/preview2/random"
)

// Context is the execution context of one store.
type Context struct {
	wasi *preview2.WASI

	mu        sync.Mutex
	stdoutBuf bytes.Buffer
	stderrBuf bytes.Buffer
	stdout    *preview2.OutputStreamResource
	stderr    *preview2.OutputStreamResource
	closed    bool

	exited   bool
	exitCode uint32
}

// New creates an empty execution context.
func New() *Context {
	c := &Context{
		wasi: preview2.New().
			WithEnv(map[string]string{}).
			WithArgs(nil).
			WithPreopens(map[string]string{}).
			WithStdin(nil),
	}
	c.stdout = preview2.NewOutputStreamResource(&c.stdoutBuf)
	c.stderr = preview2.NewOutputStreamResource(&c.stderrBuf)
	return c
}

// Env returns the environment visible to the guest. Always empty.
func (c *Context) Env() map[string]string {
	return c.wasi.Env()
}

// Args returns the arguments visible to the guest. Always empty.
func (c *Context) Args() []string {
	return c.wasi.Args()
}

// Preopens returns the directories visible to the guest. Always empty.
func (c *Context) Preopens() map[string]string {
	return c.wasi.Preopens()
}

// Hosts returns the WASI preview2 command-world shims backed by this
// context. Sockets and HTTP are not offered.
func (c *Context) Hosts() []runtime.Host {
	res := c.wasi.Resources()
	ioHost := io.NewHost(res)

	return []runtime.Host{
		ioHost.Error,
		ioHost.Poll,
		ioHost.Streams,
		clocks.NewMonotonicClockHost(res),
		clocks.NewWallClockHost(),
		random.NewSecureRandomHost(),
		random.NewInsecureRandomHost(),
		random.NewInsecureSeedHost(),
		cli.NewEnvironmentHost(c.wasi.Env(), c.wasi.Args(), c.wasi.Cwd()),
		newExitHost(c),
		cli.NewStdioHost(res, c.wasi.Stdin(), c.stdout, c.stderr),
		cli.NewStdoutHost(res, c.stdout),
		cli.NewStderrHost(res, c.stderr),
		cli.NewTerminalStdinHost(),
		cli.NewTerminalStdoutHost(),
		cli.NewTerminalStderrHost(),
		filesystem.NewTypesHost(res),
		filesystem.NewPreopensHost(res, c.wasi.Preopens()),
	}
}

// Drain returns and clears the bytes the guest wrote to stdout and stderr
// since the previous drain.
func (c *Context) Drain() (stdout, stderr []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return take(&c.stdoutBuf), take(&c.stderrBuf)
}

func take(b *bytes.Buffer) []byte {
	if b.Len() == 0 {
		return nil
	}
	out := bytes.Clone(b.Bytes())
	b.Reset()
	return out
}

func (c *Context) recordExit(status uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.exited {
		return
	}
	c.exited = true
	c.exitCode = status
}

// Exited reports whether the guest called wasi:cli/exit, and the status it
// passed first. The runtime closes the guest module on exit but cannot
// unwind it, so the guest may run on until its export returns.
func (c *Context) Exited() (status uint32, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exitCode, c.exited
}

// Close drops every resource the guest still holds.
func (c *Context) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.wasi.Close()
}
