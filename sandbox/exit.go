package sandbox

import (
	"context"

	"github.com/wippyai/wasm-runtime/wasi/preview2/cli"
)

// ExitHost records a guest's wasi:cli/exit on its Context before handing
// it to the runtime's exit host, which closes the guest module. The host
// process keeps running.
type ExitHost struct {
	*cli.ExitHost
	ctx *Context
}

func newExitHost(c *Context) *ExitHost {
	return &ExitHost{ExitHost: cli.NewExitHost(), ctx: c}
}

// Exit takes the lowered result discriminant: 0 for ok, 1 for err.
func (h *ExitHost) Exit(ctx context.Context, status uint32) {
	h.ctx.recordExit(status)
	h.ExitHost.Exit(ctx, status)
}
