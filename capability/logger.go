package capability

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Logger is the capability behind the plugin's logger import.
// Implementations must not fail.
type Logger interface {
	LogInfo(ctx context.Context, message string)
	LogError(ctx context.Context, message string)
}

const (
	InfoPrefix  = "[INFO]"
	ErrorPrefix = "[ERR!]"
)

// Console writes log lines to a writer, styling the prefixes when the
// writer is a terminal.
type Console struct {
	mu   sync.Mutex
	w    io.Writer
	info string
	err  string
}

var _ Logger = (*Console)(nil)

// NewConsole creates a Console writing to w. A nil w means os.Stdout.
func NewConsole(w io.Writer) *Console {
	if w == nil {
		w = os.Stdout
	}
	c := &Console{w: w, info: InfoPrefix, err: ErrorPrefix}
	if isTerminal(w) {
		r := lipgloss.NewRenderer(w)
		c.info = r.NewStyle().Bold(true).Foreground(lipgloss.Color("#87CEEB")).Render(InfoPrefix)
		c.err = r.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B")).Render(ErrorPrefix)
	}
	return c
}

func (c *Console) LogInfo(_ context.Context, message string) {
	c.write(c.info, message)
}

func (c *Console) LogError(_ context.Context, message string) {
	c.write(c.err, message)
}

// Write errors are dropped: logging is infallible toward the guest.
func (c *Console) write(prefix, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = io.WriteString(c.w, prefix+" "+message+"\n")
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
