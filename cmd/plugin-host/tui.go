package main

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/wasm-plugin-host/bridge"
	"github.com/wippyai/wasm-plugin-host/session"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	bannerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	suggestionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	logStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))
)

// logBuffer collects guest log lines between renders.
type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *logBuffer) drain() string {
	if b == nil {
		return ""
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.buf.String()
	b.buf.Reset()
	return s
}

type keyMap struct {
	Quit      key.Binding
	Interrupt key.Binding
	Erase     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "quit")),
		Interrupt: key.NewBinding(key.WithKeys("ctrl+c")),
		Erase:     key.NewBinding(key.WithKeys("backspace", "ctrl+h"), key.WithHelp("backspace", "erase")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Erase, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

type completedMsg struct {
	suggestions []string
	logs        string
	err         error
}

// tuiModel drives a session.Machine from bubbletea key events. Keys
// arriving while a completion runs are queued and applied in order.
type tuiModel struct {
	ctx       context.Context
	name      string
	completer bridge.Completer
	logs      *logBuffer
	machine   *session.Machine
	keys      keyMap
	help      help.Model

	pending     []byte
	shown       bool
	suggestions []string
	guestLogs   string
	err         error
}

func newTUIModel(ctx context.Context, name string, completer bridge.Completer, logs *logBuffer) *tuiModel {
	return &tuiModel{
		ctx:       ctx,
		name:      name,
		completer: completer,
		logs:      logs,
		machine:   session.NewMachine(),
		keys:      defaultKeyMap(),
		help:      help.New(),
	}
}

func runTUI(ctx context.Context, in io.Reader, out io.Writer, name string, completer bridge.Completer, logs *logBuffer) error {
	m := newTUIModel(ctx, name, completer, logs)
	p := tea.NewProgram(m, tea.WithContext(ctx), tea.WithInput(in), tea.WithOutput(out))
	if _, err := p.Run(); err != nil {
		return err
	}
	return m.err
}

func (m *tuiModel) Init() tea.Cmd {
	return nil
}

// keyByte maps a key event to the raw byte the line session would read.
// Keys without a single-byte form map to 0, which the machine ignores.
func (m *tuiModel) keyByte(msg tea.KeyMsg) byte {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return session.KeyEscape
	case msg.Type == tea.KeyCtrlH:
		return session.KeyBackspace
	case key.Matches(msg, m.keys.Erase):
		return session.KeyDelete
	case msg.Type == tea.KeySpace:
		return ' '
	case msg.Type == tea.KeyRunes && !msg.Alt && len(msg.Runes) == 1 && msg.Runes[0] < 0x80:
		return byte(msg.Runes[0])
	}
	return 0
}

func (m *tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Interrupt) {
			return m, tea.Quit
		}
		k := m.keyByte(msg)
		if m.machine.State() == session.Invoking {
			m.pending = append(m.pending, k)
			return m, nil
		}
		return m, m.apply(k)

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width

	case completedMsg:
		m.machine.Done()
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		m.shown = true
		m.suggestions = msg.suggestions
		m.guestLogs = msg.logs
		return m, m.flush()
	}
	return m, nil
}

func (m *tuiModel) apply(k byte) tea.Cmd {
	step, err := m.machine.Apply(k)
	if err != nil {
		m.err = err
		return tea.Quit
	}
	if step.Terminated {
		return tea.Quit
	}

	m.shown = false
	m.suggestions = nil
	m.guestLogs = ""
	if !step.Invoke {
		return nil
	}
	return m.complete(step.Buffer)
}

// flush applies queued keys until one starts a completion or ends the
// session.
func (m *tuiModel) flush() tea.Cmd {
	for len(m.pending) > 0 {
		k := m.pending[0]
		m.pending = m.pending[1:]
		if cmd := m.apply(k); cmd != nil {
			return cmd
		}
	}
	return nil
}

func (m *tuiModel) complete(input string) tea.Cmd {
	ctx, completer, logs := m.ctx, m.completer, m.logs
	return func() tea.Msg {
		suggestions, err := completer.GenerateCompletions(ctx, input)
		return completedMsg{suggestions: suggestions, logs: logs.drain(), err: err}
	}
}

func (m *tuiModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Plugin Host"))
	b.WriteString(" ")
	b.WriteString(m.name)
	b.WriteString("\n\n")

	b.WriteString(promptStyle.Render(session.Prompt))
	b.WriteString(m.machine.Buffer())
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render("Error: " + m.err.Error()))
		b.WriteString("\n")
		return b.String()
	}

	if m.shown {
		if m.guestLogs != "" {
			b.WriteString(logStyle.Render(strings.TrimRight(m.guestLogs, "\n")))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(bannerStyle.Render(session.BannerHeader))
		b.WriteString("\n")
		for _, s := range m.suggestions {
			b.WriteString(suggestionStyle.Render(s))
			b.WriteString("\n")
		}
		b.WriteString(bannerStyle.Render(session.BannerFooter))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}
