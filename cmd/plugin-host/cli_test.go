package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/wasm-plugin-host/capability"
	"github.com/wippyai/wasm-plugin-host/completion"
	hosterrors "github.com/wippyai/wasm-plugin-host/errors"
	"github.com/wippyai/wasm-plugin-host/host"
	"github.com/wippyai/wasm-plugin-host/session"
)

func executeCommand(root *cobra.Command, stdin string, args ...string) (string, error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func isKind(err error, phase hosterrors.Phase, kind hosterrors.Kind) bool {
	return errors.Is(err, &hosterrors.Error{Phase: phase, Kind: kind})
}

func TestCLIHelp(t *testing.T) {
	output, err := executeCommand(newRootCmd(), "", "--help")
	require.NoError(t, err)

	for _, phrase := range []string{
		"plugin-host",
		"simple-component:plugin",
		"--plugin",
		"--memory-limit-pages",
		"--asyncify",
		"--tui",
		"--log-level",
		"--builtin",
	} {
		assert.Contains(t, output, phrase)
	}
}

func TestCLIFlagDefaults(t *testing.T) {
	cmd := newRootCmd()
	path, err := cmd.Flags().GetString("plugin")
	require.NoError(t, err)
	assert.Equal(t, host.DefaultPluginPath, path)

	level, err := cmd.Flags().GetString("log-level")
	require.NoError(t, err)
	assert.Equal(t, "warn", level)

	pages, err := cmd.Flags().GetUint32("memory-limit-pages")
	require.NoError(t, err)
	assert.Zero(t, pages)
}

func TestCLIRejectsArgs(t *testing.T) {
	_, err := executeCommand(newRootCmd(), "", "extra")
	assert.Error(t, err)
}

func TestCLIInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"log level", []string{"--log-level", "verbose"}},
		{"empty plugin path", []string{"--plugin", ""}},
		{"memory limit", []string{"--memory-limit-pages", "70000"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := executeCommand(newRootCmd(), "", tt.args...)
			require.Error(t, err)
			assert.True(t, isKind(err, hosterrors.PhaseConfig, hosterrors.KindInvalidConfig), err.Error())
		})
	}
}

func TestCLIMissingPlugin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plugin_example.wasm")

	output, err := executeCommand(newRootCmd(), "wa\x1b", "--plugin", path)
	require.Error(t, err)
	assert.True(t, isKind(err, hosterrors.PhaseStartup, hosterrors.KindNotFound), err.Error())
	assert.Contains(t, err.Error(), path)
	assert.NotContains(t, output, session.Prompt)
}

func TestCLIBuiltinSession(t *testing.T) {
	output, err := executeCommand(newRootCmd(), "wa\x1b", "--builtin")
	require.NoError(t, err)

	assert.Contains(t, output, "Input: w\n")
	assert.Contains(t, output,
		"[INFO] Checking 8 strings\n\nAUTOCOMPLETIONS =====================\nWasm\nWASI\nWasmTime\nSoftware\n=====================================\n")
	assert.True(t, strings.HasSuffix(output, "Input: wa\n"))
}

func TestCLIBuiltinEndOfInputIsFatal(t *testing.T) {
	_, err := executeCommand(newRootCmd(), "w", "--builtin")
	require.Error(t, err)
	assert.True(t, isKind(err, hosterrors.PhaseInput, hosterrors.KindRead), err.Error())
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log, err := newLogger(&buf, "info")
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("shown")
	require.NoError(t, log.Sync())

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	_, err = newLogger(&buf, "loud")
	assert.True(t, isKind(err, hosterrors.PhaseConfig, hosterrors.KindInvalidConfig))
}

func newTestModel() (*tuiModel, *logBuffer) {
	logs := &logBuffer{}
	comp := completion.New(nil, capability.NewConsole(logs))
	return newTUIModel(context.Background(), "builtin", comp, logs), logs
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestTUI_CompletesOnKey(t *testing.T) {
	m, _ := newTestModel()

	_, cmd := m.Update(runes("w"))
	require.NotNil(t, cmd)
	assert.Equal(t, session.Invoking, m.machine.State())

	_, next := m.Update(cmd())
	assert.Nil(t, next)
	assert.Equal(t, session.Reading, m.machine.State())
	assert.Equal(t, []string{"Wasm", "WebAssembly", "WASI", "WasmTime", "Software"}, m.suggestions)
	assert.Equal(t, "[INFO] Checking 8 strings\n", m.guestLogs)

	view := m.View()
	assert.Contains(t, view, "WasmTime")
	assert.Contains(t, view, session.BannerHeader)
}

func TestTUI_QueuesKeysWhileInvoking(t *testing.T) {
	m, _ := newTestModel()

	_, first := m.Update(runes("w"))
	require.NotNil(t, first)
	_, queued := m.Update(runes("a"))
	assert.Nil(t, queued)
	assert.Equal(t, "w", m.machine.Buffer())

	_, second := m.Update(first())
	require.NotNil(t, second)
	assert.Equal(t, "wa", m.machine.Buffer())

	m.Update(second())
	assert.Equal(t, []string{"Wasm", "WASI", "WasmTime", "Software"}, m.suggestions)
}

func TestTUI_BackspaceToEmptyClears(t *testing.T) {
	m, _ := newTestModel()

	_, cmd := m.Update(runes("r"))
	m.Update(cmd())
	require.True(t, m.shown)

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	assert.Nil(t, cmd)
	assert.Equal(t, "", m.machine.Buffer())
	assert.False(t, m.shown)
	assert.NotContains(t, m.View(), session.BannerHeader)
}

func TestTUI_KeyMapping(t *testing.T) {
	m, _ := newTestModel()

	assert.Equal(t, session.KeyEscape, m.keyByte(tea.KeyMsg{Type: tea.KeyEsc}))
	assert.Equal(t, session.KeyDelete, m.keyByte(tea.KeyMsg{Type: tea.KeyBackspace}))
	assert.Equal(t, session.KeyBackspace, m.keyByte(tea.KeyMsg{Type: tea.KeyCtrlH}))
	assert.Equal(t, byte(' '), m.keyByte(tea.KeyMsg{Type: tea.KeySpace}))
	assert.Equal(t, byte('Q'), m.keyByte(runes("Q")))
	assert.Equal(t, byte(0), m.keyByte(runes("é")))
	assert.Equal(t, byte(0), m.keyByte(tea.KeyMsg{Type: tea.KeyUp}))
}

func TestTUI_EscapeQuits(t *testing.T) {
	m, _ := newTestModel()

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Equal(t, session.Terminated, m.machine.State())
	assert.NoError(t, m.err)
}

type failingCompleter struct{ err error }

func (f failingCompleter) GenerateCompletions(context.Context, string) ([]string, error) {
	return nil, f.err
}

func TestTUI_CompletionFailureQuits(t *testing.T) {
	trap := hosterrors.Trap("generate-completions", errors.New("unreachable"))
	m := newTUIModel(context.Background(), "broken", failingCompleter{err: trap}, nil)

	_, cmd := m.Update(runes("w"))
	require.NotNil(t, cmd)
	_, quit := m.Update(cmd())
	require.NotNil(t, quit)
	assert.IsType(t, tea.QuitMsg{}, quit())
	assert.ErrorIs(t, m.err, trap)
	assert.Contains(t, m.View(), "Error:")
}
