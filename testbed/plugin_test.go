package testbed

import (
	"bytes"
	"context"
	"errors"
	"os"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/wippyai/wasm-plugin-host/bridge"
	"github.com/wippyai/wasm-plugin-host/capability"
	hosterrors "github.com/wippyai/wasm-plugin-host/errors"
	"github.com/wippyai/wasm-plugin-host/host"
	"github.com/wippyai/wasm-plugin-host/session"
)

// Fixtures are components built from the .wat files next to them:
//
//	wasm-tools component embed wit --world plugin plugin_example.wat -o /tmp/embed.wasm
//	wasm-tools component new /tmp/embed.wasm -o plugin_example.wasm
//
// plugin_exit.wasm uses --world plugin-exit. PLUGIN_WASM points the
// plugin_example tests at another build, such as the Rust example's.
const pluginEnv = "PLUGIN_WASM"

// RecordingLogger keeps every capability call in order.
type RecordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *RecordingLogger) LogInfo(_ context.Context, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, capability.InfoPrefix+" "+msg)
}

func (l *RecordingLogger) LogError(_ context.Context, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, capability.ErrorPrefix+" "+msg)
}

func (l *RecordingLogger) Take() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.lines
	l.lines = nil
	return out
}

func pluginPath(t *testing.T) string {
	t.Helper()
	if p := os.Getenv(pluginEnv); p != "" {
		return p
	}
	return fixture(t, "plugin_example.wasm")
}

func fixture(t *testing.T, name string) string {
	t.Helper()
	if _, err := os.Stat(name); err != nil {
		t.Skipf("%s not found: %v", name, err)
	}
	return name
}

type harness struct {
	logs *RecordingLogger
	inst *host.Instance
	ac   *bridge.Autocompleter
}

func start(t *testing.T) *harness {
	t.Helper()
	return startPath(t, pluginPath(t))
}

func startPath(t *testing.T, path string) *harness {
	t.Helper()
	ctx := context.Background()

	e, err := host.NewEngine(ctx, host.EngineConfig{})
	if err != nil {
		t.Fatalf("create engine: %v", err)
	}
	t.Cleanup(func() { _ = e.Close(ctx) })

	l := host.NewLinker(e)
	if err := l.RegisterCapability(func(s *host.Store) capability.Logger { return s.Logger }); err != nil {
		t.Fatalf("register capability: %v", err)
	}
	if err := l.RegisterAmbient(); err != nil {
		t.Fatalf("register ambient: %v", err)
	}

	comp, err := host.LoadComponent(ctx, e, path)
	if err != nil {
		t.Fatalf("load component: %v", err)
	}

	logs := &RecordingLogger{}
	store := host.NewStore(logs)
	t.Cleanup(store.Close)

	inst, err := host.Instantiate(ctx, comp, l, store)
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}
	t.Cleanup(func() { _ = inst.Close(ctx) })

	return &harness{logs: logs, inst: inst, ac: bridge.New(inst)}
}

func TestPlugin_Completions(t *testing.T) {
	h := start(t)
	ctx := context.Background()

	tests := []struct {
		input string
		want  []string
	}{
		{"wa", []string{"Wasm", "WASI", "WasmTime", "Software"}},
		{"WA", []string{"Wasm", "WASI", "WasmTime", "Software"}},
		{"rust", []string{"Rust"}},
		{"comp", []string{"Components"}},
		{"", []string{"Wasm", "WebAssembly", "WASI", "WasmTime", "Components", "Rust", "Software", "Plugin"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := h.ac.GenerateCompletions(ctx, tt.input)
			if err != nil {
				t.Fatalf("generate completions: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("GenerateCompletions(%q) = %v, want %v", tt.input, got, tt.want)
			}

			logs := h.logs.Take()
			if len(logs) != 1 || logs[0] != "[INFO] Checking 8 strings" {
				t.Errorf("logs = %v, want one info line", logs)
			}
		})
	}
}

func TestPlugin_NoMatches(t *testing.T) {
	h := start(t)

	got, err := h.ac.GenerateCompletions(context.Background(), "xyz")
	if err != nil {
		t.Fatalf("generate completions: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %v, want no suggestions", got)
	}

	want := []string{"[INFO] Checking 8 strings", "[ERR!] No matches found!"}
	if logs := h.logs.Take(); !reflect.DeepEqual(logs, want) {
		t.Errorf("logs = %v, want %v", logs, want)
	}
}

func TestPlugin_Deterministic(t *testing.T) {
	h := start(t)
	ctx := context.Background()

	first, err := h.ac.GenerateCompletions(ctx, "s")
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := h.ac.GenerateCompletions(ctx, "s")
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("call %d = %v, want %v", i, again, first)
		}
	}
}

func TestPlugin_MissingCapability(t *testing.T) {
	ctx := context.Background()
	path := pluginPath(t)

	e, err := host.NewEngine(ctx, host.EngineConfig{})
	if err != nil {
		t.Fatalf("create engine: %v", err)
	}
	defer e.Close(ctx)

	// ambient WASI only, no logger
	l := host.NewLinker(e)
	if err := l.RegisterAmbient(); err != nil {
		t.Fatalf("register ambient: %v", err)
	}

	comp, err := host.LoadComponent(ctx, e, path)
	if err != nil {
		t.Fatalf("load component: %v", err)
	}

	store := host.NewStore(&RecordingLogger{})
	defer store.Close()

	_, err = host.Instantiate(ctx, comp, l, store)
	if err == nil {
		t.Fatal("expected instantiation to fail without the logger capability")
	}
	var missing *hosterrors.MissingImportsError
	if !errors.As(err, &missing) {
		t.Fatalf("error = %T %v, want MissingImportsError", err, err)
	}
	if phase, _ := hosterrors.PhaseOf(err); phase != hosterrors.PhaseStartup {
		t.Errorf("phase = %v, want startup", phase)
	}
}

type scriptedKeys []byte

func (k *scriptedKeys) ReadKey() (byte, error) {
	if len(*k) == 0 {
		return 0, hosterrors.Read(errors.New("script exhausted"))
	}
	b := (*k)[0]
	*k = (*k)[1:]
	return b, nil
}

func TestPlugin_Session(t *testing.T) {
	h := start(t)

	keys := scriptedKeys("wa\x7f\x7f\x7f\x1b")
	var out bytes.Buffer
	if err := session.New(&keys, &out, h.ac).Run(context.Background()); err != nil {
		t.Fatalf("session: %v", err)
	}

	want := "\x1b[2J" + session.Render([]string{"Wasm", "WASI", "WasmTime", "Software"})
	if !bytes.Contains(out.Bytes(), []byte(want)) {
		t.Errorf("output missing %q:\n%s", want, out.String())
	}
	if n := bytes.Count(out.Bytes(), []byte(session.BannerHeader)); n != 3 {
		t.Errorf("rendered %d banners, want 3", n)
	}
	if !bytes.HasSuffix(out.Bytes(), []byte("Input: \n")) {
		t.Errorf("session should end on an empty prompt:\n%s", out.String())
	}
}

func isTrap(err error) bool {
	return errors.Is(err, &hosterrors.Error{Phase: hosterrors.PhaseCall, Kind: hosterrors.KindTrap})
}

func TestPluginExit_FailsCall(t *testing.T) {
	h := startPath(t, fixture(t, "plugin_exit.wasm"))
	ctx := context.Background()

	got, err := h.ac.GenerateCompletions(ctx, "wa")
	if err != nil {
		t.Fatalf("generate completions before exit: %v", err)
	}
	if want := []string{"Wasm", "WASI", "WasmTime", "Software"}; !reflect.DeepEqual(got, want) {
		t.Errorf("GenerateCompletions(%q) = %v, want %v", "wa", got, want)
	}

	_, err = h.ac.GenerateCompletions(ctx, "9")
	if !isTrap(err) {
		t.Fatalf("exit call error = %v, want call trap", err)
	}
	if !strings.Contains(err.Error(), "guest exited with code 1") {
		t.Errorf("error %q should carry the guest's exit status", err)
	}

	_, err = h.ac.GenerateCompletions(ctx, "wa")
	if !isTrap(err) || !strings.Contains(err.Error(), "guest exited with code 1") {
		t.Errorf("call after exit = %v, want the same trap", err)
	}
}

func TestPluginExit_EndsSession(t *testing.T) {
	h := startPath(t, fixture(t, "plugin_exit.wasm"))

	keys := scriptedKeys("w9a")
	var out bytes.Buffer
	err := session.New(&keys, &out, h.ac).Run(context.Background())
	if !isTrap(err) {
		t.Fatalf("session error = %v, want call trap", err)
	}
	if n := bytes.Count(out.Bytes(), []byte(session.BannerHeader)); n != 1 {
		t.Errorf("rendered %d banners, want 1", n)
	}
	if len(keys) != 1 {
		t.Errorf("session read past the failing key, %d keys left", len(keys))
	}
}

func TestPluginExit_NeedsAmbient(t *testing.T) {
	ctx := context.Background()
	path := fixture(t, "plugin_exit.wasm")

	e, err := host.NewEngine(ctx, host.EngineConfig{})
	if err != nil {
		t.Fatalf("create engine: %v", err)
	}
	defer e.Close(ctx)

	l := host.NewLinker(e)
	if err := l.RegisterCapability(func(s *host.Store) capability.Logger { return s.Logger }); err != nil {
		t.Fatalf("register capability: %v", err)
	}

	comp, err := host.LoadComponent(ctx, e, path)
	if err != nil {
		t.Fatalf("load component: %v", err)
	}

	store := host.NewStore(&RecordingLogger{})
	defer store.Close()

	_, err = host.Instantiate(ctx, comp, l, store)
	var missing *hosterrors.MissingImportsError
	if !errors.As(err, &missing) {
		t.Fatalf("error = %v, want MissingImportsError", err)
	}
	if !strings.Contains(err.Error(), "wasi:cli/exit@0.2.0") {
		t.Errorf("error %q should name the exit import", err)
	}
}
