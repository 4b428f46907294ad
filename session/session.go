// Package session runs the interactive completion loop: prompt, read one
// key, update the buffer, clear the screen, and for a non-empty buffer
// complete it through the plugin and print the suggestions.
package session

import (
	"context"
	stderrors "errors"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-plugin-host/bridge"
	"github.com/wippyai/wasm-plugin-host/errors"
	"github.com/wippyai/wasm-plugin-host/terminal"
)

const (
	BannerHeader = "AUTOCOMPLETIONS ====================="
	BannerFooter = "====================================="
	Prompt       = "Input: "
)

// KeyReader yields one raw key per call.
type KeyReader interface {
	ReadKey() (byte, error)
}

// Session drives a Machine from a KeyReader and renders to a writer.
type Session struct {
	keys      KeyReader
	out       io.Writer
	completer bridge.Completer
	machine   *Machine
}

// New creates a session. The completer is called at most once per key and
// never concurrently.
func New(keys KeyReader, out io.Writer, completer bridge.Completer) *Session {
	return &Session{
		keys:      keys,
		out:       out,
		completer: completer,
		machine:   NewMachine(),
	}
}

// Machine returns the session's state machine.
func (s *Session) Machine() *Machine {
	return s.machine
}

// Run loops until Escape, returning nil, or until a read, write or
// completion failure, returning it.
func (s *Session) Run(ctx context.Context) error {
	for {
		if _, err := io.WriteString(s.out, Prompt+s.machine.Buffer()); err != nil {
			return writeError(err)
		}

		key, err := s.keys.ReadKey()
		if err != nil {
			var herr *errors.Error
			if stderrors.As(err, &herr) {
				return err
			}
			return errors.Read(err)
		}

		if _, err := io.WriteString(s.out, "\n"); err != nil {
			return writeError(err)
		}

		done, err := s.Feed(ctx, key)
		if err != nil || done {
			return err
		}
	}
}

// Feed applies one key: on Escape it reports done; otherwise it clears the
// screen and, for a non-empty buffer, completes and renders it.
func (s *Session) Feed(ctx context.Context, key byte) (done bool, err error) {
	step, err := s.machine.Apply(key)
	if err != nil {
		return false, err
	}

	Logger().Debug("key",
		zap.Uint8("byte", key),
		zap.Int("buffer_len", len(step.Buffer)),
		zap.Bool("invoke", step.Invoke),
		zap.Bool("terminated", step.Terminated))

	if step.Terminated {
		return true, nil
	}

	if err := terminal.Clear(s.out); err != nil {
		return false, writeError(err)
	}
	if !step.Invoke {
		return false, nil
	}

	suggestions, err := s.completer.GenerateCompletions(ctx, step.Buffer)
	s.machine.Done()
	if err != nil {
		return false, err
	}

	if _, err := io.WriteString(s.out, Render(suggestions)); err != nil {
		return false, writeError(err)
	}
	return false, nil
}

// Render returns the completion block: an empty line, the header, one
// suggestion per line and the footer.
func Render(suggestions []string) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(BannerHeader)
	b.WriteString("\n")
	for _, s := range suggestions {
		b.WriteString(s)
		b.WriteString("\n")
	}
	b.WriteString(BannerFooter)
	b.WriteString("\n")
	return b.String()
}

func writeError(err error) error {
	return errors.Write(err)
}
