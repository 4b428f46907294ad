// Package terminal reads single raw keystrokes and writes screen control
// sequences.
package terminal

import (
	"io"
	"os"

	"golang.org/x/term"

	"github.com/wippyai/wasm-plugin-host/errors"
)

// ClearScreen erases the display without moving the cursor.
const ClearScreen = "\x1b[2J"

// maxEmptyReads bounds consecutive (0, nil) reads, as bufio does.
const maxEmptyReads = 100

// Keyboard reads one byte per key. When the source is a terminal it is put
// in raw mode for the duration of each read only, so output written between
// reads is cooked.
type Keyboard struct {
	r   io.Reader
	fd  int
	tty bool
	buf [1]byte
}

// NewKeyboard creates a Keyboard over r. A nil r means os.Stdin.
func NewKeyboard(r io.Reader) *Keyboard {
	if r == nil {
		r = os.Stdin
	}
	k := &Keyboard{r: r, fd: -1}
	if f, ok := r.(*os.File); ok {
		k.fd = int(f.Fd())
		k.tty = term.IsTerminal(k.fd)
	}
	return k
}

// IsTerminal reports whether keys come from an interactive terminal.
func (k *Keyboard) IsTerminal() bool {
	return k.tty
}

// ReadKey blocks for the next byte. Any failure, end of input included,
// is an input-phase error.
func (k *Keyboard) ReadKey() (byte, error) {
	if k.tty {
		state, err := term.MakeRaw(k.fd)
		if err != nil {
			return 0, errors.Read(err)
		}
		defer func() { _ = term.Restore(k.fd, state) }()
	}

	for i := 0; i < maxEmptyReads; i++ {
		n, err := k.r.Read(k.buf[:])
		if n == 1 {
			return k.buf[0], nil
		}
		if err != nil {
			return 0, errors.Read(err)
		}
	}
	return 0, errors.Read(io.ErrNoProgress)
}

// Clear writes ClearScreen to w.
func Clear(w io.Writer) error {
	_, err := io.WriteString(w, ClearScreen)
	return err
}
