package session

import (
	stderrors "errors"
)

// Keys with special meaning.
const (
	KeyEscape    byte = 0x1b
	KeyBackspace byte = 0x08
	KeyDelete    byte = 0x7f
)

// State is the machine's position in the read/invoke cycle.
type State int

const (
	Reading State = iota
	Invoking
	Terminated
)

func (s State) String() string {
	switch s {
	case Reading:
		return "reading"
	case Invoking:
		return "invoking"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

var (
	// ErrInvoking is returned by Apply while an invocation is outstanding.
	ErrInvoking = stderrors.New("session: invocation in progress")
	// ErrTerminated is returned by Apply after Escape.
	ErrTerminated = stderrors.New("session: terminated")
)

// Step is the outcome of one keystroke.
type Step struct {
	Buffer     string
	Terminated bool
	// Invoke is set when the buffer is non-empty and must be completed.
	Invoke bool
}

// Machine owns the input buffer and applies keystrokes to it. It performs
// no I/O.
type Machine struct {
	buf   []byte
	state State
}

// NewMachine creates a machine in Reading with an empty buffer.
func NewMachine() *Machine {
	return &Machine{state: Reading}
}

// Buffer returns the current input.
func (m *Machine) Buffer() string {
	return string(m.buf)
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Apply transitions on key. After a Step with Invoke set the machine is in
// Invoking until Done.
func (m *Machine) Apply(key byte) (Step, error) {
	switch m.state {
	case Invoking:
		return Step{}, ErrInvoking
	case Terminated:
		return Step{}, ErrTerminated
	}

	switch {
	case key == KeyEscape:
		m.state = Terminated
		return Step{Buffer: m.Buffer(), Terminated: true}, nil
	case key == KeyBackspace || key == KeyDelete:
		// length 1 and 0 both end empty
		if len(m.buf) > 1 {
			m.buf = m.buf[:len(m.buf)-1]
		} else {
			m.buf = m.buf[:0]
		}
	case Accepts(key):
		m.buf = append(m.buf, key)
	}

	step := Step{Buffer: m.Buffer(), Invoke: len(m.buf) > 0}
	if step.Invoke {
		m.state = Invoking
	}
	return step, nil
}

// Done returns the machine to Reading after an invocation.
func (m *Machine) Done() {
	if m.state == Invoking {
		m.state = Reading
	}
}

// Accepts reports whether key is appended to the buffer: ASCII letters,
// the digits 1 through 9, and space.
func Accepts(key byte) bool {
	switch {
	case 'a' <= key && key <= 'z':
		return true
	case 'A' <= key && key <= 'Z':
		return true
	case '1' <= key && key <= '9':
		return true
	case key == ' ':
		return true
	}
	return false
}
