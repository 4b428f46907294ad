package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in the host lifecycle the error occurred
type Phase string

const (
	PhaseStartup  Phase = "startup"  // engine, loading, linking, instantiation
	PhaseContract Phase = "contract" // interface contract parsing and checks
	PhaseCall     Phase = "call"     // guest invocation through the bridge
	PhaseInput    Phase = "input"    // terminal keystrokes and output
	PhaseConfig   Phase = "config"   // command-line configuration
)

// Kind categorizes the error
type Kind string

const (
	KindEngine           Kind = "engine"
	KindNotFound         Kind = "not_found"
	KindMalformed        Kind = "malformed"
	KindContractMismatch Kind = "contract_mismatch"
	KindMissingImport    Kind = "missing_import"
	KindInstantiation    Kind = "instantiation"
	KindTrap             Kind = "trap"
	KindTypeMismatch     Kind = "type_mismatch"
	KindRead             Kind = "read"
	KindWrite            Kind = "write"
	KindNotInitialized   Kind = "not_initialized"
	KindInvalidConfig    Kind = "invalid_config"
	KindRegistration     Kind = "registration"
	KindParse            Kind = "parse"
)

// Error is the structured error type used throughout the host
type Error struct {
	Cause   error
	Phase   Phase
	Kind    Kind
	Subject string
	Detail  string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Subject != "" {
		b.WriteString(" ")
		b.WriteString(e.Subject)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Subject names the thing the error is about (a path, an export, a function)
func (b *Builder) Subject(s string) *Builder {
	b.err.Subject = s
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// PhaseOf returns the phase of the first structured error in err's chain.
func PhaseOf(err error) (Phase, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Phase, true
	}
	var mi *MissingImportsError
	if stderrors.As(err, &mi) {
		return PhaseStartup, true
	}
	return "", false
}

// Convenience constructors for the startup taxonomy

// Engine creates an engine construction error
func Engine(cause error) *Error {
	return &Error{
		Phase:  PhaseStartup,
		Kind:   KindEngine,
		Detail: "create execution engine",
		Cause:  cause,
	}
}

// NotFound creates a module-not-found error
func NotFound(path string, cause error) *Error {
	return &Error{
		Phase:   PhaseStartup,
		Kind:    KindNotFound,
		Subject: path,
		Detail:  "module not found",
		Cause:   cause,
	}
}

// Malformed creates a malformed-module error
func Malformed(path, detail string, cause error) *Error {
	return &Error{
		Phase:   PhaseStartup,
		Kind:    KindMalformed,
		Subject: path,
		Detail:  "malformed module: " + detail,
		Cause:   cause,
	}
}

// ContractMismatch creates a contract violation error for an import or export
func ContractMismatch(subject, detail string) *Error {
	return &Error{
		Phase:   PhaseContract,
		Kind:    KindContractMismatch,
		Subject: subject,
		Detail:  detail,
	}
}

// Instantiation creates an instantiation error
func Instantiation(cause error) *Error {
	return &Error{
		Phase:  PhaseStartup,
		Kind:   KindInstantiation,
		Detail: "instantiate plugin",
		Cause:  cause,
	}
}

// Registration creates a capability registration error
func Registration(namespace, name string, cause error) *Error {
	return &Error{
		Phase:  PhaseStartup,
		Kind:   KindRegistration,
		Detail: fmt.Sprintf("register %s#%s", namespace, name),
		Cause:  cause,
	}
}

// NotInitialized creates an error for use of a host object before it exists
func NotInitialized(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", what),
	}
}

// Trap creates a call-fatal error for a failure surfacing from the guest
func Trap(export string, cause error) *Error {
	return &Error{
		Phase:   PhaseCall,
		Kind:    KindTrap,
		Subject: export,
		Detail:  "guest call failed",
		Cause:   cause,
	}
}

// TypeMismatch creates a cross-boundary type mismatch error
func TypeMismatch(phase Phase, subject, want, got string) *Error {
	return &Error{
		Phase:   phase,
		Kind:    KindTypeMismatch,
		Subject: subject,
		Detail:  fmt.Sprintf("want %s, got %s", want, got),
	}
}

// Read creates an input-fatal error
func Read(cause error) *Error {
	return &Error{
		Phase:  PhaseInput,
		Kind:   KindRead,
		Detail: "read next character",
		Cause:  cause,
	}
}

// Write creates an input-fatal error for a failed terminal write
func Write(cause error) *Error {
	return &Error{
		Phase:  PhaseInput,
		Kind:   KindWrite,
		Detail: "write to terminal",
		Cause:  cause,
	}
}

// InvalidConfig creates a configuration error
func InvalidConfig(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseConfig,
		Kind:   KindInvalidConfig,
		Detail: detail,
		Cause:  cause,
	}
}

// ParseFailed creates a contract parsing error
func ParseFailed(what string, cause error) *Error {
	return &Error{
		Phase:  PhaseContract,
		Kind:   KindParse,
		Detail: fmt.Sprintf("parse %s", what),
		Cause:  cause,
	}
}

// MissingImport represents a single unresolved import
type MissingImport struct {
	Namespace string // e.g., "simple-component:plugin/logger"
	Function  string // e.g., "log-info"
}

// MissingImportsError is returned when the guest declares imports the linker
// cannot satisfy
type MissingImportsError struct {
	Imports []MissingImport
}

// NewMissingImportsError creates an error from a list of "namespace#function" strings
func NewMissingImportsError(imports []string) *MissingImportsError {
	result := &MissingImportsError{
		Imports: make([]MissingImport, 0, len(imports)),
	}
	for _, imp := range imports {
		ns, fn := SplitImportKey(imp)
		result.Imports = append(result.Imports, MissingImport{
			Namespace: ns,
			Function:  fn,
		})
	}
	return result
}

// SplitImportKey splits "namespace#function" into its halves
func SplitImportKey(key string) (namespace, function string) {
	ns, fn, found := strings.Cut(key, "#")
	if found {
		return ns, fn
	}
	return key, ""
}

func (e *MissingImportsError) Error() string {
	if len(e.Imports) == 0 {
		return "[startup] missing_import: no imports specified"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[startup] missing_import: %d unresolved import(s):\n", len(e.Imports))

	byNS := make(map[string][]string)
	var nsOrder []string
	for _, imp := range e.Imports {
		if _, exists := byNS[imp.Namespace]; !exists {
			nsOrder = append(nsOrder, imp.Namespace)
		}
		byNS[imp.Namespace] = append(byNS[imp.Namespace], imp.Function)
	}

	for _, ns := range nsOrder {
		b.WriteString("\n  ")
		b.WriteString(ns)
		b.WriteString(":\n")
		for _, fn := range byNS[ns] {
			b.WriteString("    - ")
			b.WriteString(fn)
			b.WriteByte('\n')
		}
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// Is reports whether target is a MissingImportsError or the startup
// missing_import kind
func (e *MissingImportsError) Is(target error) bool {
	switch t := target.(type) {
	case *MissingImportsError:
		return true
	case *Error:
		return t.Phase == PhaseStartup && t.Kind == KindMissingImport
	}
	return false
}
