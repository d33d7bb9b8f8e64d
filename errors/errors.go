package errors

import (
	"fmt"
	"strings"

	"github.com/wippyai/napi-go/sys"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseCall       Phase = "call"       // generic boundary call
	PhaseCast       Phase = "cast"       // value construction and casting
	PhaseProperty   Phase = "property"   // property and element access
	PhaseCallback   Phase = "callback"   // trampoline and callback info
	PhaseThreadsafe Phase = "threadsafe" // threadsafe function bridge
	PhaseWrap       Phase = "wrap"       // native data attachment
	PhaseFinalize   Phase = "finalize"   // collector finalizers
	PhasePromise    Phase = "promise"    // promise and deferred
	PhaseRegister   Phase = "register"   // module registration
	PhaseHost       Phase = "host"       // reference host entry points
)

// Kind categorizes the error
type Kind string

const (
	KindStatus           Kind = "status"
	KindPendingException Kind = "pending_exception"
	KindTypeMismatch     Kind = "type_mismatch"
	KindOutOfBounds      Kind = "out_of_bounds"
	KindScopeMismatch    Kind = "scope_mismatch"
	KindQueueFull        Kind = "queue_full"
	KindClosing          Kind = "closing"
	KindAlreadySettled   Kind = "already_settled"
	KindInvalidInput     Kind = "invalid_input"
	KindNotFound         Kind = "not_found"
	KindRegistration     Kind = "registration"
	KindPanic            Kind = "panic"
)

// Sentinels for errors.Is matching by kind alone.
var (
	ErrPendingException = &Error{Kind: KindPendingException}
	ErrTypeMismatch     = &Error{Kind: KindTypeMismatch}
	ErrOutOfBounds      = &Error{Kind: KindOutOfBounds}
	ErrScopeMismatch    = &Error{Kind: KindScopeMismatch}
	ErrQueueFull        = &Error{Kind: KindQueueFull}
	ErrClosing          = &Error{Kind: KindClosing}
	ErrAlreadySettled   = &Error{Kind: KindAlreadySettled}
)

// Error is the structured error type used throughout the layer
type Error struct {
	Value    any
	Cause    error
	Phase    Phase
	Kind     Kind
	Op       string
	GoType   string
	HostType string
	Detail   string
	Path     []string
	Status   sys.Status
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	if e.Phase != "" {
		b.WriteByte('[')
		b.WriteString(string(e.Phase))
		b.WriteString("] ")
	}
	b.WriteString(string(e.Kind))

	if e.Op != "" {
		b.WriteString(" in ")
		b.WriteString(e.Op)
	}

	if e.Kind == KindStatus || e.Status != sys.StatusOK {
		b.WriteString(" (status ")
		b.WriteString(e.Status.String())
		b.WriteByte(')')
	}

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.GoType != "" || e.HostType != "" {
		b.WriteString(": ")
		if e.GoType != "" && e.HostType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", host type ")
			b.WriteString(e.HostType)
		} else if e.GoType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		} else {
			b.WriteString("host type ")
			b.WriteString(e.HostType)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.HostType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
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

// Is reports whether target matches this error.
// A target without a phase matches on kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase == "" {
		return e.Kind == t.Kind
	}
	return e.Phase == t.Phase && e.Kind == t.Kind
}

// Message returns the text used when the error is thrown into the host:
// the detail when present, the full description otherwise.
func (e *Error) Message() string {
	if e.Detail != "" && e.Cause == nil {
		return e.Detail
	}
	return e.Error()
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

// Op sets the boundary operation name
func (b *Builder) Op(op string) *Builder {
	b.err.Op = op
	return b
}

// Status sets the boundary status code
func (b *Builder) Status(st sys.Status) *Builder {
	b.err.Status = st
	return b
}

// Path sets the property path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// HostType sets the host value type name
func (b *Builder) HostType(t string) *Builder {
	b.err.HostType = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
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

// Convenience constructors for common error patterns

// Status creates a boundary failure error. The pending-exception status is
// mapped to KindPendingException, queue states to their own kinds.
func Status(phase Phase, op string, st sys.Status, message string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindForStatus(st),
		Op:     op,
		Status: st,
		Detail: message,
	}
}

// PendingException creates the error returned while the host holds an
// unhandled exception.
func PendingException(phase Phase, op string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindPendingException,
		Op:     op,
		Status: sys.StatusPendingException,
	}
}

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, goType, hostType string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindTypeMismatch,
		GoType:   goType,
		HostType: hostType,
	}
}

// OutOfBounds creates an index out of bounds error
func OutOfBounds(phase Phase, path []string, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Path:   path,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
		Value:  index,
	}
}

// ScopeMismatch creates the error for a handle used under a foreign token
func ScopeMismatch(phase Phase, op string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindScopeMismatch,
		Op:     op,
		Status: sys.StatusHandleScopeMismatch,
		Detail: "value used outside the scope that produced it",
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// NotFound creates a not found error
func NotFound(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// KindForStatus classifies a boundary status.
func KindForStatus(st sys.Status) Kind {
	switch st {
	case sys.StatusPendingException:
		return KindPendingException
	case sys.StatusQueueFull:
		return KindQueueFull
	case sys.StatusClosing:
		return KindClosing
	case sys.StatusHandleScopeMismatch:
		return KindScopeMismatch
	default:
		return KindStatus
	}
}

// IsPendingException reports whether err means the host already holds an
// exception that must be propagated untouched.
func IsPendingException(err error) bool {
	var e *Error
	if As(err, &e) {
		return e.Kind == KindPendingException
	}
	return false
}

// ThrowCode returns the exception code used when err is thrown into the host.
func ThrowCode(err error) string {
	var e *Error
	if !As(err, &e) {
		return ""
	}
	if e.Kind == KindStatus {
		return "ERR_NAPI_" + strings.ToUpper(e.Status.String())
	}
	return "ERR_NAPI_" + strings.ToUpper(string(e.Kind))
}

// ThrowMessage returns the exception message used when err is thrown into
// the host.
func ThrowMessage(err error) string {
	var e *Error
	if As(err, &e) {
		return e.Message()
	}
	return err.Error()
}

// Registration creates a module registration error
func Registration(name string, cause error) *Error {
	return &Error{
		Phase:  PhaseRegister,
		Kind:   KindRegistration,
		Detail: "module " + name,
		Cause:  cause,
	}
}
