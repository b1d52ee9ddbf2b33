package interp

import (
	"errors"
	"fmt"

	"gard/internal/diag"
	"gard/internal/ledger"
	"gard/internal/sched"
	"gard/internal/source"
	"gard/internal/value"
)

// Thrown is a Gard value in flight: what `throw` raised, or a runtime
// failure mapped onto a built-in error class.
type Thrown struct {
	Value value.Value
	Span  source.Span
	// Cause is the Go error the value was built from, if any.
	Cause error
}

func (t *Thrown) Error() string { return t.Value.String() }

func (t *Thrown) Unwrap() error { return t.Cause }

// ClassName is the error class of the thrown object, or the value's type
// name for thrown non-objects.
func (t *Thrown) ClassName() string { return t.Value.TypeName() }

// Message returns the message field of error objects and the display text
// of anything else.
func (t *Thrown) Message() string {
	if o := t.Value.Object(); o != nil {
		if m, ok := o.Get("message"); ok {
			return m.String()
		}
	}
	return t.Value.String()
}

// Is matches a thrown object against a built-in class name, so callers can
// write errors.Is(err, interp.ErrorClass("ValidationFailed")).
func (t *Thrown) Is(target error) bool {
	c, ok := target.(ErrorClass)
	if !ok {
		return false
	}
	o := t.Value.Object()
	return o != nil && o.Class.HasAncestor(string(c))
}

func (t *Thrown) DiagCode() diag.Code {
	o := t.Value.Object()
	switch {
	case o == nil:
		return diag.RunUncaught
	case o.Class.HasAncestor("ValidationFailed"):
		return diag.LedValidationFailed
	case o.Class.HasAncestor("ConcurrencyConflict"):
		return diag.LedConflict
	case o.Class.HasAncestor("DeadlockTimeout"):
		return diag.RunDeadlineHit
	case o.Class.HasAncestor("CancelledError"):
		return diag.RunTaskCancelled
	}
	var ce *ledger.ConservationError
	if errors.As(t.Cause, &ce) {
		return diag.LedConservation
	}
	return diag.RunUncaught
}

func (t *Thrown) DiagSpan() source.Span { return t.Span }

// ErrorClass names a built-in error class for errors.Is.
type ErrorClass string

func (c ErrorClass) Error() string { return string(c) }

// builtinErrors: иерархия встроенных классов ошибок: имя -> родитель.
var builtinErrors = []struct{ name, super string }{
	{"Error", ""},
	{"RuntimeError", "Error"},
	{"TypeError", "RuntimeError"},
	{"DivisionByZeroError", "RuntimeError"},
	{"ImmutableAssignmentError", "RuntimeError"},
	{"AbstractMethodError", "RuntimeError"},
	{"UndefinedVariableError", "RuntimeError"},
	{"SyntaxError", "RuntimeError"},
	{"ConcurrencyError", "Error"},
	{"CancelledError", "ConcurrencyError"},
	{"DeadlockTimeout", "ConcurrencyError"},
	{"ChannelClosedError", "ConcurrencyError"},
	{"LedgerError", "Error"},
	{"ValidationFailed", "LedgerError"},
	{"ConcurrencyConflict", "LedgerError"},
}

// newError instantiates a built-in error class with a message.
func (rt *Runtime) newError(class, msg string) value.Value {
	c := rt.errClasses[class]
	if c == nil {
		c = rt.errClasses["Error"]
	}
	o := value.NewObject(c)
	o.Set("message", value.Str(msg))
	return value.FromObject(o)
}

func (rt *Runtime) throwf(sp source.Span, class, format string, args ...any) *Thrown {
	return &Thrown{Value: rt.newError(class, fmt.Sprintf(format, args...)), Span: sp}
}

func (rt *Runtime) typeError(sp source.Span, format string, args ...any) *Thrown {
	return rt.throwf(sp, "TypeError", format, args...)
}

// throwable maps any Go error onto a Gard error value. A *Thrown passes
// through unchanged, keeping its original span.
func (rt *Runtime) throwable(err error, sp source.Span) *Thrown {
	var th *Thrown
	if errors.As(err, &th) {
		if th.Span.Empty() {
			th.Span = sp
		}
		return th
	}
	class := "RuntimeError"
	msg := err.Error()
	var (
		opErr   *value.OpError
		deadErr *sched.DeadlineError
		valErr  *ledger.ValidationError
	)
	switch {
	case errors.Is(err, value.ErrDivisionByZero):
		class = "DivisionByZeroError"
	case errors.As(err, &opErr):
		class = "TypeError"
	case errors.As(err, &deadErr):
		class = "DeadlockTimeout"
	case errors.Is(err, sched.ErrCancelled):
		class = "CancelledError"
	case errors.Is(err, sched.ErrChannelClosed):
		class = "ChannelClosedError"
	case errors.As(err, &valErr):
		class = "ValidationFailed"
		msg = valErr.Message
	case errors.Is(err, ledger.ErrConcurrencyConflict):
		class = "ConcurrencyConflict"
	case errors.Is(err, ledger.ErrReadOnly):
		class = "TypeError"
	case errors.Is(err, ledger.ErrUnknownAccount), errors.Is(err, ledger.ErrClosed):
		class = "LedgerError"
	}
	var ce *ledger.ConservationError
	if errors.As(err, &ce) {
		class = "LedgerError"
	}
	return &Thrown{Value: rt.newError(class, msg), Span: sp, Cause: err}
}

// catchMatches implements `catch (e: T)`: class T or a subclass for error
// objects, the value tag for anything else. `any` matches everything.
func catchMatches(typeName string, v value.Value) bool {
	if typeName == "" || typeName == "any" {
		return true
	}
	if o := v.Object(); o != nil {
		return o.Class.HasAncestor(typeName)
	}
	if k, ok := value.KindByName(typeName); ok {
		return v.K == k
	}
	return v.TypeName() == typeName
}
