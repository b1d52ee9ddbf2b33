package diag

import (
	"errors"
	"fmt"

	"gard/internal/source"
)

// Severity orders diagnostics; errors stop a run, warnings do not.
type Severity uint8

const (
	SevInfo Severity = iota
	SevWarning
	SevError
)

var severityNames = [...]string{"INFO", "WARNING", "ERROR"}

func (s Severity) String() string {
	if int(s) < len(severityNames) {
		return severityNames[s]
	}
	return "UNKNOWN"
}

type Note struct {
	Span source.Span
	Msg  string
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  source.Span
	Notes    []Note
}

// String is the one-line form "SEV CODE: message" used in plain logs.
func (d Diagnostic) String() string {
	return fmt.Sprintf("%s %s: %s", d.Severity, d.Code.ID(), d.Message)
}

// Reporter receives diagnostics as phases produce them. *Bag is the usual
// implementation.
type Reporter interface {
	Report(d Diagnostic)
}

// Coded is implemented by errors that know their diagnostic code and span.
// The driver turns such errors into Diagnostics without type switches.
type Coded interface {
	error
	DiagCode() Code
	DiagSpan() source.Span
}

// FromError converts err into a Diagnostic. Errors without position get an empty span.
func FromError(err error) Diagnostic {
	var c Coded
	if errors.As(err, &c) {
		return Diagnostic{Severity: SevError, Code: c.DiagCode(), Message: err.Error(), Primary: c.DiagSpan()}
	}
	return Diagnostic{Severity: SevError, Code: UnknownCode, Message: err.Error()}
}
