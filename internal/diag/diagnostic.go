package diag

import "attrparse/internal/source"

// Severity defines the importance of a diagnostic.
type Severity uint8

const (
	SevInfo Severity = iota
	SevWarning
	SevError
)

func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "INFO"
	case SevWarning:
		return "WARNING"
	case SevError:
		return "ERROR"
	}
	return "UNKNOWN"
}

type Note struct {
	Pos source.Pos
	Msg string
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  source.Pos
	// Subject names the symbol, rule or priority the diagnostic is about.
	Subject string
	Notes   []Note
}

func New(sev Severity, code Code, primary source.Pos, msg string) Diagnostic {
	return Diagnostic{Severity: sev, Code: code, Primary: primary, Message: msg}
}

func NewError(code Code, primary source.Pos, msg string) Diagnostic {
	return New(SevError, code, primary, msg)
}

func (d Diagnostic) WithNote(p source.Pos, msg string) Diagnostic {
	d.Notes = append(d.Notes, Note{Pos: p, Msg: msg})
	return d
}

func (d Diagnostic) WithSubject(subject string) Diagnostic {
	d.Subject = subject
	return d
}
