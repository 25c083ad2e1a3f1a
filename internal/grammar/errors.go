package grammar

import (
	"errors"
	"fmt"

	"attrparse/internal/diag"
	"attrparse/internal/source"
)

// ErrSealed is wrapped by errors about mutating a sealed grammar.
var ErrSealed = errors.New("grammar is sealed")

// ConfigError reports a defect in a grammar definition. It is never a
// runtime condition: the grammar must be fixed.
type ConfigError struct {
	Code    diag.Code
	Subject string
	Pos     source.Pos
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	subject := ""
	if e.Subject != "" {
		subject = " " + e.Subject
	}
	return fmt.Sprintf("%s: %s%s: %s", e.Pos, e.Code.ID(), subject, e.Message)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Diagnostic converts the error to its diagnostic record.
func (e *ConfigError) Diagnostic() diag.Diagnostic {
	return diag.NewError(e.Code, e.Pos, e.Message).WithSubject(e.Subject)
}

func configErrorf(code diag.Code, subject string, pos source.Pos, format string, args ...any) *ConfigError {
	return &ConfigError{Code: code, Subject: subject, Pos: pos, Message: fmt.Sprintf(format, args...)}
}
