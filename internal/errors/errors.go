// Package errors defines typed errors with categories for user-friendly reporting.
// It provides a structured approach to error handling with machine-readable error kinds
// and human-friendly messages, so that the session can route a failure to the right
// notification (a configuration shortcut, the dependency installer, or a plain error).
//
// Kinds that come back from the query helper use the helper's own spelling
// (ConnectionError, ImpalaError, SQLSyntaxError) so they can be shown verbatim.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// ConnectionError covers a missing interpreter, a failed spawn, a missing
	// configuration, or the engine refusing the connection.
	ConnectionError Kind = "ConnectionError"
	// ImpalaError indicates the engine rejected the SQL, the helper exited non-zero,
	// or the helper produced malformed output.
	ImpalaError Kind = "ImpalaError"
	// SQLSyntaxError indicates the engine could not parse or analyze the SQL.
	SQLSyntaxError Kind = "SQLSyntaxError"
	// TemplateError indicates the template could not be rendered.
	TemplateError Kind = "TemplateError"
	// MissingDependency indicates a helper could not import a required Python module.
	MissingDependency Kind = "MissingDependency"
	// Cancelled indicates the user cancelled the operation.
	Cancelled Kind = "Cancelled"
	// InvalidConfig indicates the workspace configuration failed validation.
	InvalidConfig Kind = "InvalidConfig"
	// NoContent indicates there was no SQL to execute.
	NoContent Kind = "NoContent"
)

// MissingModulePrefix is written by the helpers when a Python import fails.
const MissingModulePrefix = "MISSING_MODULE:"

// E wraps an error with kind and human-friendly message.
type E struct {
	Kind    Kind
	Message string
	Err     error
	// Line is the 1-based template line an error refers to, or 0.
	Line int
	// Modules lists the Python modules a MissingDependency error refers to.
	Modules []string
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *E) Unwrap() error { return e.Err }

func Wrap(kind Kind, msg string, err error) *E { return &E{Kind: kind, Message: msg, Err: err} }
func New(kind Kind, msg string) *E             { return &E{Kind: kind, Message: msg} }

// KindOf returns the kind of the first *E in err's chain, or "" if there is none.
func KindOf(err error) Kind {
	var e *E
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// As is errors.As, re-exported so callers need only one errors import.
func As(err error, target any) bool { return stderrors.As(err, target) }

// ParseMissingModules looks for a MISSING_MODULE line in helper output and
// returns the module names it lists. ok is false when no such line is present.
func ParseMissingModules(text string) (modules []string, ok bool) {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, MissingModulePrefix) {
			continue
		}
		rest := strings.TrimSpace(strings.TrimPrefix(line, MissingModulePrefix))
		for _, m := range strings.FieldsFunc(rest, func(r rune) bool { return r == ',' || r == ' ' }) {
			modules = append(modules, m)
		}
		return modules, true
	}
	return nil, false
}

// Missing builds a MissingDependency error for the given modules.
func Missing(modules []string) *E {
	return &E{
		Kind:    MissingDependency,
		Message: "missing Python packages: " + strings.Join(modules, ", "),
		Modules: modules,
	}
}
