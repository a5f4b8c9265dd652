package vm

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/buildgraph/internal/bytecode"
)

// ErrMalformed matches every error caused by an invalid program, whether
// raised while decoding operands or while interpreting them.
var ErrMalformed = bytecode.ErrMalformed

// MalformedError reports a program that decodes but cannot be interpreted:
// an operand of the wrong kind, a bad fragment or handler index, a graph
// that violates its own invariants.
type MalformedError struct {
	Offset int
	Msg    string
	Err    error
}

func (e *MalformedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed program at offset %d: %s: %v", e.Offset, e.Msg, e.Err)
	}
	return fmt.Sprintf("malformed program at offset %d: %s", e.Offset, e.Msg)
}

// Unwrap lets callers match both ErrMalformed and the underlying cause.
func (e *MalformedError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrMalformed, e.Err}
	}
	return []error{ErrMalformed}
}

// ScriptError is raised by a Throw expression. File and Line point at the
// statement in the source script that produced it.
type ScriptError struct {
	File    string
	Line    int
	Message string
}

func (e *ScriptError) Error() string {
	if e.File == "" {
		return e.Message
	}
	return fmt.Sprintf("%s(%d): %s", e.File, e.Line, e.Message)
}

// OptionError reports an option value that failed to parse or validate.
type OptionError struct {
	Name   string
	Value  string
	Reason string
}

func (e *OptionError) Error() string {
	return fmt.Sprintf("option %s=%q: %s", e.Name, e.Value, e.Reason)
}

// IsUserError reports whether err originates in the script or its options
// rather than in the program encoding.
func IsUserError(err error) bool {
	var se *ScriptError
	var oe *OptionError
	return errors.As(err, &se) || errors.As(err, &oe)
}
