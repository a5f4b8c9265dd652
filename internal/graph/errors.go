package graph

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateName    = errors.New("duplicate name")
	ErrConflictingAgent = errors.New("conflicting agent definition")
	ErrUnknownTarget    = errors.New("unknown target")
	ErrInvariant        = errors.New("graph invariant violated")
)

// GraphError reports a construction or validation failure.
type GraphError struct {
	Kind error
	Msg  string
}

func (e *GraphError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *GraphError) Unwrap() error { return e.Kind }

func duplicatef(format string, args ...any) error {
	return &GraphError{Kind: ErrDuplicateName, Msg: fmt.Sprintf(format, args...)}
}

func invariantf(format string, args ...any) error {
	return &GraphError{Kind: ErrInvariant, Msg: fmt.Sprintf(format, args...)}
}
