package workflow

import (
	"errors"
	"fmt"
)

// Sentinel errors for programmatic checking via errors.Is.
var (
	// ErrParse indicates malformed JSON.
	ErrParse = errors.New("workflow: parse error")

	// ErrSchema indicates a missing or structurally invalid field.
	ErrSchema = errors.New("workflow: schema error")
)

// ParseError wraps ErrParse with a human-readable message.
type ParseError struct {
	Msg string
	Err error
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return ErrParse.Error()
	}
	return fmt.Sprintf("%s: %s", ErrParse.Error(), e.Msg)
}

func (e *ParseError) Unwrap() error { return ErrParse }

// SchemaError wraps ErrSchema, naming the offending field where known.
type SchemaError struct {
	Field string
	Msg   string
}

func (e *SchemaError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", ErrSchema.Error(), e.Field, e.Msg)
	}
	return fmt.Sprintf("%s: %s", ErrSchema.Error(), e.Msg)
}

func (e *SchemaError) Unwrap() error { return ErrSchema }
