package record

import (
	"errors"
	"fmt"
)

var (
	ErrSchemaParse  = errors.New("record: malformed definition")
	ErrRecordDecode = errors.New("record: cannot decode record")
)

// ParseError locates a malformed definition line.
type ParseError struct {
	Schema string
	Line   int
	Text   string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("record: %s.def: %s", e.Schema, e.Reason)
	}
	return fmt.Sprintf("record: %s.def line %d: %s: %q", e.Schema, e.Line, e.Reason, e.Text)
}

func (e *ParseError) Unwrap() error { return ErrSchemaParse }
