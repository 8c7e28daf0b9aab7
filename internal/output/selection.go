package output

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tuannm99/x2sys/internal/record"
)

var ErrUnknownColumn = errors.New("output: unknown column")

// UnknownColumnError names a requested column the schema does not define.
type UnknownColumnError struct {
	Name string
}

func (e *UnknownColumnError) Error() string {
	return fmt.Sprintf("output: unknown column %q", e.Name)
}

func (e *UnknownColumnError) Unwrap() error { return ErrUnknownColumn }

// Selection is the ordered set of schema fields an output writes.
// It is fixed once built.
type Selection struct {
	s     *record.Schema
	order []int
	use   []bool
}

// Select resolves a comma-separated list of field names against s. Names
// match exactly; empty entries are ignored. An empty list selects every
// field in schema order.
func Select(s *record.Schema, list string) (Selection, error) {
	sel := Selection{s: s, use: make([]bool, s.NumFields())}
	if strings.TrimSpace(list) == "" {
		sel.order = make([]int, s.NumFields())
		for i := range sel.order {
			sel.order[i] = i
			sel.use[i] = true
		}
		return sel, nil
	}
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		i, ok := s.FieldIndex(name)
		if !ok {
			return Selection{}, &UnknownColumnError{Name: name}
		}
		sel.order = append(sel.order, i)
		sel.use[i] = true
	}
	return sel, nil
}

// Schema returns the schema the selection was resolved against.
func (sel Selection) Schema() *record.Schema { return sel.s }

// Len is the number of output columns.
func (sel Selection) Len() int { return len(sel.order) }

// Order returns the schema field indices in output order.
func (sel Selection) Order() []int {
	out := make([]int, len(sel.order))
	copy(out, sel.order)
	return out
}

// Uses reports whether field i is written.
func (sel Selection) Uses(i int) bool { return i >= 0 && i < len(sel.use) && sel.use[i] }

// NumDataCols counts the selected fields that are not x, y or t.
func (sel Selection) NumDataCols() int {
	n := 0
	for i, used := range sel.use {
		if used && !sel.s.IsRoleCol(i) {
			n++
		}
	}
	return n
}
