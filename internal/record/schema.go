package record

import (
	"fmt"

	"github.com/tuannm99/x2sys/internal/geo"
)

// FieldType is the physical encoding of one field in a track record.
type FieldType uint8

const (
	FieldCard    FieldType = iota // 'A': fixed columns of a text line
	FieldToken                    // 'a': next whitespace/comma token of a text line
	FieldInt8                     // 'c'
	FieldUint8                    // 'u'
	FieldInt16                    // 'h'
	FieldInt32                    // 'i'
	FieldInt64                    // 'l'
	FieldFloat32                  // 'f'
	FieldFloat64                  // 'd'
)

var fieldCodes = [...]byte{'A', 'a', 'c', 'u', 'h', 'i', 'l', 'f', 'd'}

// ParseFieldType maps a definition type code to a FieldType.
func ParseFieldType(code byte) (FieldType, bool) {
	for i, c := range fieldCodes {
		if c == code {
			return FieldType(i), true
		}
	}
	return 0, false
}

// Code returns the single-letter definition code.
func (t FieldType) Code() byte { return fieldCodes[t] }

// IsText reports whether the field is read from a text line.
func (t FieldType) IsText() bool { return t == FieldCard || t == FieldToken }

// Size is the byte width of a binary field, 0 for text fields.
func (t FieldType) Size() int {
	switch t {
	case FieldInt8, FieldUint8:
		return 1
	case FieldInt16:
		return 2
	case FieldInt32, FieldFloat32:
		return 4
	case FieldInt64, FieldFloat64:
		return 8
	default:
		return 0
	}
}

func (t FieldType) String() string { return string(t.Code()) }

// Field describes one column of a track file.
type Field struct {
	Name        string
	Type        FieldType
	HasNaNProxy bool
	NaNProxy    float64
	Scale       float64
	Offset      float64
	DoScale     bool   // false for the identity pair (1, 0)
	Format      string // printf layout used for ascii output
	StartCol    int    // FieldCard only, 0-based
	NumCols     int    // FieldCard only
}

// Encoding is the record layout class a schema decodes with.
type Encoding uint8

const (
	EncodingBinary Encoding = iota
	EncodingCard
	EncodingToken
)

// Schema is a parsed definition. It is never modified after Parse returns.
type Schema struct {
	Name          string
	Fields        []Field
	ASCII         bool // every field is a text field and #BINARY was not given
	Skip          int  // header lines (ASCII) or bytes (binary)
	MultiSegment  bool
	SegmentMarker byte
	Geographic    bool
	LonDomain     geo.LonDomain
	XCol          int // -1 when absent
	YCol          int
	TCol          int

	encoding Encoding
	sum      uint64
}

func (s *Schema) NumFields() int { return len(s.Fields) }

// Encoding reports how records of this schema are laid out.
func (s *Schema) Encoding() Encoding { return s.encoding }

// Sum64 is the xxhash of the definition body the schema was parsed from.
func (s *Schema) Sum64() uint64 { return s.sum }

// FieldIndex looks a field up by exact, case-sensitive name.
func (s *Schema) FieldIndex(name string) (int, bool) {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			return i, true
		}
	}
	return -1, false
}

// IsRoleCol reports whether column i is the x, y or t column.
func (s *Schema) IsRoleCol(i int) bool {
	return i == s.XCol || i == s.YCol || i == s.TCol
}

// NumDataCols counts the fields that are neither coordinates nor time.
func (s *Schema) NumDataCols() int {
	n := 0
	for i := range s.Fields {
		if !s.IsRoleCol(i) {
			n++
		}
	}
	return n
}

// RecordLength is the byte length of one binary record, 0 for text schemas.
func (s *Schema) RecordLength() int {
	n := 0
	for _, f := range s.Fields {
		n += f.Type.Size()
	}
	return n
}

// RecordSize is the byte size of one crossover record built from this schema:
// 8 fixed doubles plus one per data column.
func (s *Schema) RecordSize() int {
	return (8 + s.NumDataCols()) * 8
}

func (s *Schema) String() string {
	return fmt.Sprintf("%s(%d fields)", s.Name, len(s.Fields))
}
