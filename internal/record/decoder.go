package record

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/tuannm99/x2sys/internal/alias/bx"
	"github.com/tuannm99/x2sys/internal/geo"
)

// Decoder reads one record at a time from a track stream positioned past
// its header.
type Decoder struct {
	s        *Schema
	r        *bufio.Reader
	buf      []byte
	line     int
	boundary bool
	nanSeen  []bool
}

// NewDecoder wraps r. The decoder buffers, so r must not be read elsewhere
// afterwards.
func NewDecoder(r io.Reader, s *Schema) *Decoder {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &Decoder{
		s:       s,
		r:       br,
		buf:     make([]byte, s.RecordLength()),
		nanSeen: make([]bool, s.NumFields()),
	}
}

// Boundary reports whether header or segment-marker lines were consumed
// before the last decoded record of a multi-segment schema.
func (d *Decoder) Boundary() bool { return d.boundary }

// NaNSeen reports, per field, whether any decoded value has been NaN.
func (d *Decoder) NaNSeen() []bool { return d.nanSeen }

// Line is the number of text lines consumed so far.
func (d *Decoder) Line() int { return d.line }

// Decode fills row (one value per schema field) with the next record.
// It returns io.EOF when the stream ends before a new record starts and an
// error wrapping ErrRecordDecode when a record is present but unusable.
func (d *Decoder) Decode(row []float64) error {
	if len(row) != d.s.NumFields() {
		return fmt.Errorf("%w: row has %d slots, schema %d fields", ErrRecordDecode, len(row), d.s.NumFields())
	}
	d.boundary = false

	var err error
	switch d.s.Encoding() {
	case EncodingCard:
		err = d.decodeCard(row)
	case EncodingToken:
		err = d.decodeTokens(row)
	default:
		err = d.decodeBinary(row)
	}
	if err != nil {
		return err
	}
	d.finish(row)
	return nil
}

// finish applies NaN proxies, scale/offset and the longitude domain.
func (d *Decoder) finish(row []float64) {
	for i := range row {
		f := &d.s.Fields[i]
		if f.HasNaNProxy && row[i] == f.NaNProxy {
			row[i] = math.NaN()
		} else if f.DoScale {
			row[i] = row[i]*f.Scale + f.Offset
		}
		if math.IsNaN(row[i]) {
			d.nanSeen[i] = true
		} else if i == d.s.XCol && d.s.Geographic {
			row[i] = geo.AdjustLon(row[i], d.s.LonDomain)
		}
	}
}

// dataLine returns the next line that is neither a '#' header nor a
// segment marker.
func (d *Decoder) dataLine() (string, error) {
	for {
		line, err := d.r.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			if errors.Is(err, io.EOF) {
				return "", io.EOF
			}
			return "", fmt.Errorf("%w: line %d: %v", ErrRecordDecode, d.line+1, err)
		}
		d.line++
		line = strings.TrimRight(line, "\r\n")
		if line != "" && (line[0] == '#' || line[0] == d.s.SegmentMarker) {
			if d.s.MultiSegment {
				d.boundary = true
			}
			continue
		}
		if line == "" {
			return "", fmt.Errorf("%w: line %d: empty record", ErrRecordDecode, d.line)
		}
		return line, nil
	}
}

func (d *Decoder) decodeCard(row []float64) error {
	line, err := d.dataLine()
	if err != nil {
		return err
	}
	for i := range d.s.Fields {
		f := &d.s.Fields[i]
		var text string
		if f.StartCol < len(line) {
			end := min(f.StartCol+f.NumCols, len(line))
			text = strings.TrimSpace(line[f.StartCol:end])
		}
		if text == "" {
			row[i] = math.NaN()
			continue
		}
		if row[i], err = d.parseText(i, text); err != nil {
			return err
		}
	}
	return nil
}

func (d *Decoder) decodeTokens(row []float64) error {
	line, err := d.dataLine()
	if err != nil {
		return err
	}
	tokens := strings.FieldsFunc(line, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t'
	})
	if len(tokens) != len(row) {
		return fmt.Errorf("%w: line %d: %d tokens for %d fields", ErrRecordDecode, d.line, len(tokens), len(row))
	}
	for i, tok := range tokens {
		if row[i], err = d.parseText(i, tok); err != nil {
			return err
		}
	}
	return nil
}

func (d *Decoder) parseText(i int, text string) (float64, error) {
	var (
		v   float64
		err error
	)
	if i == d.s.XCol || i == d.s.YCol {
		v, err = geo.ParseCoordinate(text)
	} else {
		v, err = strconv.ParseFloat(text, 64)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: line %d: field %s: %q", ErrRecordDecode, d.line, d.s.Fields[i].Name, text)
	}
	return v, nil
}

func (d *Decoder) decodeBinary(row []float64) error {
	n, err := io.ReadFull(d.r, d.buf)
	if err != nil {
		if n == 0 && errors.Is(err, io.EOF) {
			return io.EOF
		}
		return fmt.Errorf("%w: short binary record (%d of %d bytes): %v", ErrRecordDecode, n, len(d.buf), err)
	}

	off := 0
	for i := range d.s.Fields {
		t := d.s.Fields[i].Type
		b := d.buf[off : off+t.Size()]
		switch t {
		case FieldInt8:
			row[i] = float64(bx.I8(b))
		case FieldUint8:
			row[i] = float64(b[0])
		case FieldInt16:
			row[i] = float64(bx.I16(b))
		case FieldInt32:
			row[i] = float64(bx.I32(b))
		case FieldInt64:
			row[i] = float64(bx.I64(b))
		case FieldFloat32:
			row[i] = float64(bx.F32(b))
		case FieldFloat64:
			row[i] = bx.F64(b)
		}
		off += t.Size()
	}
	return nil
}
