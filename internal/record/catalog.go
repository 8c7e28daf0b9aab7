package record

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/tuannm99/x2sys/internal/alias/util"
	"github.com/tuannm99/x2sys/internal/geo"
)

// DefaultSegmentMarker starts a segment header line unless #MULTISEG names another.
const DefaultSegmentMarker = '>'

// Names of the definitions that carry their own legacy readers.
const (
	NameGMT   = "gmt"
	NameMGD77 = "mgd77"
)

// Parse reads a definition body. Directives start with '#': #SKIP <n>,
// #BINARY, #GEO and #MULTISEG [c]; any other '#' line is a comment. Data
// lines hold "name type yes/no nan_proxy scale offset format [start-stop]".
// All fields of one definition share a layout: card columns, tokens or
// binary values. Definitions that mix them are refused.
func Parse(name string, r io.Reader) (*Schema, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("record: read %s.def: %w", name, err)
	}

	s := &Schema{
		Name:          name,
		ASCII:         true,
		SegmentMarker: DefaultSegmentMarker,
		XCol:          -1,
		YCol:          -1,
		TCol:          -1,
		sum:           xxhash.Sum64(body),
	}
	switch name {
	case NameGMT:
		s.Geographic = true
		s.LonDomain = geo.Lon0To360
	case NameMGD77:
		s.Geographic = true
		s.LonDomain = geo.LonPM180
	}

	binary := false
	sc := bufio.NewScanner(bytes.NewReader(body))
	for lineNo := 1; sc.Scan(); lineNo++ {
		line := strings.TrimRight(sc.Text(), "\r")
		fail := func(reason string) error {
			return &ParseError{Schema: name, Line: lineNo, Text: line, Reason: reason}
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if line[0] == '#' {
			words := strings.Fields(line)
			switch words[0] {
			case "#SKIP":
				if len(words) != 2 {
					return nil, fail("#SKIP needs a count")
				}
				n, err := strconv.Atoi(words[1])
				if err != nil || n < 0 {
					return nil, fail("#SKIP count must be a non-negative integer")
				}
				s.Skip = n
			case "#BINARY":
				binary = true
			case "#GEO":
				s.Geographic = true
			case "#MULTISEG":
				s.MultiSegment = true
				if len(words) > 1 {
					if len(words[1]) != 1 {
						return nil, fail("#MULTISEG marker must be one character")
					}
					s.SegmentMarker = words[1][0]
				}
			}
			continue
		}

		f, reason := parseField(strings.Fields(line))
		if reason != "" {
			return nil, fail(reason)
		}
		if _, dup := s.FieldIndex(f.Name); dup {
			return nil, fail("duplicate field name")
		}
		i := len(s.Fields)
		s.Fields = append(s.Fields, f)
		if !f.Type.IsText() {
			s.ASCII = false
		}
		switch f.Name {
		case "x", "lon":
			if s.XCol < 0 {
				s.XCol = i
			}
		case "y", "lat":
			if s.YCol < 0 {
				s.YCol = i
			}
		case "t", "time":
			if s.TCol < 0 {
				s.TCol = i
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("record: read %s.def: %w", name, err)
	}
	if len(s.Fields) == 0 {
		return nil, &ParseError{Schema: name, Reason: "no fields defined"}
	}

	enc, reason := classify(s.Fields)
	if reason != "" {
		return nil, &ParseError{Schema: name, Reason: reason}
	}
	s.encoding = enc
	if binary {
		s.ASCII = false
	}
	return s, nil
}

// parseField returns a non-empty reason when the words do not form a field.
func parseField(words []string) (Field, string) {
	var f Field
	if len(words) < 7 || len(words) > 8 {
		return f, fmt.Sprintf("expected 7 or 8 columns, got %d", len(words))
	}
	f.Name = words[0]

	if len(words[1]) != 1 {
		return f, "type must be a single character"
	}
	t, ok := ParseFieldType(words[1][0])
	if !ok {
		return f, fmt.Sprintf("unknown type %q", words[1])
	}
	f.Type = t

	// "y" means the field has no NaN proxy.
	f.HasNaNProxy = !strings.EqualFold(words[2][:1], "y")

	nums := [3]float64{}
	for k, w := range words[3:6] {
		v, err := strconv.ParseFloat(w, 64)
		if err != nil {
			return f, fmt.Sprintf("bad number %q", w)
		}
		nums[k] = v
	}
	f.NaNProxy, f.Scale, f.Offset = nums[0], nums[1], nums[2]
	f.DoScale = !(f.Scale == 1.0 && f.Offset == 0.0)

	f.Format = words[6]
	if n := numConversions(f.Format); n != 1 {
		return f, fmt.Sprintf("output format %q needs exactly one conversion, has %d", f.Format, n)
	}

	if t == FieldCard {
		if len(words) != 8 {
			return f, "card field needs start-stop columns"
		}
		start, stop, found := strings.Cut(words[7], "-")
		a, errA := strconv.Atoi(start)
		b, errB := strconv.Atoi(stop)
		if !found || errA != nil || errB != nil || a < 0 || b < a {
			return f, fmt.Sprintf("bad card columns %q", words[7])
		}
		f.StartCol = a
		f.NumCols = b - a + 1
	}
	return f, ""
}

// numConversions counts the % conversions in a printf format; %% is a
// literal percent sign.
func numConversions(format string) int {
	n := 0
	for i := 0; i < len(format); i++ {
		if format[i] != '%' {
			continue
		}
		if i+1 < len(format) && format[i+1] == '%' {
			i++
			continue
		}
		n++
	}
	return n
}

// classify rejects schemas that mix line-oriented and binary fields, or
// card and token fields, since one record cannot be both.
func classify(fields []Field) (Encoding, string) {
	var card, token, bin int
	for _, f := range fields {
		switch f.Type {
		case FieldCard:
			card++
		case FieldToken:
			token++
		default:
			bin++
		}
	}
	switch {
	case card > 0 && (token > 0 || bin > 0):
		return 0, "card fields cannot be mixed with other encodings"
	case token > 0 && bin > 0:
		return 0, "token fields cannot be mixed with binary fields"
	case card > 0:
		return EncodingCard, ""
	case token > 0:
		return EncodingToken, ""
	default:
		return EncodingBinary, ""
	}
}

type catalogEntry struct {
	sum    uint64
	schema *Schema
}

// Catalog loads definitions from <home>/<name>.def and keeps the parsed
// schemas; a definition is parsed again only when its content changes.
type Catalog struct {
	home    string
	mu      sync.Mutex
	entries map[string]catalogEntry
}

func NewCatalog(home string) *Catalog {
	return &Catalog{home: home, entries: make(map[string]catalogEntry)}
}

// Path is the definition file for name.
func (c *Catalog) Path(name string) string {
	return filepath.Join(c.home, name+".def")
}

// Load returns the schema for name.
func (c *Catalog) Load(name string) (*Schema, error) {
	path := c.Path(name)
	f, err := util.OpenFile(path)
	if err != nil {
		return nil, err
	}
	body, err := io.ReadAll(f)
	if err != nil {
		util.CloseFileFunc(path, f)
		return nil, fmt.Errorf("record: read %s: %w", path, err)
	}
	if err := util.CloseFile(path, f); err != nil {
		return nil, err
	}

	sum := xxhash.Sum64(body)
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[name]; ok && e.sum == sum {
		return e.schema, nil
	}

	s, err := Parse(name, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	c.entries[name] = catalogEntry{sum: sum, schema: s}
	slog.Debug("record: definition loaded",
		"name", name,
		"fields", s.NumFields(),
		"ascii", s.ASCII,
		"multiseg", s.MultiSegment,
	)
	return s, nil
}
