package track

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tuannm99/x2sys/internal/alias/bx"
	"github.com/tuannm99/x2sys/internal/alias/util"
	"github.com/tuannm99/x2sys/internal/mggpath"
	"github.com/tuannm99/x2sys/internal/record"
)

const formatGMT = "gmt"

// Compact-binary leg layout: a header of year, row count and agency,
// followed by fixed records of time, lat, lon and three 16-bit channels.
const (
	GMTHeaderSize = 4 + 4 + 10
	GMTRecordSize = 18
	GMTNoData     = -32000

	// MicroDeg converts stored positions to degrees.
	MicroDeg = 1.0e-6
)

// Legacy column order shared by both fixed-layout readers.
const (
	ColTime = iota
	ColLon
	ColLat
	ColGrav
	ColMag
	ColDepth
	NumLegacyCols
)

var ErrLegacyHeader = errors.New("track: cannot read leg header")

// LegacyLayout maps each legacy column (ColTime ... ColDepth) to the index
// of the definition field that receives it.
type LegacyLayout [NumLegacyCols]int

// DefaultLegacyLayout stores the legacy columns in their own order.
var DefaultLegacyLayout = LegacyLayout{ColTime, ColLon, ColLat, ColGrav, ColMag, ColDepth}

// NewLegacyLayout matches a legacy definition to the fixed reader output.
// The definition needs exactly NumLegacyCols fields including time, lon
// and lat columns; the other three take grav, mag and depth in field order.
func NewLegacyLayout(s *record.Schema) (LegacyLayout, error) {
	var l LegacyLayout
	fail := func(reason string) error {
		return &record.ParseError{Schema: s.Name, Reason: reason}
	}
	if s.NumFields() != NumLegacyCols {
		return l, fail(fmt.Sprintf("legacy definition needs %d fields, has %d", NumLegacyCols, s.NumFields()))
	}
	if s.TCol < 0 || s.XCol < 0 || s.YCol < 0 {
		return l, fail("legacy definition needs time, lon and lat fields")
	}
	l[ColTime], l[ColLon], l[ColLat] = s.TCol, s.XCol, s.YCol
	next := ColGrav
	for i := 0; i < s.NumFields(); i++ {
		if !s.IsRoleCol(i) {
			l[next] = i
			next++
		}
	}
	return l, nil
}

// place writes legacy values into row at their definition positions.
func (l LegacyLayout) place(row []float64, vals *[NumLegacyCols]float64) {
	for k, i := range l {
		row[i] = vals[k]
	}
}

// GMTReader reads compact-binary .gmt legs found through a path lookup.
type GMTReader struct {
	layout LegacyLayout
	lookup mggpath.Lookup
	opts   Options
}

var _ FileReader = (*GMTReader)(nil)

func NewGMTReader(layout LegacyLayout, lookup mggpath.Lookup, opts Options) *GMTReader {
	return &GMTReader{layout: layout, lookup: lookup, opts: opts}
}

// ReadFile reads leg name. Any missing file, short header or short record
// fails the whole read.
func (r *GMTReader) ReadFile(ctx context.Context, name string) (*Track, error) {
	ctx, span := tracer.Start(ctx, "track.ReadGMT", trace.WithAttributes(attribute.String("leg", name)))
	defer span.End()

	t, err := r.readFile(ctx, name)
	if err != nil {
		r.opts.Metrics.Fail(formatGMT)
		span.RecordError(err)
		span.SetStatus(codes.Error, "read")
		r.opts.logger().ErrorContext(ctx, "track: gmt leg read failed", "leg", name, "err", err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("rows", t.NumRows()))
	return t, nil
}

func (r *GMTReader) readFile(ctx context.Context, name string) (*Track, error) {
	leg := strings.TrimSuffix(name, mggpath.Suffix)
	path, err := r.lookup.Find(leg)
	if err != nil {
		return nil, err
	}
	f, err := util.OpenFile(path)
	if err != nil {
		return nil, err
	}
	t, readErr := r.Read(ctx, leg, f)
	if err := util.CloseFile(path, f); err != nil {
		return nil, err
	}
	return t, readErr
}

// Read decodes a compact-binary leg from src.
func (r *GMTReader) Read(ctx context.Context, leg string, src io.Reader) (*Track, error) {
	var hdr [GMTHeaderSize]byte
	if _, err := io.ReadFull(src, hdr[:]); err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrLegacyHeader, leg, err)
	}
	year := int(bx.I32(hdr[0:]))
	nrows := int(bx.I32(hdr[4:]))
	agency := string(bytes.TrimRight(hdr[8:], "\x00 "))
	if nrows < 0 {
		return nil, fmt.Errorf("%w %s: negative row count %d", ErrLegacyHeader, leg, nrows)
	}

	cs := newColumnSet(NumLegacyCols, min(nrows, r.opts.capacity()))
	var (
		rec  [GMTRecordSize]byte
		vals [NumLegacyCols]float64
	)
	row := make([]float64, NumLegacyCols)
	for j := 0; j < nrows; j++ {
		if _, err := io.ReadFull(src, rec[:]); err != nil {
			return nil, fmt.Errorf("%w: %s record %d of %d: %v", record.ErrRecordDecode, leg, j, nrows, err)
		}
		vals[ColTime] = float64(bx.I32At(rec[:], 0))
		vals[ColLat] = float64(bx.I32At(rec[:], 4)) * MicroDeg
		vals[ColLon] = float64(bx.I32At(rec[:], 8)) * MicroDeg
		vals[ColGrav] = channel(bx.I16At(rec[:], 12), 0.1)
		vals[ColMag] = channel(bx.I16At(rec[:], 14), 1)
		vals[ColDepth] = channel(bx.I16At(rec[:], 16), 1)
		r.layout.place(row, &vals)
		cs.add(row, 0)
	}

	cols, segs := cs.trim()
	r.opts.Metrics.AddRows(formatGMT, len(segs))
	r.opts.logger().DebugContext(ctx, "track: gmt leg read",
		"leg", leg,
		"year", year,
		"agency", agency,
		"rows", len(segs),
	)
	return &Track{
		Name:     leg,
		Agency:   agency,
		Year:     year,
		Columns:  cols,
		Segments: segs,
		HasNaN:   cs.hasNaN,
	}, nil
}

func channel(v int16, scale float64) float64 {
	if v == GMTNoData {
		return math.NaN()
	}
	return scale * float64(v)
}
