package track

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/hashicorp/go-multierror"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tuannm99/x2sys/internal/alias/util"
	"github.com/tuannm99/x2sys/internal/mgd77"
	"github.com/tuannm99/x2sys/internal/record"
)

const formatMGD77 = "mgd77"

// MGD77Reader reads fixed-width MGD77 text files. Bad records are skipped
// and reported in Track.Diagnostics.
type MGD77Reader struct {
	layout LegacyLayout
	opts   Options
}

var _ FileReader = (*MGD77Reader)(nil)

func NewMGD77Reader(layout LegacyLayout, opts Options) *MGD77Reader {
	return &MGD77Reader{layout: layout, opts: opts}
}

func (r *MGD77Reader) ReadFile(ctx context.Context, path string) (*Track, error) {
	ctx, span := tracer.Start(ctx, "track.ReadMGD77", trace.WithAttributes(attribute.String("path", path)))
	defer span.End()

	f, err := util.OpenFile(path)
	if err != nil {
		r.opts.Metrics.Fail(formatMGD77)
		span.RecordError(err)
		span.SetStatus(codes.Error, "open")
		return nil, err
	}
	t, readErr := r.Read(ctx, path, f)
	if err := util.CloseFile(path, f); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "close")
		return nil, err
	}
	if readErr != nil {
		r.opts.Metrics.Fail(formatMGD77)
		span.RecordError(readErr)
		span.SetStatus(codes.Error, "read")
		return nil, readErr
	}
	span.SetAttributes(attribute.Int("rows", t.NumRows()))
	return t, nil
}

// Read decodes every data record of src; only I/O errors fail the read.
func (r *MGD77Reader) Read(ctx context.Context, name string, src io.Reader) (*Track, error) {
	log := r.opts.logger()
	br := bufio.NewReader(src)
	cs := newColumnSet(NumLegacyCols, r.opts.capacity())
	row := make([]float64, NumLegacyCols)

	var (
		dec    mgd77.Decoder
		diag   *multierror.Error
		lineNo int
		vals   [NumLegacyCols]float64
	)
	year := r.opts.DefaultYear
	skip := func(reason string, err error) {
		diag = multierror.Append(diag, fmt.Errorf("%w: record # %d: %w", record.ErrRecordDecode, lineNo, err))
		r.opts.Metrics.Skip(formatMGD77, reason)
		log.WarnContext(ctx, "track: mgd77 record skipped",
			"file", name,
			"record", lineNo,
			"reason", reason,
			"err", err,
		)
	}

	for {
		line, err := br.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("track: read %s: %w", name, err)
		}
		lineNo++
		line = strings.TrimRight(line, "\r\n")
		if !mgd77.IsDataLine(line) {
			continue
		}
		if len(line) != mgd77.RecordLength {
			skip("length", fmt.Errorf("incorrect length (%d)", len(line)))
			continue
		}
		rec, err := dec.Decode(line)
		if err != nil {
			skip("decode", err)
			continue
		}
		vals[ColTime] = float64(rec.Time)
		vals[ColLon] = float64(rec.Lon) * MicroDeg
		vals[ColLat] = float64(rec.Lat) * MicroDeg
		vals[ColGrav] = mgdChannel(rec.Grav, 0.1)
		vals[ColMag] = mgdChannel(rec.Mag, 1)
		vals[ColDepth] = mgdChannel(rec.Depth, 1)
		r.layout.place(row, &vals)
		cs.add(row, 0)
		year = rec.FirstYear
	}

	cols, segs := cs.trim()
	r.opts.Metrics.AddRows(formatMGD77, len(segs))
	t := &Track{
		Name:     trackName(name),
		Year:     year,
		Columns:  cols,
		Segments: segs,
		HasNaN:   cs.hasNaN,
	}
	if diag != nil {
		t.Diagnostics = diag
	}
	return t, nil
}

func mgdChannel(v int32, scale float64) float64 {
	if v == mgd77.NoData {
		return math.NaN()
	}
	return scale * float64(v)
}
