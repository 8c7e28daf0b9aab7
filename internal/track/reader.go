package track

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tuannm99/x2sys/internal/alias/util"
	"github.com/tuannm99/x2sys/internal/record"
)

const formatGeneric = "generic"

// Reader reads any track file whose layout a schema describes.
type Reader struct {
	s    *record.Schema
	opts Options
}

var _ FileReader = (*Reader)(nil)

func NewReader(s *record.Schema, opts Options) *Reader {
	return &Reader{s: s, opts: opts}
}

// ReadFile reads the whole file at path. A record that cannot be decoded
// ends the read: the rows before it are returned and the failure is kept in
// Track.Diagnostics. Open and close failures are returned as errors.
func (r *Reader) ReadFile(ctx context.Context, path string) (*Track, error) {
	ctx, span := tracer.Start(ctx, "track.ReadFile", trace.WithAttributes(
		attribute.String("path", path),
		attribute.String("schema", r.s.Name),
	))
	defer span.End()

	f, err := util.OpenFile(path)
	if err != nil {
		r.opts.Metrics.Fail(formatGeneric)
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
		r.opts.Metrics.Fail(formatGeneric)
		span.RecordError(readErr)
		span.SetStatus(codes.Error, "read")
		return nil, readErr
	}
	span.SetAttributes(attribute.Int("rows", t.NumRows()))
	return t, nil
}

// Read decodes a track from an already opened stream. For binary schemas
// the header bytes are skipped by seeking when src supports it.
func (r *Reader) Read(ctx context.Context, name string, src io.Reader) (*Track, error) {
	log := r.opts.logger()
	br, err := r.skipHeader(src)
	if err != nil {
		return nil, err
	}

	dec := record.NewDecoder(br, r.s)
	cs := newColumnSet(r.s.NumFields(), r.opts.capacity())
	row := make([]float64, r.s.NumFields())

	seg := 0
	if r.s.MultiSegment {
		seg = -1 // the first row always opens segment 0
	}
	var diag error
	for {
		err := dec.Decode(row)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			diag = multierror.Append(diag, err)
			r.opts.Metrics.Fail(formatGeneric)
			log.WarnContext(ctx, "track: read stopped at undecodable record",
				"file", name,
				"rows", cs.len(),
				"err", err,
			)
			break
		}
		if r.s.MultiSegment && (dec.Boundary() || cs.len() == 0) {
			seg++
		}
		cs.add(row, seg)
	}

	cols, segs := cs.trim()
	r.opts.Metrics.AddRows(formatGeneric, len(segs))
	log.DebugContext(ctx, "track: file read",
		"file", name,
		"rows", len(segs),
		"segments", seg+1,
	)
	return &Track{
		Name:        trackName(name),
		Year:        r.opts.DefaultYear,
		Columns:     cols,
		Segments:    segs,
		HasNaN:      cs.hasNaN,
		Diagnostics: diag,
	}, nil
}

// skipHeader drops Skip lines of an ASCII file, or Skip bytes of a binary one.
func (r *Reader) skipHeader(src io.Reader) (*bufio.Reader, error) {
	if !r.s.ASCII && r.s.Skip > 0 {
		if sk, ok := src.(io.Seeker); ok {
			if _, err := sk.Seek(int64(r.s.Skip), io.SeekCurrent); err != nil {
				return nil, fmt.Errorf("track: skip %d header bytes: %w", r.s.Skip, err)
			}
		} else if _, err := io.CopyN(io.Discard, src, int64(r.s.Skip)); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("track: skip %d header bytes: %w", r.s.Skip, err)
		}
	}
	br := bufio.NewReader(src)
	if r.s.ASCII {
		for i := 0; i < r.s.Skip; i++ {
			if _, err := br.ReadString('\n'); err != nil {
				if errors.Is(err, io.EOF) {
					break
				}
				return nil, fmt.Errorf("track: skip header line %d: %w", i+1, err)
			}
		}
	}
	return br, nil
}

func trackName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
