package output

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/pierrec/lz4"

	"github.com/tuannm99/x2sys/internal/alias/bx"
	"github.com/tuannm99/x2sys/internal/alias/util"
	"github.com/tuannm99/x2sys/internal/record"
	"github.com/tuannm99/x2sys/internal/track"
)

var ErrShortRow = errors.New("output: row has fewer values than the selection needs")

// Options control how rows are serialized.
type Options struct {
	Binary   bool // 8-byte little-endian floats instead of tab-separated text
	Compress bool // wrap the stream in an lz4 frame
}

// Writer serializes rows of selected columns. Column count and order are
// fixed for the life of the Writer.
type Writer struct {
	bw      *bufio.Writer
	zw      *lz4.Writer
	binary  bool
	order   []int
	need    int // smallest row length covering every selected field
	formats []string
	scratch [8]byte
	row     []float64
	err     error
}

func NewWriter(w io.Writer, sel Selection, opts Options) *Writer {
	out := &Writer{binary: opts.Binary, order: sel.Order()}
	dst := w
	if opts.Compress {
		out.zw = lz4.NewWriter(w)
		dst = out.zw
	}
	out.bw = bufio.NewWriter(dst)
	out.formats = make([]string, len(out.order))
	for k, i := range out.order {
		out.formats[k] = goFormat(sel.Schema().Fields[i].Format)
		out.need = max(out.need, i+1)
	}
	return out
}

// WriteRow writes one record. row holds every schema field in schema order.
func (w *Writer) WriteRow(row []float64) error {
	if w.err != nil {
		return w.err
	}
	if len(row) < w.need {
		return fmt.Errorf("%w: got %d, need %d", ErrShortRow, len(row), w.need)
	}
	if w.binary {
		for _, i := range w.order {
			bx.PutF64(w.scratch[:], row[i])
			w.write(w.scratch[:])
		}
		return w.err
	}
	for k, i := range w.order {
		if k > 0 {
			w.write([]byte{'\t'})
		}
		if v := row[i]; math.IsNaN(v) {
			w.write([]byte("NaN"))
		} else {
			w.write(fmt.Appendf(w.scratch[:0], w.formats[k], v))
		}
	}
	w.write([]byte{'\n'})
	return w.err
}

func (w *Writer) write(b []byte) {
	if w.err != nil {
		return
	}
	if _, err := w.bw.Write(b); err != nil {
		w.err = fmt.Errorf("output: write: %w", err)
	}
}

// WriteTrack writes every row of t.
func (w *Writer) WriteTrack(t *track.Track) error {
	for j := 0; j < t.NumRows(); j++ {
		w.row = t.Row(j, w.row)
		if err := w.WriteRow(w.row); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes buffered output and ends the lz4 frame. The underlying
// writer is left open.
func (w *Writer) Close() error {
	if w.err != nil {
		return w.err
	}
	if err := w.bw.Flush(); err != nil {
		return fmt.Errorf("output: flush: %w", err)
	}
	if w.zw != nil {
		if err := w.zw.Close(); err != nil {
			return fmt.Errorf("output: close lz4 frame: %w", err)
		}
	}
	return nil
}

// NewReader undoes Options.Compress on a stream produced by Writer.
func NewReader(r io.Reader, opts Options) io.Reader {
	if opts.Compress {
		return lz4.NewReader(r)
	}
	return r
}

// WriteFile writes the fields named in list of t to path. The column list
// is resolved before the file is created, so an unknown name leaves no
// file behind.
func WriteFile(path string, s *record.Schema, list string, t *track.Track, opts Options) error {
	sel, err := Select(s, list)
	if err != nil {
		return err
	}
	f, err := util.CreateFile(path)
	if err != nil {
		return err
	}
	w := NewWriter(f, sel, opts)
	if err := w.WriteTrack(t); err != nil {
		util.CloseFileFunc(path, f)
		return err
	}
	if err := w.Close(); err != nil {
		util.CloseFileFunc(path, f)
		return err
	}
	return util.CloseFile(path, f)
}
