package track

import (
	"context"
	"log/slog"
	"math"

	"go.opentelemetry.io/otel"

	"github.com/tuannm99/x2sys/internal/metrics"
)

// DefaultCapacity is the number of rows allocated before the first doubling.
const DefaultCapacity = 2048

var tracer = otel.Tracer("github.com/tuannm99/x2sys/internal/track")

// Track is one file's worth of column-major observations. Every column and
// Segments have NumRows entries.
type Track struct {
	Name     string
	Agency   string // compact-binary legs only
	Year     int
	Columns  [][]float64
	Segments []int
	HasNaN   []bool // per column: at least one NaN was stored

	// Diagnostics collects non-fatal problems: skipped records, or the
	// record that ended a read early.
	Diagnostics error
}

func (t *Track) NumRows() int { return len(t.Segments) }

// Row copies row i into dst, which is grown as needed, and returns it.
func (t *Track) Row(i int, dst []float64) []float64 {
	dst = dst[:0]
	for _, c := range t.Columns {
		dst = append(dst, c[i])
	}
	return dst
}

// FileReader reads one named track.
type FileReader interface {
	ReadFile(ctx context.Context, name string) (*Track, error)
}

// Options are shared by all readers.
type Options struct {
	Logger          *slog.Logger       // nil: slog.Default()
	Metrics         *metrics.Collector // nil: not recorded
	InitialCapacity int                // 0: DefaultCapacity
	DefaultYear     int                // year for tracks that carry none
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o Options) capacity() int {
	if o.InitialCapacity > 0 {
		return o.InitialCapacity
	}
	return DefaultCapacity
}

// columnSet accumulates rows with amortized doubling; trim hands out
// exact-length slices.
type columnSet struct {
	cols   [][]float64
	seg    []int
	hasNaN []bool
}

func newColumnSet(nfields, capacity int) *columnSet {
	c := &columnSet{
		cols:   make([][]float64, nfields),
		seg:    make([]int, 0, capacity),
		hasNaN: make([]bool, nfields),
	}
	for i := range c.cols {
		c.cols[i] = make([]float64, 0, capacity)
	}
	return c
}

func (c *columnSet) len() int { return len(c.seg) }

func (c *columnSet) add(row []float64, seg int) {
	if len(c.seg) == cap(c.seg) {
		c.grow()
	}
	for i, v := range row {
		c.cols[i] = append(c.cols[i], v)
		if math.IsNaN(v) {
			c.hasNaN[i] = true
		}
	}
	c.seg = append(c.seg, seg)
}

func (c *columnSet) grow() {
	n := 2 * cap(c.seg)
	if n == 0 {
		n = 1
	}
	for i, col := range c.cols {
		next := make([]float64, len(col), n)
		copy(next, col)
		c.cols[i] = next
	}
	seg := make([]int, len(c.seg), n)
	copy(seg, c.seg)
	c.seg = seg
}

// trim returns the columns cut to the row count with no spare capacity.
func (c *columnSet) trim() ([][]float64, []int) {
	n := len(c.seg)
	cols := make([][]float64, len(c.cols))
	for i, col := range c.cols {
		cols[i] = make([]float64, n)
		copy(cols[i], col)
	}
	seg := make([]int, n)
	copy(seg, c.seg)
	return cols, seg
}

// DummyTimes returns 0, 1, ..., n-1 for tracks without a time column.
func DummyTimes(n int) []float64 {
	t := make([]float64, n)
	for i := range t {
		t[i] = float64(i)
	}
	return t
}
