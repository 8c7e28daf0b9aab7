package track

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuannm99/x2sys/internal/alias/bx"
	"github.com/tuannm99/x2sys/internal/alias/util"
	"github.com/tuannm99/x2sys/internal/metrics"
	"github.com/tuannm99/x2sys/internal/mggpath"
	"github.com/tuannm99/x2sys/internal/record"
)

func mustSchema(t *testing.T, name, def string) *record.Schema {
	t.Helper()
	s, err := record.Parse(name, strings.NewReader(def))
	require.NoError(t, err)
	return s
}

func writeFile(t *testing.T, name string, body []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, body, 0o644))
	return path
}

const xyzDef = "lon a y 0 1 0 %g\nlat a y 0 1 0 %g\ndepth a n -9999 1 0 %g\n"

func TestReader_EndToEndTokens(t *testing.T) {
	s := mustSchema(t, "xyz", xyzDef)
	path := writeFile(t, "leg01.xyz", []byte("120.5 10.25 -9999\n121 10.5 3200\n"))

	tr, err := NewReader(s, Options{DefaultYear: 1999}).ReadFile(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "leg01", tr.Name)
	assert.Equal(t, 1999, tr.Year)
	require.Equal(t, 2, tr.NumRows())
	assert.Equal(t, []float64{120.5, 121}, tr.Columns[0])
	assert.Equal(t, []float64{10.25, 10.5}, tr.Columns[1])
	assert.True(t, math.IsNaN(tr.Columns[2][0]))
	assert.Equal(t, 3200.0, tr.Columns[2][1])
	assert.Equal(t, []bool{false, false, true}, tr.HasNaN)
	assert.Equal(t, []int{0, 0}, tr.Segments)
	assert.NoError(t, tr.Diagnostics)

	assert.Equal(t, []float64{121, 10.5, 3200}, tr.Row(1, nil))
}

func TestReader_GrowthAndTrim(t *testing.T) {
	const initial = 4
	const rows = 3*initial + 1
	s := mustSchema(t, "xy", "x a y 0 1 0 %g\ny a y 0 1 0 %g\n")

	var b strings.Builder
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&b, "%d %d\n", i, -i)
	}
	path := writeFile(t, "grow.xy", []byte(b.String()))

	tr, err := NewReader(s, Options{InitialCapacity: initial}).ReadFile(context.Background(), path)
	require.NoError(t, err)

	require.Equal(t, rows, tr.NumRows())
	for i, col := range tr.Columns {
		assert.Len(t, col, rows, "column %d", i)
		assert.Equal(t, rows, cap(col), "column %d", i)
	}
	assert.Len(t, tr.Segments, rows)
	assert.Equal(t, rows, cap(tr.Segments))
	assert.Equal(t, float64(rows-1), tr.Columns[0][rows-1])
	assert.Equal(t, -float64(rows-1), tr.Columns[1][rows-1])
}

func TestReader_SegmentIDs(t *testing.T) {
	s := mustSchema(t, "ms", "#MULTISEG\nx a y 0 1 0 %g\ny a y 0 1 0 %g\n")

	cases := []struct {
		name string
		body string
		want []int
	}{
		{"no leading marker", "1 1\n2 2\n> a\n> b\n3 3\n4 4\n>\n5 5\n", []int{0, 0, 1, 1, 2}},
		{"leading marker", "> first\n1 1\n2 2\n# comment\n> b\n3 3\n", []int{0, 0, 1}},
		{"no markers", "1 1\n2 2\n", []int{0, 0}},
	}
	for _, c := range cases {
		tr, err := NewReader(s, Options{}).Read(context.Background(), c.name, strings.NewReader(c.body))
		require.NoError(t, err, c.name)
		assert.Equal(t, c.want, tr.Segments, c.name)
	}
}

func TestReader_SegmentsOffWithoutMultiSeg(t *testing.T) {
	s := mustSchema(t, "plain", "x a y 0 1 0 %g\n")
	tr, err := NewReader(s, Options{}).Read(context.Background(), "p", strings.NewReader("1\n>\n2\n"))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0}, tr.Segments)
}

func TestReader_SkipsHeaderLines(t *testing.T) {
	s := mustSchema(t, "hdr", "#SKIP 2\nx a y 0 1 0 %g\ny a y 0 1 0 %g\n")
	body := "cruise 42 started\nnot a number line\n7 8\n"
	tr, err := NewReader(s, Options{}).Read(context.Background(), "hdr", strings.NewReader(body))
	require.NoError(t, err)
	require.Equal(t, 1, tr.NumRows())
	assert.Equal(t, 7.0, tr.Columns[0][0])
}

func TestReader_BinarySkipsHeaderBytes(t *testing.T) {
	s := mustSchema(t, "bin", "#BINARY\n#SKIP 4\nt i y 0 1 0 %g\nz h n -1 0.5 0 %g\n")

	var buf bytes.Buffer
	buf.WriteString("HDR!")
	rec := make([]byte, s.RecordLength())
	for _, v := range []struct {
		t int32
		z int16
	}{{10, 8}, {20, -1}, {30, 3}} {
		bx.PutI32(rec[0:], v.t)
		bx.PutI16(rec[4:], v.z)
		buf.Write(rec)
	}
	path := writeFile(t, "track.bin", buf.Bytes())

	tr, err := NewReader(s, Options{}).ReadFile(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, 3, tr.NumRows())
	assert.Equal(t, []float64{10, 20, 30}, tr.Columns[0])
	assert.Equal(t, 4.0, tr.Columns[1][0])
	assert.True(t, math.IsNaN(tr.Columns[1][1]))
	assert.Equal(t, 1.5, tr.Columns[1][2])
}

func TestReader_StopsAtBadRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.NewCollector(reg)
	require.NoError(t, err)

	s := mustSchema(t, "xy", "x a y 0 1 0 %g\ny a y 0 1 0 %g\n")
	body := "1 2\n3 4\n5\n7 8\n"
	tr, err := NewReader(s, Options{Metrics: m}).Read(context.Background(), "bad", strings.NewReader(body))
	require.NoError(t, err)

	assert.Equal(t, 2, tr.NumRows())
	assert.ErrorIs(t, tr.Diagnostics, record.ErrRecordDecode)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RowsRead.WithLabelValues(formatGeneric)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReadFailures.WithLabelValues(formatGeneric)))
}

func TestReader_MissingFile(t *testing.T) {
	s := mustSchema(t, "xy", "x a y 0 1 0 %g\n")
	_, err := NewReader(s, Options{}).ReadFile(context.Background(), filepath.Join(t.TempDir(), "none"))
	assert.ErrorIs(t, err, util.ErrFileOpen)
}

func TestReader_EmptyFile(t *testing.T) {
	s := mustSchema(t, "xy", "x a y 0 1 0 %g\ny a y 0 1 0 %g\n")
	tr, err := NewReader(s, Options{}).ReadFile(context.Background(), writeFile(t, "empty.xy", nil))
	require.NoError(t, err)
	assert.Equal(t, 0, tr.NumRows())
	assert.Len(t, tr.Columns, 2)
	assert.Empty(t, tr.Columns[0])
}

// legacyDef lists lat before lon, the way classic gmt definitions do.
const legacyDef = `#GEO
t a y 0 1 0 %10.0lf
lat a y 0 1 0 %10.5lf
lon a y 0 1 0 %10.5lf
faa a y 0 1 0 %7.1lf
mag a y 0 1 0 %7.0lf
top a y 0 1 0 %7.0lf
`

func TestReaderFor(t *testing.T) {
	lookup := mggpath.NewDirs()

	r, err := ReaderFor(mustSchema(t, record.NameGMT, legacyDef), lookup, Options{})
	require.NoError(t, err)
	assert.IsType(t, &GMTReader{}, r)

	r, err = ReaderFor(mustSchema(t, record.NameMGD77, legacyDef), lookup, Options{})
	require.NoError(t, err)
	assert.IsType(t, &MGD77Reader{}, r)

	r, err = ReaderFor(mustSchema(t, "xyz", "lon a y 0 1 0 %g\nlat a y 0 1 0 %g\n"), lookup, Options{})
	require.NoError(t, err)
	assert.IsType(t, &Reader{}, r)
}

func TestReaderFor_RejectsUnfitLegacyDefinition(t *testing.T) {
	cases := map[string]string{
		"too few":  "time a y 0 1 0 %g\nlon a y 0 1 0 %g\nlat a y 0 1 0 %g\n",
		"too many": legacyDef + "extra a y 0 1 0 %g\n",
		"no time":  "a a y 0 1 0 %g\nlon a y 0 1 0 %g\nlat a y 0 1 0 %g\nb a y 0 1 0 %g\nc a y 0 1 0 %g\nd a y 0 1 0 %g\n",
	}
	for name, def := range cases {
		_, err := ReaderFor(mustSchema(t, record.NameGMT, def), mggpath.NewDirs(), Options{})
		assert.ErrorIs(t, err, record.ErrSchemaParse, name)
		var perr *record.ParseError
		assert.ErrorAs(t, err, &perr, name)
	}
}

func TestNewLegacyLayout(t *testing.T) {
	l, err := NewLegacyLayout(mustSchema(t, record.NameGMT, legacyDef))
	require.NoError(t, err)
	assert.Equal(t, LegacyLayout{0, 2, 1, 3, 4, 5}, l)

	def := "lon a y 0 1 0 %g\ngrav a y 0 1 0 %g\nlat a y 0 1 0 %g\nmag a y 0 1 0 %g\ntime a y 0 1 0 %g\ndepth a y 0 1 0 %g\n"
	l, err = NewLegacyLayout(mustSchema(t, record.NameMGD77, def))
	require.NoError(t, err)
	assert.Equal(t, LegacyLayout{4, 0, 2, 1, 3, 5}, l)
}

func TestDummyTimes(t *testing.T) {
	assert.Equal(t, []float64{0, 1, 2}, DummyTimes(3))
	assert.Empty(t, DummyTimes(0))
}

func TestReadList(t *testing.T) {
	path := writeFile(t, "tracks.lis", []byte("c2104 extra words\n\n  v3312\nmgd01.77\n"))
	names, err := ReadList(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"c2104", "v3312", "mgd01.77"}, names)

	_, err = ReadList(filepath.Join(t.TempDir(), "missing.lis"))
	assert.ErrorIs(t, err, util.ErrFileOpen)
}
