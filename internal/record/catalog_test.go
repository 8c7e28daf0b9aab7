package record

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuannm99/x2sys/internal/alias/util"
	"github.com/tuannm99/x2sys/internal/geo"
)

const cardDef = `# card layout example
#SKIP 2
#MULTISEG *
#GEO
time A Y 0     1    0 %10.1f 0-9
lon  A Y 0     1    0 %9.5f  10-19
lat  A Y 0     1    0 %9.5f  20-29
grav A N -9999 0.1  0 %7.1f  30-37
`

func TestParse_CardDefinition(t *testing.T) {
	s, err := Parse("card", strings.NewReader(cardDef))
	require.NoError(t, err)

	assert.Equal(t, "card", s.Name)
	assert.Equal(t, 4, s.NumFields())
	assert.True(t, s.ASCII)
	assert.Equal(t, 2, s.Skip)
	assert.True(t, s.MultiSegment)
	assert.Equal(t, byte('*'), s.SegmentMarker)
	assert.True(t, s.Geographic)
	assert.Equal(t, EncodingCard, s.Encoding())

	assert.Equal(t, 1, s.XCol)
	assert.Equal(t, 2, s.YCol)
	assert.Equal(t, 0, s.TCol)
	assert.Equal(t, 1, s.NumDataCols())
	assert.Equal(t, 0, s.RecordLength())
	assert.Equal(t, 72, s.RecordSize())

	lon := s.Fields[1]
	assert.Equal(t, FieldCard, lon.Type)
	assert.False(t, lon.HasNaNProxy)
	assert.False(t, lon.DoScale)
	assert.Equal(t, 10, lon.StartCol)
	assert.Equal(t, 10, lon.NumCols)

	grav := s.Fields[3]
	assert.True(t, grav.HasNaNProxy)
	assert.Equal(t, -9999.0, grav.NaNProxy)
	assert.True(t, grav.DoScale)
	assert.Equal(t, "%7.1f", grav.Format)
	assert.Equal(t, 8, grav.NumCols)
}

func TestParse_BinaryDefinition(t *testing.T) {
	def := "#BINARY\n#SKIP 16\n" +
		"t d y 0 1 0 %.0f\n" +
		"x i Y 0 1e-6 0 %.6f\n" +
		"y i Y 0 1e-6 0 %.6f\n" +
		"q c n 0 1 0 %.0f\n" +
		"u u n 255 1 0 %.0f\n" +
		"h h n 0 1 0 %.0f\n" +
		"l l n 0 1 0 %.0f\n" +
		"f f n 0 1 0 %g\n"
	s, err := Parse("bin", strings.NewReader(def))
	require.NoError(t, err)

	assert.False(t, s.ASCII)
	assert.Equal(t, EncodingBinary, s.Encoding())
	assert.Equal(t, 16, s.Skip)
	assert.Equal(t, 8+4+4+1+1+2+8+4, s.RecordLength())
	assert.Equal(t, 5, s.NumDataCols())
	assert.Equal(t, byte(DefaultSegmentMarker), s.SegmentMarker)
	assert.False(t, s.MultiSegment)
}

func TestParse_RolesTakeFirstMatch(t *testing.T) {
	def := "x a y 0 1 0 %g\nlon a y 0 1 0 %g\ny a y 0 1 0 %g\n"
	s, err := Parse("roles", strings.NewReader(def))
	require.NoError(t, err)
	assert.Equal(t, 0, s.XCol)
	assert.Equal(t, 2, s.YCol)
	assert.Equal(t, -1, s.TCol)
}

func TestParse_LegacyNamesAreGeographic(t *testing.T) {
	def := "time a y 0 1 0 %g\nlon a y 0 1 0 %g\nlat a y 0 1 0 %g\n"

	s, err := Parse(NameGMT, strings.NewReader(def))
	require.NoError(t, err)
	assert.True(t, s.Geographic)
	assert.Equal(t, geo.Lon0To360, s.LonDomain)

	s, err = Parse(NameMGD77, strings.NewReader(def))
	require.NoError(t, err)
	assert.True(t, s.Geographic)
	assert.Equal(t, geo.LonPM180, s.LonDomain)
}

func TestParse_Rejects(t *testing.T) {
	cases := map[string]string{
		"short line":        "lon a y 0 1 0\n",
		"unknown type":      "lon z y 0 1 0 %g\n",
		"long type":         "lon ab y 0 1 0 %g\n",
		"bad proxy":         "lon a y none 1 0 %g\n",
		"bad format":        "lon a y 0 1 0 g\n",
		"two conversions":   "lon a y 0 1 0 %f/%f\n",
		"only percent":      "lon a y 0 1 0 100%%\n",
		"card no columns":   "lon A y 0 1 0 %g\n",
		"card bad columns":  "lon A y 0 1 0 %g 9-3\n",
		"duplicate":         "lon a y 0 1 0 %g\nlon a y 0 1 0 %g\n",
		"bad skip":          "#SKIP many\nlon a y 0 1 0 %g\n",
		"negative skip":     "#SKIP -1\nlon a y 0 1 0 %g\n",
		"long marker":       "#MULTISEG >>\nlon a y 0 1 0 %g\n",
		"card with token":   "lon A y 0 1 0 %g 0-9\nlat a y 0 1 0 %g\n",
		"token with binary": "lon a y 0 1 0 %g\nlat d y 0 1 0 %g\n",
		"no fields":         "#GEO\n# nothing here\n",
	}
	for name, def := range cases {
		_, err := Parse("bad", strings.NewReader(def))
		require.Error(t, err, name)
		assert.ErrorIs(t, err, ErrSchemaParse, name)

		var pe *ParseError
		require.ErrorAs(t, err, &pe, name)
		assert.Equal(t, "bad", pe.Schema, name)
	}
}

func TestParse_FormatWithLiteralPercent(t *testing.T) {
	s, err := Parse("pct", strings.NewReader("share a y 0 1 0 %5.1f%%\n"))
	require.NoError(t, err)
	assert.Equal(t, "%5.1f%%", s.Fields[0].Format)
}

func TestParse_ErrorCarriesLine(t *testing.T) {
	_, err := Parse("bad", strings.NewReader("# header\nlon a y 0 1 0 %g\nlat q y 0 1 0 %g\n"))
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 3, pe.Line)
	assert.Contains(t, err.Error(), "bad.def line 3")
}

func TestCatalog_LoadCachesByContent(t *testing.T) {
	home := t.TempDir()
	cat := NewCatalog(home)
	path := filepath.Join(home, "trk.def")
	require.Equal(t, path, cat.Path("trk"))

	require.NoError(t, os.WriteFile(path, []byte("lon a y 0 1 0 %g\nlat a y 0 1 0 %g\n"), 0o644))
	first, err := cat.Load("trk")
	require.NoError(t, err)
	again, err := cat.Load("trk")
	require.NoError(t, err)
	assert.Same(t, first, again)

	require.NoError(t, os.WriteFile(path, []byte("lon a y 0 1 0 %g\nlat a y 0 1 0 %g\nz a n -1 1 0 %g\n"), 0o644))
	changed, err := cat.Load("trk")
	require.NoError(t, err)
	assert.NotSame(t, first, changed)
	assert.Equal(t, 3, changed.NumFields())
	assert.NotEqual(t, first.Sum64(), changed.Sum64())
}

func TestCatalog_MissingDefinition(t *testing.T) {
	_, err := NewCatalog(t.TempDir()).Load("nothing")
	assert.ErrorIs(t, err, util.ErrFileOpen)
}
