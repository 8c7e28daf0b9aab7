// Package mgd77 decodes data records of the legacy 120-column MGD77
// marine geophysical exchange format.
package mgd77

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	// RecordLength is the width of one data record without its terminator.
	RecordLength = 120

	// NoData marks a missing gravity, magnetic or depth value.
	NoData = -32000
)

var ErrBadRecord = errors.New("mgd77: bad data record")

// Record is one decoded data record. Positions are in micro-degrees, Time in
// seconds since January 1 of FirstYear.
type Record struct {
	Time      int64
	Lat       int32
	Lon       int32
	Grav      int32 // free-air anomaly, 0.1 mGal
	Mag       int32 // residual field, nT
	Depth     int32 // corrected depth, m
	FirstYear int
}

// IsDataLine reports whether line starts with a data record type.
func IsDataLine(line string) bool {
	return line != "" && (line[0] == '3' || line[0] == '5')
}

// Decoder turns record lines into Records. The first successfully decoded
// record fixes the reference year for all later ones.
type Decoder struct {
	firstYear int
}

// FirstYear is the reference year, 0 before any record decoded.
func (d *Decoder) FirstYear() int { return d.firstYear }

// columns (0-based, end exclusive)
var (
	colYear   = [2]int{14, 16}
	colMonth  = [2]int{16, 18}
	colDay    = [2]int{18, 20}
	colHour   = [2]int{20, 22}
	colMin    = [2]int{22, 27} // minutes x 1000
	colLat    = [2]int{27, 35} // degrees x 1e5
	colLon    = [2]int{35, 44} // degrees x 1e5
	colDepth  = [2]int{51, 57} // m x 10
	colResMag = [2]int{72, 78} // nT x 10
	colFAA    = [2]int{103, 108}
)

// Decode parses one record line (terminator already removed).
func (d *Decoder) Decode(line string) (Record, error) {
	var rec Record
	if len(line) != RecordLength {
		return rec, fmt.Errorf("%w: length %d", ErrBadRecord, len(line))
	}
	if !IsDataLine(line) {
		return rec, fmt.Errorf("%w: record type %q", ErrBadRecord, line[0])
	}

	var v struct{ year, month, day, hour, minute, lat, lon int }
	for _, f := range []struct {
		name string
		col  [2]int
		dst  *int
	}{
		{"year", colYear, &v.year},
		{"month", colMonth, &v.month},
		{"day", colDay, &v.day},
		{"hour", colHour, &v.hour},
		{"minute", colMin, &v.minute},
		{"lat", colLat, &v.lat},
		{"lon", colLon, &v.lon},
	} {
		n, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(line[f.col[0]:f.col[1]]), "+"))
		if err != nil {
			return rec, fmt.Errorf("%w: bad %s", ErrBadRecord, f.name)
		}
		*f.dst = n
	}

	if v.year < 0 || v.month < 1 || v.month > 12 || v.day < 1 || v.day > 31 ||
		v.hour < 0 || v.hour > 24 || v.minute < 0 || v.minute >= 60000 {
		return rec, fmt.Errorf("%w: bad date/time", ErrBadRecord)
	}
	if abs(v.lat) > 90*100000 || abs(v.lon) > 360*100000 {
		return rec, fmt.Errorf("%w: position out of range", ErrBadRecord)
	}

	year := 1900 + v.year
	if d.firstYear == 0 {
		d.firstYear = year
	}
	at := time.Date(year, time.Month(v.month), v.day, v.hour, 0, 0, 0, time.UTC)
	origin := time.Date(d.firstYear, time.January, 1, 0, 0, 0, 0, time.UTC)
	rec.Time = int64(at.Sub(origin)/time.Second) + int64(math.Round(float64(v.minute)*0.06))

	rec.Lat = int32(v.lat * 10)
	rec.Lon = int32(v.lon * 10)
	rec.Grav = scaled(line, colFAA, 1)
	rec.Mag = scaled(line, colResMag, 10)
	rec.Depth = scaled(line, colDepth, 10)
	rec.FirstYear = d.firstYear
	return rec, nil
}

// value parses a measurement column. Blank and all-9 columns are missing.
func value(line string, c [2]int) (int, bool) {
	s := strings.TrimSpace(line[c[0]:c[1]])
	digits := strings.TrimLeft(s, "+-")
	if digits == "" || strings.Trim(digits, "9") == "" {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(s, "+"))
	if err != nil {
		return 0, false
	}
	return n, true
}

func scaled(line string, c [2]int, div float64) int32 {
	n, ok := value(line, c)
	if !ok {
		return NoData
	}
	return int32(math.Round(float64(n) / div))
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
