package geo

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// EarthRadiusM is the mean Earth radius in meters.
const EarthRadiusM = 6371008.7714

// KmPerDeg is the length of one degree of arc on the mean sphere.
const KmPerDeg = 0.001 * 2.0 * math.Pi * EarthRadiusM / 360.0

var (
	ErrUnsupportedMode = errors.New("geo: unsupported distance mode")
	ErrLengthMismatch  = errors.New("geo: coordinate arrays differ in length")
)

// Mode selects how the step between two consecutive points is measured.
type Mode int

const (
	Cartesian Mode = iota
	FlatEarth
	GreatCircle
)

func (m Mode) String() string {
	switch m {
	case Cartesian:
		return "cartesian"
	case FlatEarth:
		return "flat-earth"
	case GreatCircle:
		return "great-circle"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode maps a configuration string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cartesian", "planar", "0":
		return Cartesian, nil
	case "flat-earth", "flat", "1":
		return FlatEarth, nil
	case "great-circle", "geodesic", "2":
		return GreatCircle, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedMode, s)
}

// Distances returns the cumulative along-track distance for the points
// (x[i], y[i]). d[0] is always 0. Cartesian distances are in data units,
// the two geographic modes return kilometers for x=lon, y=lat in degrees.
func Distances(x, y []float64, mode Mode) ([]float64, error) {
	var step func(x0, y0, x1, y1 float64) float64
	switch mode {
	case Cartesian:
		step = func(x0, y0, x1, y1 float64) float64 {
			return math.Hypot(x1-x0, y1-y0)
		}
	case FlatEarth:
		step = func(x0, y0, x1, y1 float64) float64 {
			dx := (x1 - x0) * cosd(0.5*(y1+y0))
			return math.Hypot(dx, y1-y0) * KmPerDeg
		}
	case GreatCircle:
		step = func(x0, y0, x1, y1 float64) float64 {
			return GreatCircleDist(x1, y1, x0, y0) * KmPerDeg
		}
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedMode, int(mode))
	}
	if len(x) != len(y) {
		return nil, fmt.Errorf("%w: %d != %d", ErrLengthMismatch, len(x), len(y))
	}

	d := make([]float64, len(x))
	for i := 1; i < len(x); i++ {
		d[i] = d[i-1] + step(x[i-1], y[i-1], x[i], y[i])
	}
	return d, nil
}

// GreatCircleDist returns the arc between two points in degrees.
func GreatCircleDist(lon0, lat0, lon1, lat1 float64) float64 {
	if lon0 == lon1 && lat0 == lat1 {
		return 0
	}
	sdlat := math.Sin(0.5 * radians(lat1-lat0))
	sdlon := math.Sin(0.5 * radians(lon1-lon0))
	a := sdlat*sdlat + cosd(lat0)*cosd(lat1)*sdlon*sdlon
	if a > 1 {
		a = 1
	}
	return degrees(2.0 * math.Asin(math.Sqrt(a)))
}

func radians(deg float64) float64 { return deg * math.Pi / 180.0 }
func degrees(rad float64) float64 { return rad * 180.0 / math.Pi }
func cosd(deg float64) float64    { return math.Cos(radians(deg)) }
