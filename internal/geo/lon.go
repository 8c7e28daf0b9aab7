package geo

import "math"

// LonDomain is the interval geographic x values are folded into.
type LonDomain int

const (
	// [0, 360)
	Lon0To360 LonDomain = iota
	// [-180, 180]
	LonPM180
	// [-360, 0]
	LonM360To0
)

// AdjustLon folds lon into the domain d. NaN and infinities are returned
// unchanged.
func AdjustLon(lon float64, d LonDomain) float64 {
	if math.IsNaN(lon) || math.IsInf(lon, 0) {
		return lon
	}
	lon = math.Mod(lon, 360.0) // (-360, 360)
	switch d {
	case LonPM180:
		if lon < -180.0 {
			lon += 360.0
		} else if lon > 180.0 {
			lon -= 360.0
		}
	case LonM360To0:
		if lon > 0.0 {
			lon -= 360.0
		}
	default:
		if lon < 0.0 {
			lon += 360.0
		}
		// a tiny negative remainder rounds up to 360
		if lon >= 360.0 {
			lon -= 360.0
		}
	}
	return lon
}
