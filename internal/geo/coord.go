package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var ErrBadCoordinate = errors.New("geo: cannot parse coordinate")

// ParseCoordinate reads a longitude or latitude written as a decimal number
// or as dd:mm[:ss.s], optionally followed by a hemisphere letter. W and S
// make the value negative and cannot be combined with a leading minus.
func ParseCoordinate(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrBadCoordinate)
	}
	if strings.EqualFold(s, "nan") {
		return math.NaN(), nil
	}

	sign := 1.0
	switch s[len(s)-1] {
	case 'W', 'w', 'S', 's':
		sign = -1.0
		s = s[:len(s)-1]
		if strings.HasPrefix(s, "-") {
			return 0, fmt.Errorf("%w: %q: sign and hemisphere both given", ErrBadCoordinate, s)
		}
	case 'E', 'e', 'N', 'n':
		s = s[:len(s)-1]
	}

	if !strings.Contains(s, ":") {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrBadCoordinate, s)
		}
		return sign * v, nil
	}

	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q", ErrBadCoordinate, s)
	}
	if strings.HasPrefix(parts[0], "-") {
		sign = -sign
		parts[0] = parts[0][1:]
	}
	var v float64
	div := 1.0
	for _, p := range parts {
		x, err := strconv.ParseFloat(p, 64)
		if err != nil || x < 0 {
			return 0, fmt.Errorf("%w: %q", ErrBadCoordinate, s)
		}
		v += x / div
		div *= 60.0
	}
	if math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", ErrBadCoordinate, s)
	}
	return sign * v, nil
}
