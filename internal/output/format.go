package output

import "strings"

// goFormat turns a definition's printf-style format into one fmt accepts
// for a float64 argument. Length modifiers are dropped and integer
// conversions print the value rounded with no decimals.
func goFormat(c string) string {
	i := strings.IndexByte(c, '%')
	if i < 0 || i == len(c)-1 {
		return "%g"
	}
	j := i + 1
	for j < len(c) && strings.IndexByte("-+ #0", c[j]) >= 0 {
		j++
	}
	for j < len(c) && c[j] >= '0' && c[j] <= '9' {
		j++
	}
	hasPrec := false
	if j < len(c) && c[j] == '.' {
		hasPrec = true
		j++
		for j < len(c) && c[j] >= '0' && c[j] <= '9' {
			j++
		}
	}
	verb := c[i:j]
	for j < len(c) && strings.IndexByte("lhLqjzt", c[j]) >= 0 {
		j++
	}
	if j == len(c) {
		return "%g"
	}

	var conv string
	switch c[j] {
	case 'f', 'F', 'e', 'E', 'g', 'G':
		conv = string(c[j])
	case 'd', 'i', 'u', 'o', 'x', 'X', 'c':
		if hasPrec {
			verb = verb[:strings.IndexByte(verb, '.')]
		}
		conv = ".0f"
	default:
		return "%g"
	}
	return c[:i] + verb + conv + c[j+1:]
}
