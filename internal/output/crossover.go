package output

import (
	"fmt"
	"io"
)

const (
	crossoverFormat = "%9.5f %9.5f %10.1f %10.1f %9.2f %9.2f %9.2f %8.1f %8.1f %8.1f %5.1f %5.1f\n"
	pairFormat      = "%s %d %s %d\n"
)

// Crossover is one intersection of two tracks. Index 0 of each pair
// belongs to the first track.
type Crossover struct {
	X, Y    float64
	T       [2]float64
	Cross   [3]float64 // crossover value per channel
	Mean    [3]float64 // mean value per channel
	Heading [2]float64
}

// WriteCrossover writes c as one summary line ordered
// y x t1 t2 X1 X2 X3 M1 M2 M3 h1 h2.
func WriteCrossover(w io.Writer, c Crossover) error {
	_, err := fmt.Fprintf(w, crossoverFormat,
		c.Y, c.X, c.T[0], c.T[1],
		c.Cross[0], c.Cross[1], c.Cross[2],
		c.Mean[0], c.Mean[1], c.Mean[2],
		c.Heading[0], c.Heading[1],
	)
	if err != nil {
		return fmt.Errorf("output: write crossover: %w", err)
	}
	return nil
}

// Pair identifies the two tracks whose crossovers follow it.
type Pair struct {
	Name1 string
	Year1 int
	Name2 string
	Year2 int
}

// WritePair writes the header line for a track pair. With segment set the
// line starts with "> " so it reads back as a segment marker.
func WritePair(w io.Writer, p Pair, segment bool) error {
	f := pairFormat
	if segment {
		f = "> " + pairFormat
	}
	if _, err := fmt.Fprintf(w, f, p.Name1, p.Year1, p.Name2, p.Year2); err != nil {
		return fmt.Errorf("output: write pair header: %w", err)
	}
	return nil
}
