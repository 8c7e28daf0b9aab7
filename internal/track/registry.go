package track

import (
	"github.com/tuannm99/x2sys/internal/mggpath"
	"github.com/tuannm99/x2sys/internal/record"
)

// ReaderFor picks the reader a definition name implies: the gmt and mgd77
// definitions have fixed-layout readers, every other schema is read by
// the generic Reader. A gmt or mgd77 definition that cannot hold the fixed
// layout is refused with a *record.ParseError.
func ReaderFor(s *record.Schema, lookup mggpath.Lookup, opts Options) (FileReader, error) {
	switch s.Name {
	case record.NameGMT, record.NameMGD77:
		layout, err := NewLegacyLayout(s)
		if err != nil {
			return nil, err
		}
		if s.Name == record.NameGMT {
			return NewGMTReader(layout, lookup, opts), nil
		}
		return NewMGD77Reader(layout, opts), nil
	default:
		return NewReader(s, opts), nil
	}
}
