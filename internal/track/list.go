package track

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/tuannm99/x2sys/internal/alias/util"
)

// ReadList loads a track-name list: the first word of every non-blank line.
func ReadList(path string) ([]string, error) {
	f, err := util.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer util.CloseFileFunc(path, f)

	var names []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if w := strings.Fields(sc.Text()); len(w) > 0 {
			names = append(names, w[0])
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("track: read list %s: %w", path, err)
	}
	return names, nil
}
