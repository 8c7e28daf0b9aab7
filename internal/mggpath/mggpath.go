// Package mggpath finds compact-binary .gmt legs on disk.
package mggpath

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tuannm99/x2sys/internal/alias/util"
)

// Suffix is the file extension of compact-binary legs.
const Suffix = ".gmt"

var ErrLegNotFound = errors.New("mggpath: cannot find leg")

// Lookup resolves a leg name to a readable file path.
type Lookup interface {
	Find(leg string) (string, error)
}

var _ Lookup = (*Dirs)(nil)

// Dirs searches the working directory first, then each listed directory
// in order, for <leg>.gmt.
type Dirs struct {
	dirs []string
}

func NewDirs(dirs ...string) *Dirs {
	return &Dirs{dirs: dirs}
}

// Load reads a paths file: one directory per line, '#' lines and blank
// lines ignored.
func Load(pathsFile string) (*Dirs, error) {
	f, err := util.OpenFile(pathsFile)
	if err != nil {
		return nil, err
	}
	defer util.CloseFileFunc(pathsFile, f)

	var dirs []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		dirs = append(dirs, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("mggpath: read %s: %w", pathsFile, err)
	}
	return NewDirs(dirs...), nil
}

// Dirs returns the search directories after the working directory.
func (d *Dirs) Dirs() []string { return d.dirs }

// Find returns the path of leg; a trailing .gmt on leg is ignored.
func (d *Dirs) Find(leg string) (string, error) {
	leg = strings.TrimSuffix(leg, Suffix)
	name := leg + Suffix
	candidates := make([]string, 0, len(d.dirs)+1)
	candidates = append(candidates, name)
	for _, dir := range d.dirs {
		candidates = append(candidates, filepath.Join(dir, name))
	}
	for _, p := range candidates {
		if st, err := os.Stat(p); err == nil && st.Mode().IsRegular() {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w %s", ErrLegNotFound, leg)
}
