package util

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
)

var (
	ErrFileOpen  = errors.New("x2sys: error opening file")
	ErrFileClose = errors.New("x2sys: error closing file")
)

// OpenFile opens name read-only. Text and binary tracks are both opened
// this way, the encoding is decided per field.
func OpenFile(name string) (*os.File, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrFileOpen, name, err)
	}
	return f, nil
}

// CreateFile creates or truncates name for writing.
func CreateFile(name string) (*os.File, error) {
	f, err := os.Create(name)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrFileOpen, name, err)
	}
	return f, nil
}

// CloseFile closes f and reports a failure as ErrFileClose.
func CloseFile(name string, f *os.File) error {
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w %s: %v", ErrFileClose, name, err)
	}
	return nil
}

// CloseFileFunc is the deferred form of CloseFile for read paths where the
// close result cannot change the outcome; the failure is only logged.
func CloseFileFunc(name string, f *os.File) {
	if err := CloseFile(name, f); err != nil {
		slog.Error("close file", "err", err)
	}
}
