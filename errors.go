package geomodels

// #include <stdlib.h>
import "C"

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unsafe"
)

// ErrClosed is returned when a closed model is used.
var ErrClosed = errors.New("model is closed")

// Native messages raised when a data file is missing or unreadable. Geoids
// raise the first, gravity and magnetic models the second.
var notExistPrefixes = []string{
	"File not readable",
	"Cannot open ",
}

// An Error is an error raised by GeographicLib.
type Error struct {
	Op      string
	Message string
	Err     error // Underlying error, if any.
}

// newError returns a new *Error for op with the message in cErr, which it
// frees.
func newError(op string, cErr *C.char) error {
	message := "unknown error"
	if cErr != nil {
		message = C.GoString(cErr)
		C.free(unsafe.Pointer(cErr))
	}
	return &Error{
		Op:      op,
		Message: message,
	}
}

// checkDataFile returns an *Error wrapping the stat error if the data file
// name+ext does not exist in dir.
func checkDataFile(op, dir, name, ext string) error {
	_, err := os.Stat(filepath.Join(dir, name+ext))
	if errors.Is(err, fs.ErrNotExist) {
		return &Error{
			Op:      op,
			Message: err.Error(),
			Err:     err,
		}
	}
	return nil
}

func (e *Error) Error() string {
	return "geographiclib: " + e.Op + ": " + e.Message
}

// Is returns true if target is [fs.ErrNotExist] and e was caused by a
// missing or unreadable data file.
func (e *Error) Is(target error) bool {
	if target != fs.ErrNotExist {
		return false
	}
	for _, prefix := range notExistPrefixes {
		if strings.HasPrefix(e.Message, prefix) {
			return true
		}
	}
	return false
}

func (e *Error) Unwrap() error {
	return e.Err
}
