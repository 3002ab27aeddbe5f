package extract

import (
	"errors"
	"fmt"
)

// ErrUnsupportedFormat indicates the uploaded file is not a readable xlsx workbook.
var ErrUnsupportedFormat = errors.New("unsupported workbook format")

// ErrInvalidColumnSelection indicates a bad or conflicting column choice.
var ErrInvalidColumnSelection = errors.New("invalid column selection")

// ErrPackaging indicates the output archive could not be written.
var ErrPackaging = errors.New("packaging failed")

// FileError attaches the offending upload's filename to a pipeline error.
type FileError struct {
	Filename string
	Err      error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Filename, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}
