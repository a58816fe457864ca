package documents

import "errors"

var (
	ErrNotFound     = errors.New("document not found")
	ErrConflict     = errors.New("storage path already in use")
	ErrInvalidInput = errors.New("invalid input")
	ErrTooLarge     = errors.New("file too large")
	ErrExtraction   = errors.New("text extraction failed")
	ErrStorage      = errors.New("file storage failed")
)
