package extract

import "errors"

var (
	// ErrDecoding indicates text content is not valid UTF-8.
	ErrDecoding = errors.New("invalid text encoding")

	// ErrUnsupportedFormat indicates the content kind is not supported or
	// a PDF has no extractable text layer.
	ErrUnsupportedFormat = errors.New("unsupported document format")
)
