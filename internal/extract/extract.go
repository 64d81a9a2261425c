// Package extract turns uploaded document bytes into plain text.
// Plain text and markdown are decoded verbatim; PDFs are read page by page
// from their text layer. There is no OCR fallback.
package extract

import (
	"fmt"
	"unicode/utf8"
)

// PageDelimiter separates the text of consecutive PDF pages.
const PageDelimiter = "\n"

// Result is the extracted text and its metadata.
type Result struct {
	Text      string
	PageCount *int
}

// Extract converts data of the given kind into text. It has no side effects.
func Extract(data []byte, kind Kind) (Result, error) {
	switch kind {
	case KindText, KindMarkdown:
		return decodeText(data)
	case KindPDF:
		return extractPDF(data)
	default:
		return Result{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, kind)
	}
}

// DetectAndExtract detects the kind of data and extracts its text.
func DetectAndExtract(data []byte, filename string) (Kind, Result, error) {
	kind, err := Detect(data, filename)
	if err != nil {
		return "", Result{}, err
	}
	res, err := Extract(data, kind)
	if err != nil {
		return "", Result{}, err
	}
	return kind, res, nil
}

func decodeText(data []byte) (Result, error) {
	if !utf8.Valid(data) {
		return Result{}, ErrDecoding
	}
	return Result{Text: string(data)}, nil
}
