package extract

import (
	"bytes"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
)

// Kind is the closed set of document content kinds.
type Kind string

const (
	KindText     Kind = "text"
	KindPDF      Kind = "pdf"
	KindMarkdown Kind = "markdown"
)

// ParseKind validates a stored kind value.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindText, KindPDF, KindMarkdown:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, s)
	}
}

// MediaType returns the canonical MIME type for k.
func (k Kind) MediaType() string {
	switch k {
	case KindPDF:
		return "application/pdf"
	case KindMarkdown:
		return "text/markdown"
	default:
		return "text/plain"
	}
}

var pdfMagic = []byte("%PDF-")

// Detect determines the kind from the content signature. The filename
// extension only distinguishes markdown from plain text, since both
// share the text/plain signature.
func Detect(data []byte, filename string) (Kind, error) {
	if bytes.HasPrefix(data, pdfMagic) {
		return KindPDF, nil
	}

	mediaType := http.DetectContentType(data)
	if !strings.HasPrefix(mediaType, "text/") {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, mediaType)
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".md", ".markdown":
		return KindMarkdown, nil
	default:
		return KindText, nil
	}
}
