// Package chunker splits extracted text into overlapping fixed-size windows
// for embedding.
package chunker

import (
	"errors"
	"fmt"
	"iter"
)

// Defaults used when no configuration is supplied.
const (
	DefaultSize    = 1000
	DefaultOverlap = 200
)

// ErrConfiguration indicates an invalid size/overlap combination.
var ErrConfiguration = errors.New("invalid chunker configuration")

// Chunk is one window of text. Start is its rune offset in the source text.
type Chunk struct {
	Index int
	Start int
	Text  string
}

// Split returns the windows of at most size runes over text, each sharing
// overlap runes with its predecessor. The sequence holds no cursor state and
// can be ranged over any number of times. Empty text yields no chunks.
func Split(text string, size, overlap int) (iter.Seq[Chunk], error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: size must be positive, got %d", ErrConfiguration, size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: overlap must not be negative, got %d", ErrConfiguration, overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("%w: overlap %d must be less than size %d", ErrConfiguration, overlap, size)
	}

	runes := []rune(text)
	step := size - overlap

	return func(yield func(Chunk) bool) {
		for i, start := 0, 0; start < len(runes); i, start = i+1, start+step {
			end := min(start+size, len(runes))
			if !yield(Chunk{Index: i, Start: start, Text: string(runes[start:end])}) {
				return
			}
			if end == len(runes) {
				return
			}
		}
	}, nil
}
