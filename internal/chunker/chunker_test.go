package chunker_test

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/JaimeStill/rag-lab/internal/chunker"
)

func collect(t *testing.T, text string, size, overlap int) []chunker.Chunk {
	t.Helper()
	seq, err := chunker.Split(text, size, overlap)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	return slices.Collect(seq)
}

func sample(n int) string {
	var b strings.Builder
	for i := range n {
		b.WriteByte(byte('a' + i%26))
	}
	return b.String()
}

func TestSplit_BoundaryLaw(t *testing.T) {
	text := sample(2500)
	chunks := collect(t, text, 1000, 200)

	if len(chunks) != 3 {
		t.Fatalf("len(chunks) = %d, want 3", len(chunks))
	}

	wantStarts := []int{0, 800, 1600}
	wantLens := []int{1000, 1000, 900}
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunks[%d].Index = %d", i, c.Index)
		}
		if c.Start != wantStarts[i] {
			t.Errorf("chunks[%d].Start = %d, want %d", i, c.Start, wantStarts[i])
		}
		if len(c.Text) != wantLens[i] {
			t.Errorf("len(chunks[%d].Text) = %d, want %d", i, len(c.Text), wantLens[i])
		}
	}

	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1].Text
		if chunks[i].Text[:200] != prev[len(prev)-200:] {
			t.Errorf("chunk %d does not share 200 characters with chunk %d", i, i-1)
		}
	}
}

func TestSplit_Reconstructs(t *testing.T) {
	texts := []string{
		"The sky is blue. Grass is green.",
		sample(2500),
		strings.Repeat("héllo wörld ✓ ", 300),
	}

	for _, text := range texts {
		chunks := collect(t, text, 100, 30)

		var b strings.Builder
		for i, c := range chunks {
			r := []rune(c.Text)
			if i > 0 {
				r = r[30:]
			}
			b.WriteString(string(r))
		}

		if b.String() != text {
			t.Errorf("reconstruction mismatch for text of length %d", len(text))
		}
	}
}

func TestSplit_Edges(t *testing.T) {
	tests := []struct {
		name          string
		text          string
		size, overlap int
		want          int
	}{
		{"empty", "", 10, 2, 0},
		{"shorter than size", "abc", 10, 2, 1},
		{"exactly size", sample(10), 10, 2, 1},
		{"zero overlap", sample(30), 10, 0, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(collect(t, tt.text, tt.size, tt.overlap)); got != tt.want {
				t.Errorf("len(chunks) = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSplit_Restartable(t *testing.T) {
	seq, err := chunker.Split(sample(2500), 1000, 200)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}

	first := slices.Collect(seq)
	second := slices.Collect(seq)
	if !slices.Equal(first, second) {
		t.Error("second iteration differs from first")
	}

	for c := range seq {
		if c.Index > 0 {
			t.Fatal("early break did not stop iteration")
		}
		break
	}
}

func TestSplit_Configuration(t *testing.T) {
	tests := []struct {
		name          string
		size, overlap int
	}{
		{"overlap equals size", 100, 100},
		{"overlap exceeds size", 100, 150},
		{"zero size", 0, 0},
		{"negative overlap", 100, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := chunker.Split("text", tt.size, tt.overlap); !errors.Is(err, chunker.ErrConfiguration) {
				t.Errorf("Split() error = %v, want ErrConfiguration", err)
			}
		})
	}
}
