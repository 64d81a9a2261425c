package extract

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

func extractPDF(data []byte) (Result, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadAndValidate(bytes.NewReader(data), conf)
	if err != nil {
		return Result{}, fmt.Errorf("%w: read pdf: %v", ErrUnsupportedFormat, err)
	}

	pages := make([]string, 0, ctx.PageCount)
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
		if err != nil {
			return Result{}, fmt.Errorf("%w: page %d: %v", ErrUnsupportedFormat, pageNr, err)
		}
		if r == nil {
			pages = append(pages, "")
			continue
		}

		content, err := io.ReadAll(r)
		if err != nil {
			return Result{}, fmt.Errorf("%w: page %d: %v", ErrUnsupportedFormat, pageNr, err)
		}
		pages = append(pages, contentText(content))
	}

	text := strings.Join(pages, PageDelimiter)
	if strings.TrimSpace(text) == "" {
		return Result{}, fmt.Errorf("%w: no text layer", ErrUnsupportedFormat)
	}

	count := ctx.PageCount
	return Result{Text: text, PageCount: &count}, nil
}

// contentText collects the strings shown by the text operators of a page
// content stream (Tj, TJ, ' and "). Line moves become newlines.
func contentText(content []byte) string {
	var (
		out      strings.Builder
		operands []token
		line     bool
	)

	newline := func() {
		if line {
			out.WriteByte('\n')
			line = false
		}
	}
	write := func(s string) {
		if s != "" {
			out.WriteString(s)
			line = true
		}
	}

	lx := lexer{data: content}
	for {
		tok, ok := lx.next()
		if !ok {
			break
		}
		if tok.kind != tokOperator {
			operands = append(operands, tok)
			continue
		}

		switch tok.text {
		case "Tj":
			write(lastString(operands))
		case "'", "\"":
			newline()
			write(lastString(operands))
		case "TJ":
			write(arrayText(operands))
		case "T*", "ET":
			newline()
		case "Td", "TD":
			if len(operands) >= 2 && operands[len(operands)-1].number() != 0 {
				newline()
			}
		}
		operands = operands[:0]
	}

	lines := strings.Split(out.String(), "\n")
	kept := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "\n")
}

func lastString(operands []token) string {
	for i := len(operands) - 1; i >= 0; i-- {
		if operands[i].kind == tokString {
			return operands[i].text
		}
	}
	return ""
}

// arrayText joins the strings of a TJ array. Large negative kerning
// adjustments conventionally mark word gaps.
func arrayText(operands []token) string {
	var b strings.Builder
	for _, t := range operands {
		switch t.kind {
		case tokString:
			b.WriteString(t.text)
		case tokNumber:
			if t.number() < -200 {
				b.WriteByte(' ')
			}
		}
	}
	return b.String()
}

type tokenKind int

const (
	tokOperator tokenKind = iota
	tokString
	tokNumber
	tokOther
)

type token struct {
	kind tokenKind
	text string
}

func (t token) number() float64 {
	if t.kind != tokNumber {
		return 0
	}
	f, _ := strconv.ParseFloat(t.text, 64)
	return f
}

type lexer struct {
	data []byte
	pos  int
}

func isDelimiter(c byte) bool {
	return strings.IndexByte("()<>[]{}/%", c) >= 0
}

func isSpace(c byte) bool {
	return strings.IndexByte(" \t\r\n\f\x00", c) >= 0
}

func (l *lexer) next() (token, bool) {
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		switch {
		case isSpace(c):
			l.pos++
		case c == '%':
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
		case c == '(':
			return token{kind: tokString, text: decodePDFString(l.literal())}, true
		case c == '<' && l.peek(1) == '<', c == '>' && l.peek(1) == '>':
			l.pos += 2
			return token{kind: tokOther}, true
		case c == '<':
			return token{kind: tokString, text: decodePDFString(l.hex())}, true
		case c == '[' || c == ']' || c == '{' || c == '}' || c == '>':
			l.pos++
			return token{kind: tokOther, text: string(c)}, true
		case c == '/':
			l.pos++
			l.word()
			return token{kind: tokOther}, true
		default:
			w := l.word()
			if w == "" {
				l.pos++
				continue
			}
			if _, err := strconv.ParseFloat(w, 64); err == nil {
				return token{kind: tokNumber, text: w}, true
			}
			return token{kind: tokOperator, text: w}, true
		}
	}
	return token{}, false
}

func (l *lexer) peek(offset int) byte {
	if l.pos+offset < len(l.data) {
		return l.data[l.pos+offset]
	}
	return 0
}

func (l *lexer) word() string {
	start := l.pos
	for l.pos < len(l.data) && !isSpace(l.data[l.pos]) && !isDelimiter(l.data[l.pos]) {
		l.pos++
	}
	return string(l.data[start:l.pos])
}

func (l *lexer) literal() []byte {
	l.pos++
	depth := 1
	var buf []byte

	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++

		switch c {
		case '\\':
			if l.pos >= len(l.data) {
				return buf
			}
			e := l.data[l.pos]
			l.pos++
			switch e {
			case 'n':
				buf = append(buf, '\n')
			case 'r':
				buf = append(buf, '\r')
			case 't':
				buf = append(buf, '\t')
			case 'b':
				buf = append(buf, '\b')
			case 'f':
				buf = append(buf, '\f')
			case '\r':
				if l.peek(0) == '\n' {
					l.pos++
				}
			case '\n':
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for i := 0; i < 2 && l.pos < len(l.data) && l.data[l.pos] >= '0' && l.data[l.pos] <= '7'; i++ {
						v = v*8 + int(l.data[l.pos]-'0')
						l.pos++
					}
					buf = append(buf, byte(v))
				} else {
					buf = append(buf, e)
				}
			}
		case '(':
			depth++
			buf = append(buf, c)
		case ')':
			depth--
			if depth == 0 {
				return buf
			}
			buf = append(buf, c)
		default:
			buf = append(buf, c)
		}
	}
	return buf
}

func (l *lexer) hex() []byte {
	l.pos++
	var digits []byte
	for l.pos < len(l.data) && l.data[l.pos] != '>' {
		if c := l.data[l.pos]; !isSpace(c) {
			digits = append(digits, c)
		}
		l.pos++
	}
	l.pos++

	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}

	buf := make([]byte, 0, len(digits)/2)
	for i := 0; i < len(digits); i += 2 {
		v, err := strconv.ParseUint(string(digits[i:i+2]), 16, 8)
		if err != nil {
			continue
		}
		buf = append(buf, byte(v))
	}
	return buf
}

// decodePDFString interprets UTF-16BE strings marked by a byte order mark
// and treats everything else as single-byte PDFDocEncoding.
func decodePDFString(b []byte) string {
	if len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF {
		units := make([]uint16, 0, (len(b)-2)/2)
		for i := 2; i+1 < len(b); i += 2 {
			units = append(units, uint16(b[i])<<8|uint16(b[i+1]))
		}
		return string(utf16.Decode(units))
	}

	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}
