package pdf

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// kind classifies a content stream operand
type kind int

const (
	kindNumber kind = iota
	kindName
	kindString
	kindArray
	kindDict
	kindBool
	kindNull
	kindKeyword
)

// operand is a parsed content stream object. Strings hold their decoded bytes;
// dictionaries keep keys and values alternating in items.
type operand struct {
	kind  kind
	num   float64
	str   []byte
	hex   bool
	items []operand
}

func (o operand) name() string {
	return string(o.str)
}

// op is one operator with its operands and its byte span in the stream
type op struct {
	name  string
	args  []operand
	start int
	end   int
}

func (o op) num(i int) float64 {
	if i < len(o.args) && o.args[i].kind == kindNumber {
		return o.args[i].num
	}
	return 0
}

type lexer struct {
	data []byte
	pos  int
}

func isWhite(c byte) bool {
	switch c {
	case 0, '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

func isDelim(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		switch {
		case isWhite(c):
			l.pos++
		case c == '%':
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
		default:
			return
		}
	}
}

// parseOps splits a content stream into operators. Inline images are returned
// as a single BI operator spanning BI through EI.
func parseOps(data []byte) ([]op, error) {
	l := &lexer{data: data}
	var ops []op
	var args []operand
	start := -1

	for {
		l.skipSpace()
		if l.pos >= len(l.data) {
			break
		}
		if start < 0 {
			start = l.pos
		}

		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		if tok.kind != kindKeyword {
			args = append(args, tok)
			continue
		}

		name := tok.name()
		if name == "BI" {
			if err := l.skipInlineImage(); err != nil {
				return nil, err
			}
		}
		ops = append(ops, op{name: name, args: args, start: start, end: l.pos})
		args = nil
		start = -1
	}

	return ops, nil
}

func (l *lexer) next() (operand, error) {
	c := l.data[l.pos]
	switch {
	case c == '/':
		return l.readName(), nil
	case c == '(':
		return l.readLiteral()
	case c == '<':
		if l.pos+1 < len(l.data) && l.data[l.pos+1] == '<' {
			l.pos += 2
			items, err := l.readUntil(">>")
			return operand{kind: kindDict, items: items}, err
		}
		return l.readHex()
	case c == '[':
		l.pos++
		items, err := l.readUntil("]")
		return operand{kind: kindArray, items: items}, err
	case c == ']' || c == '>' || c == ')' || c == '{' || c == '}':
		// stray delimiters are kept as keywords so the caller can skip them
		l.pos++
		return operand{kind: kindKeyword, str: []byte{c}}, nil
	case c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9'):
		return l.readNumber()
	}

	s := l.pos
	for l.pos < len(l.data) && !isWhite(l.data[l.pos]) && !isDelim(l.data[l.pos]) {
		l.pos++
	}
	word := l.data[s:l.pos]
	switch string(word) {
	case "true":
		return operand{kind: kindBool, num: 1}, nil
	case "false":
		return operand{kind: kindBool}, nil
	case "null":
		return operand{kind: kindNull}, nil
	}
	return operand{kind: kindKeyword, str: word}, nil
}

func (l *lexer) readUntil(closing string) ([]operand, error) {
	var items []operand
	for {
		l.skipSpace()
		if l.pos >= len(l.data) {
			return nil, fmt.Errorf("unterminated object, expected %q", closing)
		}
		if bytes.HasPrefix(l.data[l.pos:], []byte(closing)) {
			l.pos += len(closing)
			return items, nil
		}
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		items = append(items, tok)
	}
}

func (l *lexer) readName() operand {
	l.pos++
	var b []byte
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		if isWhite(c) || isDelim(c) {
			break
		}
		if c == '#' && l.pos+2 < len(l.data) {
			if v, err := strconv.ParseUint(string(l.data[l.pos+1:l.pos+3]), 16, 8); err == nil {
				b = append(b, byte(v))
				l.pos += 3
				continue
			}
		}
		b = append(b, c)
		l.pos++
	}
	return operand{kind: kindName, str: b}
}

func (l *lexer) readNumber() (operand, error) {
	s := l.pos
	l.pos++
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		if (c < '0' || c > '9') && c != '.' && c != '-' && c != '+' {
			break
		}
		l.pos++
	}
	text := string(l.data[s:l.pos])
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		// producers emit things like "--5" or "4.-2"; treat them as zero
		v = 0
	}
	return operand{kind: kindNumber, num: v}, nil
}

func (l *lexer) readLiteral() (operand, error) {
	l.pos++
	depth := 1
	var b []byte
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++
		switch c {
		case '(':
			depth++
			b = append(b, c)
		case ')':
			depth--
			if depth == 0 {
				return operand{kind: kindString, str: b}, nil
			}
			b = append(b, c)
		case '\\':
			if l.pos >= len(l.data) {
				continue
			}
			e := l.data[l.pos]
			l.pos++
			switch e {
			case 'n':
				b = append(b, '\n')
			case 'r':
				b = append(b, '\r')
			case 't':
				b = append(b, '\t')
			case 'b':
				b = append(b, '\b')
			case 'f':
				b = append(b, '\f')
			case '\r':
				if l.pos < len(l.data) && l.data[l.pos] == '\n' {
					l.pos++
				}
			case '\n':
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for i := 0; i < 2 && l.pos < len(l.data); i++ {
						d := l.data[l.pos]
						if d < '0' || d > '7' {
							break
						}
						v = v*8 + int(d-'0')
						l.pos++
					}
					b = append(b, byte(v))
					continue
				}
				b = append(b, e)
			}
		default:
			b = append(b, c)
		}
	}
	return operand{}, fmt.Errorf("unterminated string literal")
}

func (l *lexer) readHex() (operand, error) {
	l.pos++
	var digits []byte
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++
		if c == '>' {
			if len(digits)%2 == 1 {
				digits = append(digits, '0')
			}
			b := make([]byte, len(digits)/2)
			for i := range b {
				b[i] = unhex(digits[2*i])<<4 | unhex(digits[2*i+1])
			}
			return operand{kind: kindString, str: b, hex: true}, nil
		}
		if isWhite(c) {
			continue
		}
		digits = append(digits, c)
	}
	return operand{}, fmt.Errorf("unterminated hex string")
}

func unhex(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	}
	return 0
}

// skipInlineImage advances past the dictionary and data of an inline image
func (l *lexer) skipInlineImage() error {
	for {
		l.skipSpace()
		if l.pos >= len(l.data) {
			return fmt.Errorf("inline image without ID")
		}
		tok, err := l.next()
		if err != nil {
			return err
		}
		if tok.kind == kindKeyword && tok.name() == "ID" {
			break
		}
	}
	// one whitespace byte separates ID from the data
	if l.pos < len(l.data) && isWhite(l.data[l.pos]) {
		l.pos++
	}
	for i := l.pos; i+1 < len(l.data); i++ {
		if l.data[i] != 'E' || l.data[i+1] != 'I' {
			continue
		}
		if i > 0 && !isWhite(l.data[i-1]) {
			continue
		}
		if i+2 < len(l.data) && !isWhite(l.data[i+2]) && !isDelim(l.data[i+2]) {
			continue
		}
		l.pos = i + 2
		return nil
	}
	return fmt.Errorf("inline image without EI")
}

// formatNumber writes a number compactly with at most four decimals
func formatNumber(v float64) string {
	s := strconv.FormatFloat(v, 'f', 4, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" || s == "" {
		return "0"
	}
	return s
}

// writeOperand serialises o in content stream syntax
func writeOperand(b *bytes.Buffer, o operand) {
	switch o.kind {
	case kindNumber:
		b.WriteString(formatNumber(o.num))
	case kindName:
		b.WriteByte('/')
		for _, c := range o.str {
			if c < '!' || c > '~' || isDelim(c) || c == '#' {
				fmt.Fprintf(b, "#%02X", c)
				continue
			}
			b.WriteByte(c)
		}
	case kindString:
		if o.hex {
			writeHex(b, o.str)
			return
		}
		writeLiteral(b, o.str)
	case kindArray:
		b.WriteByte('[')
		for i, it := range o.items {
			if i > 0 {
				b.WriteByte(' ')
			}
			writeOperand(b, it)
		}
		b.WriteByte(']')
	case kindDict:
		b.WriteString("<<")
		for i, it := range o.items {
			if i > 0 {
				b.WriteByte(' ')
			}
			writeOperand(b, it)
		}
		b.WriteString(">>")
	case kindBool:
		if o.num != 0 {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case kindNull:
		b.WriteString("null")
	case kindKeyword:
		b.Write(o.str)
	}
}

func writeHex(b *bytes.Buffer, s []byte) {
	const digits = "0123456789ABCDEF"
	b.WriteByte('<')
	for _, c := range s {
		b.WriteByte(digits[c>>4])
		b.WriteByte(digits[c&0x0f])
	}
	b.WriteByte('>')
}

func writeLiteral(b *bytes.Buffer, s []byte) {
	b.WriteByte('(')
	for _, c := range s {
		switch c {
		case '(', ')', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		default:
			if c < 32 || c > 126 {
				fmt.Fprintf(b, "\\%03o", c)
				continue
			}
			b.WriteByte(c)
		}
	}
	b.WriteByte(')')
}

// writeOp serialises an operator with its operands
func writeOp(b *bytes.Buffer, name string, args ...operand) {
	for _, a := range args {
		writeOperand(b, a)
		b.WriteByte(' ')
	}
	b.WriteString(name)
	b.WriteByte('\n')
}

func number(v float64) operand {
	return operand{kind: kindNumber, num: v}
}

func nameOperand(s string) operand {
	return operand{kind: kindName, str: []byte(s)}
}
