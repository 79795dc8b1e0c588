/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

// Package parse implements the Parser collaborator embedder.Session
// depends on: a classical (non-cross-reference-stream) PDF tokenizer
// that yields the core parsed-object model by absolute file offset.
package parse

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"

	"github.com/h2non/filetype"

	"github.com/go-pdfkit/pdfembed/core"
)

var (
	reStartXref      = regexp.MustCompile(`startxref\s*(\d+)`)
	reIndirectObject = regexp.MustCompile(`(\d+)\s+(\d+)\s+obj`)
	reXrefSubsection = regexp.MustCompile(`(\d+)\s+(\d+)\s*$`)
	reXrefEntry      = regexp.MustCompile(`(\d+)\s+(\d+)\s+([nf])\s*$`)
)

// xrefEntry records where an indirect object's body begins in the file.
type xrefEntry struct {
	offset int64
	free   bool
}

// Parser is a file-backed classical PDF parser. It supports exactly
// the subset of the format this module's embedder needs: a
// traditional (table-based) cross-reference section, direct object
// parsing by offset, and FlateDecode/raw stream bodies. Cross-reference
// streams and compressed object streams are out of scope (no component
// rewrites or rewraps compressed object streams).
type Parser struct {
	file   *os.File
	reader *bufio.Reader
	offset int64

	xrefs   map[int64]xrefEntry
	trailer *core.PdfObjectDictionary

	cache     map[int64]core.PdfObject
	flatPages []*core.PdfObjectDictionary
}

// New constructs an unopened Parser, ready for OpenFile.
func New() *Parser {
	return &Parser{}
}

// OpenFile opens path, confirms it looks like a PDF container before
// committing to a full parse, and loads its cross-reference table and
// trailer.
func (p *Parser) OpenFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	if err := sniffPDF(f); err != nil {
		_ = f.Close()
		return err
	}

	p.file = f
	p.xrefs = map[int64]xrefEntry{}
	p.cache = map[int64]core.PdfObject{}

	if err := p.loadXrefs(); err != nil {
		_ = f.Close()
		return err
	}
	return nil
}

// sniffPDF confirms f looks like a PDF container, failing fast instead
// of letting the tokenizer discover a malformed header lexeme by
// lexeme. The read position is restored afterwards.
func sniffPDF(f *os.File) error {
	head := make([]byte, 261)
	n, err := f.Read(head)
	if err != nil && n == 0 {
		return err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}

	kind, err := filetype.Match(head[:n])
	if err != nil {
		return fmt.Errorf("parse: sniffing file type: %w", err)
	}
	if kind.MIME.Value != "application/pdf" {
		return fmt.Errorf("parse: file does not look like a PDF (detected %q)", kind.MIME.Value)
	}
	return nil
}

// Close releases the underlying file handle.
func (p *Parser) Close() error {
	if p.file == nil {
		return nil
	}
	return p.file.Close()
}

func (p *Parser) seek(offset int64) error {
	if _, err := p.file.Seek(offset, io.SeekStart); err != nil {
		return err
	}
	p.reader = bufio.NewReader(p.file)
	p.offset = offset
	return nil
}

func (p *Parser) readByte() (byte, error) {
	b, err := p.reader.ReadByte()
	if err == nil {
		p.offset++
	}
	return b, err
}

func (p *Parser) unreadByte() {
	_ = p.reader.UnreadByte()
	p.offset--
}

// skipSpaces advances past whitespace (Table 1, 7.2.2 Character Set).
func (p *Parser) skipSpaces() error {
	for {
		b, err := p.readByte()
		if err != nil {
			return err
		}
		if !core.IsWhiteSpace(b) {
			p.unreadByte()
			return nil
		}
	}
}

// skipSpacesAndComments advances past whitespace and `%`-comments,
// handling runs of both.
func (p *Parser) skipSpacesAndComments() error {
	for {
		if err := p.skipSpaces(); err != nil {
			return err
		}
		b, err := p.readByte()
		if err != nil {
			return err
		}
		if b != '%' {
			p.unreadByte()
			return nil
		}
		for {
			c, err := p.readByte()
			if err != nil {
				return err
			}
			if c == '\r' || c == '\n' {
				break
			}
		}
	}
}

func (p *Parser) readLine() (string, error) {
	var buf bytes.Buffer
	for {
		b, err := p.readByte()
		if err != nil {
			if buf.Len() > 0 {
				return buf.String(), nil
			}
			return "", err
		}
		if b == '\n' {
			return buf.String(), nil
		}
		if b == '\r' {
			if next, err := p.readByte(); err == nil && next != '\n' {
				p.unreadByte()
			}
			return buf.String(), nil
		}
		buf.WriteByte(b)
	}
}

// parseName reads a `/Name`, unescaping `#xx` sequences.
func (p *Parser) parseName() (core.PdfObjectName, error) {
	b, err := p.readByte()
	if err != nil {
		return "", err
	}
	if b != '/' {
		return "", fmt.Errorf("parse: expected '/' for name, got %q", b)
	}

	var buf bytes.Buffer
	for {
		b, err := p.readByte()
		if err != nil {
			break
		}
		if core.IsWhiteSpace(b) || core.IsDelimiter(b) {
			p.unreadByte()
			break
		}
		if b == '#' {
			hex := make([]byte, 2)
			for i := 0; i < 2; i++ {
				c, err := p.readByte()
				if err != nil {
					return core.PdfObjectName(buf.String()), err
				}
				hex[i] = c
			}
			var v int64
			if _, err := fmt.Sscanf(string(hex), "%x", &v); err == nil {
				buf.WriteByte(byte(v))
				continue
			}
			buf.WriteByte('#')
			buf.Write(hex)
			continue
		}
		buf.WriteByte(b)
	}
	return core.PdfObjectName(buf.String()), nil
}

func (p *Parser) parseNumber() (core.PdfObject, error) {
	var buf bytes.Buffer
	isFloat := false
	for {
		b, err := p.readByte()
		if err != nil {
			break
		}
		if core.IsDecimalDigit(b) || b == '+' || b == '-' {
			buf.WriteByte(b)
			continue
		}
		if b == '.' {
			isFloat = true
			buf.WriteByte(b)
			continue
		}
		p.unreadByte()
		break
	}
	if isFloat {
		f, err := strconv.ParseFloat(buf.String(), 64)
		if err != nil {
			return nil, fmt.Errorf("parse: bad real %q: %w", buf.String(), err)
		}
		return core.MakeFloat(f), nil
	}
	n, err := strconv.ParseInt(buf.String(), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse: bad integer %q: %w", buf.String(), err)
	}
	return core.MakeInteger(n), nil
}

func (p *Parser) parseLiteralString() (*core.PdfObjectString, error) {
	if b, _ := p.readByte(); b != '(' {
		return nil, fmt.Errorf("parse: expected '(' for literal string")
	}
	var buf bytes.Buffer
	depth := 1
	for {
		b, err := p.readByte()
		if err != nil {
			return nil, err
		}
		switch b {
		case '(':
			depth++
			buf.WriteByte(b)
		case ')':
			depth--
			if depth == 0 {
				return core.MakeString(buf.String()), nil
			}
			buf.WriteByte(b)
		case '\\':
			esc, err := p.readByte()
			if err != nil {
				return nil, err
			}
			switch esc {
			case 'n':
				buf.WriteByte('\n')
			case 'r':
				buf.WriteByte('\r')
			case 't':
				buf.WriteByte('\t')
			case 'b':
				buf.WriteByte('\b')
			case 'f':
				buf.WriteByte('\f')
			case '(', ')', '\\':
				buf.WriteByte(esc)
			case '\r', '\n':
				// line continuation: escaped EOL is dropped.
			default:
				buf.WriteByte(esc)
			}
		default:
			buf.WriteByte(b)
		}
	}
}

func (p *Parser) parseHexString() (*core.PdfObjectString, error) {
	if b, _ := p.readByte(); b != '<' {
		return nil, fmt.Errorf("parse: expected '<' for hex string")
	}
	var buf bytes.Buffer
	for {
		b, err := p.readByte()
		if err != nil {
			return nil, err
		}
		if b == '>' {
			// core's hex strings hold the decoded bytes; an odd final
			// digit is completed with 0.
			digits := buf.String()
			if len(digits)%2 == 1 {
				digits += "0"
			}
			decoded := make([]byte, 0, len(digits)/2)
			for i := 0; i < len(digits); i += 2 {
				v, err := strconv.ParseUint(digits[i:i+2], 16, 8)
				if err != nil {
					return nil, fmt.Errorf("parse: bad hex string digits %q: %w", digits[i:i+2], err)
				}
				decoded = append(decoded, byte(v))
			}
			return core.MakeHexString(string(decoded)), nil
		}
		if core.IsWhiteSpace(b) {
			continue
		}
		buf.WriteByte(b)
	}
}

func (p *Parser) parseArray() (*core.PdfObjectArray, error) {
	if b, _ := p.readByte(); b != '[' {
		return nil, fmt.Errorf("parse: expected '[' for array")
	}
	arr := core.MakeArray()
	for {
		if err := p.skipSpacesAndComments(); err != nil {
			return nil, err
		}
		b, err := p.readByte()
		if err != nil {
			return nil, err
		}
		if b == ']' {
			return arr, nil
		}
		p.unreadByte()
		obj, err := p.parseObject()
		if err != nil {
			return nil, err
		}
		arr.Append(obj)
	}
}

func (p *Parser) tryKeyword(kw string) bool {
	peek, err := p.reader.Peek(len(kw))
	if err != nil || string(peek) != kw {
		return false
	}
	for i := 0; i < len(kw); i++ {
		p.readByte()
	}
	return true
}

// parseObject parses the next value at the current offset: booleans,
// numbers, strings, names, null, arrays, dictionaries/streams, and
// indirect references (disambiguated from two bare integers by
// trial-parsing "N G R").
func (p *Parser) parseObject() (core.PdfObject, error) {
	if err := p.skipSpacesAndComments(); err != nil {
		return nil, err
	}
	peek, err := p.reader.Peek(2)
	if err != nil && len(peek) == 0 {
		return nil, err
	}

	switch {
	case len(peek) > 0 && peek[0] == '/':
		name, err := p.parseName()
		return &name, err
	case len(peek) > 0 && peek[0] == '(':
		return p.parseLiteralString()
	case len(peek) >= 2 && peek[0] == '<' && peek[1] == '<':
		return p.parseDictOrStream()
	case len(peek) > 0 && peek[0] == '<':
		return p.parseHexString()
	case len(peek) > 0 && peek[0] == '[':
		return p.parseArray()
	case p.tryKeyword("true"):
		v := core.PdfObjectBool(true)
		return &v, nil
	case p.tryKeyword("false"):
		v := core.PdfObjectBool(false)
		return &v, nil
	case p.tryKeyword("null"):
		return core.MakeNull(), nil
	case len(peek) > 0 && (core.IsDecimalDigit(peek[0]) || peek[0] == '+' || peek[0] == '-' || peek[0] == '.'):
		return p.parseNumberOrReference()
	default:
		return p.parseKeyword()
	}
}

func (p *Parser) parseKeyword() (core.PdfObject, error) {
	var buf bytes.Buffer
	for {
		b, err := p.readByte()
		if err != nil {
			break
		}
		if core.IsWhiteSpace(b) || core.IsDelimiter(b) {
			p.unreadByte()
			break
		}
		buf.WriteByte(b)
	}
	if buf.Len() == 0 {
		return nil, fmt.Errorf("parse: empty keyword at offset %d", p.offset)
	}
	kw := core.PdfObjectKeyword(buf.String())
	return &kw, nil
}

// parseNumberOrReference speculatively parses "N G R" and backtracks
// to a plain number if the trailing tokens don't match.
func (p *Parser) parseNumberOrReference() (core.PdfObject, error) {
	start := p.offset
	first, err := p.parseNumber()
	if err != nil {
		return nil, err
	}
	firstInt, ok := first.(*core.PdfObjectInteger)
	if !ok {
		return first, nil
	}

	mark := p.offset
	_ = p.skipSpaces()
	peek, _ := p.reader.Peek(1)
	if len(peek) == 0 || !core.IsDecimalDigit(peek[0]) {
		return p.rewindTo(start, mark, first)
	}
	second, err := p.parseNumber()
	if err != nil {
		return p.rewindTo(start, mark, first)
	}
	secondInt, ok := second.(*core.PdfObjectInteger)
	if !ok {
		return p.rewindTo(start, mark, first)
	}

	_ = p.skipSpaces()
	peek, _ = p.reader.Peek(1)
	if len(peek) == 0 || peek[0] != 'R' {
		return p.rewindTo(start, mark, first)
	}
	p.readByte()

	ref := core.MakeReference(int64(*firstInt), int64(*secondInt))
	return ref, nil
}

// rewindTo re-seeks to mark (if it differs from start, meaning a
// second token was tentatively consumed) and returns first as the
// parsed value.
func (p *Parser) rewindTo(start, mark int64, first core.PdfObject) (core.PdfObject, error) {
	if err := p.seek(mark); err != nil {
		return nil, err
	}
	return first, nil
}

func (p *Parser) parseDictOrStream() (core.PdfObject, error) {
	dict, err := p.parseDict()
	if err != nil {
		return nil, err
	}

	save := p.offset
	_ = p.skipSpaces()
	if p.tryKeyword("stream") {
		b, _ := p.readByte()
		if b == '\r' {
			b, _ = p.readByte()
		}
		if b != '\n' {
			p.unreadByte()
		}
		contentOffset := p.offset
		return &core.PdfObjectStream{PdfObjectDictionary: dict, ContentOffset: contentOffset}, nil
	}
	if err := p.seek(save); err != nil {
		return nil, err
	}
	return dict, nil
}

func (p *Parser) parseDict() (*core.PdfObjectDictionary, error) {
	if b, _ := p.readByte(); b != '<' {
		return nil, fmt.Errorf("parse: expected '<' for dictionary")
	}
	if b, _ := p.readByte(); b != '<' {
		return nil, fmt.Errorf("parse: expected '<<' for dictionary")
	}

	dict := core.MakeDict()
	for {
		if err := p.skipSpacesAndComments(); err != nil {
			return nil, err
		}
		peek, err := p.reader.Peek(2)
		if err != nil {
			return nil, err
		}
		if peek[0] == '>' && peek[1] == '>' {
			p.readByte()
			p.readByte()
			return dict, nil
		}
		key, err := p.parseName()
		if err != nil {
			return nil, err
		}
		if err := p.skipSpacesAndComments(); err != nil {
			return nil, err
		}
		val, err := p.parseObject()
		if err != nil {
			return nil, err
		}
		dict.Set(key, val)
	}
}

// GetPagesCount and ParsePage are implemented in pages.go.
// Cross-reference loading is implemented in xref.go.
