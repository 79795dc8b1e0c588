/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package parse

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-pdfkit/pdfembed/core"
)

// ParseNewObject seeks to sourceID's body per the cross-reference
// table and parses it fresh, returning its direct value (a stream's
// ContentOffset is recorded but its bytes are never read here).
func (p *Parser) ParseNewObject(sourceID int64) (core.PdfObject, error) {
	if cached, ok := p.cache[sourceID]; ok {
		return cached, nil
	}

	offset, err := p.resolveOffset(sourceID)
	if err != nil {
		return nil, err
	}
	if err := p.seek(offset); err != nil {
		return nil, err
	}
	if err := p.skipSpacesAndComments(); err != nil {
		return nil, err
	}

	line, err := p.peekHeaderLine()
	if err != nil {
		return nil, err
	}
	m := reIndirectObject.FindStringSubmatch(line)
	if m == nil {
		return nil, fmt.Errorf("%w: object %d: expected 'N G obj' header", ErrStructuralFailure, sourceID)
	}
	for i := 0; i < len(m[0]); i++ {
		p.readByte()
	}

	obj, err := p.parseObject()
	if err != nil {
		return nil, fmt.Errorf("parse: object %d body: %w", sourceID, err)
	}
	if stream, ok := core.GetStream(obj); ok {
		stream.ObjectNumber = sourceID
	}

	p.cache[sourceID] = obj
	return obj, nil
}

// peekHeaderLine returns up to the next 64 bytes without consuming
// them, enough to match the "N G obj" header regex.
func (p *Parser) peekHeaderLine() (string, error) {
	peek, err := p.reader.Peek(64)
	if err != nil && len(peek) == 0 {
		return "", err
	}
	if idx := bytes.IndexByte(peek, '\n'); idx >= 0 {
		peek = peek[:idx+1]
	}
	return string(peek), nil
}

// QueryDictionaryObject returns the direct value of dict[name],
// resolving a single level of indirection if it is a reference.
func (p *Parser) QueryDictionaryObject(dict *core.PdfObjectDictionary, name core.PdfObjectName) (core.PdfObject, error) {
	val := dict.Get(name)
	if val == nil {
		return nil, nil
	}
	if ref, ok := core.GetReference(val); ok {
		return p.ParseNewObject(ref.ObjectNumber)
	}
	return val, nil
}

// streamLength resolves stream's declared Length, following one level
// of indirection. If Length is absent or unresolvable it falls back to
// scanning forward for the next "endstream" keyword.
func (p *Parser) streamLength(stream *core.PdfObjectStream) (int64, error) {
	lengthObj := stream.Get("Length")
	if lengthObj == nil {
		logMissingLength(stream.ObjectNumber)
		return p.scanForEndstream(stream.ContentOffset)
	}
	if i, ok := core.GetInteger(lengthObj); ok {
		return int64(*i), nil
	}
	if ref, ok := core.GetReference(lengthObj); ok {
		resolved, err := p.ParseNewObject(ref.ObjectNumber)
		if err != nil {
			return 0, fmt.Errorf("%w: resolving indirect Length: %v", ErrMissingLength, err)
		}
		if i, ok := core.GetInteger(resolved); ok {
			return int64(*i), nil
		}
	}
	logMissingLength(stream.ObjectNumber)
	return p.scanForEndstream(stream.ContentOffset)
}

// scanForEndstream recovers a stream's length when Length is missing
// or malformed, by searching forward for the next "endstream" keyword.
func (p *Parser) scanForEndstream(contentOffset int64) (int64, error) {
	if _, err := p.file.Seek(contentOffset, io.SeekStart); err != nil {
		return 0, err
	}
	const chunk = 4096
	buf := make([]byte, chunk)
	var all []byte
	for {
		n, err := p.file.Read(buf)
		all = append(all, buf[:n]...)
		if idx := bytes.Index(all, []byte("endstream")); idx >= 0 {
			length := int64(idx)
			for length > 0 && (all[length-1] == '\n' || all[length-1] == '\r') {
				length--
			}
			return length, nil
		}
		if err != nil {
			return 0, fmt.Errorf("%w: no endstream found after offset %d", ErrStructuralFailure, contentOffset)
		}
	}
}

// ReadStreamBytes reads exactly length raw bytes starting at stream's
// content offset, with no filter applied.
func (p *Parser) ReadStreamBytes(stream *core.PdfObjectStream, length int64) ([]byte, error) {
	buf := make([]byte, length)
	n, err := p.file.ReadAt(buf, stream.ContentOffset)
	if err != nil && !(err == io.EOF && int64(n) == length) {
		return nil, fmt.Errorf("parse: reading stream body: %w", err)
	}
	return buf[:n], nil
}

// ReadStreamDecoded returns stream's content after applying its
// declared Filter. Only FlateDecode and the no-filter case are
// supported; any other Filter (including one that is not a bare Name)
// is rejected with ErrStructuralFailure.
func (p *Parser) ReadStreamDecoded(stream *core.PdfObjectStream) ([]byte, error) {
	length, err := p.streamLength(stream)
	if err != nil {
		return nil, err
	}
	raw, err := p.ReadStreamBytes(stream, length)
	if err != nil {
		return nil, err
	}

	filter := stream.Get("Filter")
	if filter == nil {
		return raw, nil
	}
	if name, ok := core.GetName(filter); ok && string(*name) == "FlateDecode" {
		return core.DecodeFlate(raw)
	}
	return nil, fmt.Errorf("%w: %s", ErrStructuralFailure, filter.String())
}
