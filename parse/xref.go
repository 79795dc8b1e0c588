/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package parse

import (
	"fmt"
	"io"

	"github.com/go-pdfkit/pdfembed/common"
	"github.com/go-pdfkit/pdfembed/core"
)

const xrefTailScan = 2048

// loadXrefs locates the final "startxref" offset, walks the classical
// xref-table chain via each section's /Prev entry, and merges every
// entry into p.xrefs. Earlier (more recent) sections win: an entry for
// an object number already recorded is never overwritten, matching how
// updated documents supersede older generations.
func (p *Parser) loadXrefs() error {
	startOffset, err := p.findStartXref()
	if err != nil {
		return err
	}

	visited := map[int64]bool{}
	trailer := core.MakeDict()
	offset := startOffset

	for offset != 0 {
		if visited[offset] {
			break
		}
		visited[offset] = true

		if err := p.seek(offset); err != nil {
			return fmt.Errorf("parse: seeking to xref at %d: %w", offset, err)
		}
		sectionTrailer, prev, err := p.parseXrefSection()
		if err != nil {
			return fmt.Errorf("parse: xref section at %d: %w", offset, err)
		}
		for _, k := range sectionTrailer.Keys() {
			if !trailer.Has(k) {
				trailer.Set(k, sectionTrailer.Get(k))
			}
		}
		offset = prev
	}

	p.trailer = trailer
	return nil
}

// findStartXref scans the final bytes of the file for the last
// "startxref" keyword and returns the offset it names.
func (p *Parser) findStartXref() (int64, error) {
	size, err := p.file.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	tailLen := int64(xrefTailScan)
	if tailLen > size {
		tailLen = size
	}
	buf := make([]byte, tailLen)
	if _, err := p.file.ReadAt(buf, size-tailLen); err != nil && err != io.EOF {
		return 0, err
	}

	matches := reStartXref.FindAllSubmatch(buf, -1)
	if len(matches) == 0 {
		return 0, fmt.Errorf("parse: %w: no startxref marker found", ErrMissingXref)
	}
	last := matches[len(matches)-1]
	var v int64
	if _, err := fmt.Sscanf(string(last[1]), "%d", &v); err != nil {
		return 0, fmt.Errorf("parse: bad startxref offset: %w", err)
	}
	return v, nil
}

// parseXrefSection parses one classical "xref ... trailer <<...>>"
// section starting at the parser's current offset, returning its
// trailer dictionary and the /Prev offset (0 if absent).
func (p *Parser) parseXrefSection() (*core.PdfObjectDictionary, int64, error) {
	if err := p.skipSpacesAndComments(); err != nil {
		return nil, 0, err
	}
	if !p.tryKeyword("xref") {
		return nil, 0, fmt.Errorf("%w: cross-reference streams are not supported", ErrUnsupportedXref)
	}

	for {
		if err := p.skipSpacesAndComments(); err != nil {
			return nil, 0, err
		}
		peek, err := p.reader.Peek(7)
		if err == nil && string(peek) == "trailer" {
			for i := 0; i < len("trailer"); i++ {
				p.readByte()
			}
			break
		}
		line, err := p.readLine()
		if err != nil {
			return nil, 0, err
		}
		m := reXrefSubsection.FindStringSubmatch(line)
		if m == nil {
			return nil, 0, fmt.Errorf("parse: malformed xref subsection header %q", line)
		}
		var start, count int64
		fmt.Sscanf(m[1], "%d", &start)
		fmt.Sscanf(m[2], "%d", &count)

		for i := int64(0); i < count; i++ {
			entryLine, err := p.readFixedXrefEntry()
			if err != nil {
				return nil, 0, err
			}
			em := reXrefEntry.FindStringSubmatch(entryLine)
			if em == nil {
				return nil, 0, fmt.Errorf("parse: malformed xref entry %q", entryLine)
			}
			var entryOffset int64
			fmt.Sscanf(em[1], "%d", &entryOffset)
			objNum := start + i
			if _, exists := p.xrefs[objNum]; exists {
				continue
			}
			p.xrefs[objNum] = xrefEntry{offset: entryOffset, free: em[3] == "f"}
		}
	}

	if err := p.skipSpacesAndComments(); err != nil {
		return nil, 0, err
	}
	trailerObj, err := p.parseObject()
	if err != nil {
		return nil, 0, err
	}
	trailer, ok := core.GetDict(trailerObj)
	if !ok {
		return nil, 0, fmt.Errorf("parse: trailer is not a dictionary")
	}

	var prev int64
	if prevObj := trailer.Get("Prev"); prevObj != nil {
		if i, ok := core.GetInteger(prevObj); ok {
			prev = int64(*i)
		}
	}
	return trailer, prev, nil
}

// readFixedXrefEntry reads one 20-byte classical xref entry line. Some
// writers pad to 19 bytes plus a single EOL byte rather than the
// nominal two; readLine tolerates both.
func (p *Parser) readFixedXrefEntry() (string, error) {
	if err := p.skipSpacesAndComments(); err != nil {
		return "", err
	}
	return p.readLine()
}

// resolveOffset returns the byte offset of source object id's body, or
// an error if the xref table has no entry for it or marks it free.
func (p *Parser) resolveOffset(id int64) (int64, error) {
	entry, ok := p.xrefs[id]
	if !ok {
		return 0, fmt.Errorf("%w: object %d not in cross-reference table", ErrRangeError, id)
	}
	if entry.free {
		return 0, fmt.Errorf("%w: object %d is marked free", ErrRangeError, id)
	}
	return entry.offset, nil
}

func logMissingLength(id int64) {
	common.Log.Warning("parse: stream object %d has no Length, falling back to endstream scan", id)
}
