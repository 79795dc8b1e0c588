/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

// Package docwriter implements the Objects Context and Document
// Context collaborators embedder.Session depends on: low-level token
// writing plus classical cross-reference table and trailer generation
// for a freshly assembled destination PDF.
package docwriter

import (
	"bytes"
	"fmt"

	"github.com/go-pdfkit/pdfembed/core"
	"github.com/go-pdfkit/pdfembed/embedder"
)

// ObjectsContext owns destination object numbering and the low-level
// token writers the embedder's Typed Serializer drives through the
// embedder.ObjectsContext interface. Every written indirect object's
// body accumulates in curBuf between StartNewIndirectObject and
// EndIndirectObject, then is appended to out with its offset recorded
// for the eventual cross-reference table.
type ObjectsContext struct {
	out      bytes.Buffer
	writePos int64
	xrefs    map[int64]int64

	nextID int64
	curID  int64
	curBuf *bytes.Buffer

	// freeBuf is non-nil while a free context (stream body) is open,
	// redirecting writes there instead of curBuf.
	freeBuf *bytes.Buffer
}

// NewObjectsContext constructs an empty Objects Context. Object 0 (the
// head of the free list) is reserved, so the first allocated ID is 1.
func NewObjectsContext() *ObjectsContext {
	return &ObjectsContext{xrefs: map[int64]int64{}}
}

// sink returns whichever buffer is currently receiving raw bytes: the
// free context if one is open, otherwise the current object's body.
func (c *ObjectsContext) sink() *bytes.Buffer {
	if c.freeBuf != nil {
		return c.freeBuf
	}
	return c.curBuf
}

// AllocateNewObjectID reserves and returns the next destination object
// number, without opening it for writing.
func (c *ObjectsContext) AllocateNewObjectID() int64 {
	c.nextID++
	return c.nextID
}

// StartNewIndirectObject opens targetID for writing. targetID need not
// have been allocated through AllocateNewObjectID by the caller
// itself, so long as it is unique within the document.
func (c *ObjectsContext) StartNewIndirectObject(targetID int64) error {
	if targetID > c.nextID {
		c.nextID = targetID
	}
	c.curID = targetID
	c.curBuf = &bytes.Buffer{}
	return nil
}

// EndIndirectObject finalizes the currently open object: wraps its
// accumulated body in "N 0 obj"/"endobj" and appends it to the output,
// recording its offset for the cross-reference table.
func (c *ObjectsContext) EndIndirectObject() error {
	if c.curBuf == nil {
		return fmt.Errorf("docwriter: EndIndirectObject called with no object open")
	}
	c.xrefs[c.curID] = c.writePos
	c.writeRaw(fmt.Sprintf("%d 0 obj\n", c.curID))
	c.writeRaw(c.curBuf.String())
	c.writeRaw("\nendobj\n")
	c.curBuf = nil
	c.curID = 0
	return nil
}

func (c *ObjectsContext) writeRaw(s string) {
	c.out.WriteString(s)
	c.writePos += int64(len(s))
}

// WriteBoolean writes a PDF boolean, reusing core's WriteString so the
// token text can never drift from how core serializes the same value.
func (c *ObjectsContext) WriteBoolean(v bool) { c.sink().WriteString(core.MakeBool(v).WriteString()) }

// WriteInteger writes a PDF integer.
func (c *ObjectsContext) WriteInteger(v int64) { c.sink().WriteString(core.MakeInteger(v).WriteString()) }

// WriteDouble writes a PDF real.
func (c *ObjectsContext) WriteDouble(v float64) { c.sink().WriteString(core.MakeFloat(v).WriteString()) }

// WriteLiteralString writes a `(...)`-delimited string, escaping as core does.
func (c *ObjectsContext) WriteLiteralString(v string) {
	c.sink().WriteString(core.MakeString(v).WriteString())
}

// WriteHexString writes a `<...>`-delimited string.
func (c *ObjectsContext) WriteHexString(v string) {
	c.sink().WriteString(core.MakeHexString(v).WriteString())
}

// WriteName writes a `/Name`, escaping as core does.
func (c *ObjectsContext) WriteName(v core.PdfObjectName) { c.sink().WriteString(v.WriteString()) }

// WriteNull writes the "null" keyword.
func (c *ObjectsContext) WriteNull() { c.sink().WriteString("null") }

// WriteKeyword writes a bare token verbatim.
func (c *ObjectsContext) WriteKeyword(v string) { c.sink().WriteString(v) }

// WriteIndirectObjectReference writes "N 0 R" for targetID.
func (c *ObjectsContext) WriteIndirectObjectReference(targetID int64) {
	fmt.Fprintf(c.sink(), "%d 0 R", targetID)
}

// StartArray writes the opening "[".
func (c *ObjectsContext) StartArray() { c.sink().WriteString("[") }

// EndArray writes the closing "]". sep is accepted for interface
// symmetry with EndDictionary's key/value separator story, though an
// array's items are already separated by the caller's own
// WriteKeyword(" ") calls between elements (spec.md §6: array items
// use Space).
func (c *ObjectsContext) EndArray(sep embedder.Separator) { c.sink().WriteString("]") }

// dictionaryWriter writes a dictionary's "/Key value" pairs, sharing
// its owning ObjectsContext's current sink.
type dictionaryWriter struct {
	ctx *ObjectsContext
}

// WriteKey writes a dictionary key, followed by a separating space so
// the caller's immediately following value write does not abut it.
func (w *dictionaryWriter) WriteKey(name core.PdfObjectName) {
	w.ctx.sink().WriteString(name.WriteString())
	w.ctx.sink().WriteString(" ")
}

// StartDictionary writes the opening "<<" and returns a writer for its entries.
func (c *ObjectsContext) StartDictionary() embedder.DictionaryWriter {
	c.sink().WriteString("<<")
	return &dictionaryWriter{ctx: c}
}

// EndDictionary writes the closing ">>". This implementation cannot
// fail and always returns nil; the error result belongs to the
// embedder.ObjectsContext interface, and embedder.TypedSerializer
// chooses whether to propagate it (see spec.md §9, preserved as a
// documented quirk in writeDictionary).
func (c *ObjectsContext) EndDictionary(w embedder.DictionaryWriter) error {
	c.sink().WriteString(">>")
	return nil
}

// StartFreeContext opens a raw byte sink (a stream body) and returns
// it directly as the embedder.ByteSink the caller writes into.
func (c *ObjectsContext) StartFreeContext() embedder.ByteSink {
	c.freeBuf = &bytes.Buffer{}
	return c.freeBuf
}

// EndFreeContext flushes the free context's accumulated bytes into the
// current object body and closes it.
func (c *ObjectsContext) EndFreeContext() {
	if c.freeBuf == nil {
		return
	}
	c.curBuf.Write(c.freeBuf.Bytes())
	c.freeBuf = nil
}

// EndLine writes a bare newline, the generic line break between
// dictionary/stream sections (not used between array items; those are
// Space-separated, spec.md §6).
func (c *ObjectsContext) EndLine() { c.sink().WriteString("\n") }
