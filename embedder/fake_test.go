/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package embedder

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdfkit/pdfembed/core"
)

// fakeParser is an in-memory Parser used to exercise the embedder
// core without a real file or byte-offset-based PDF parser.
type fakeParser struct {
	pages      []*core.PdfObjectDictionary
	objects    map[int64]core.PdfObject
	rawBytes   map[*core.PdfObjectStream][]byte
}

func newFakeParser() *fakeParser {
	return &fakeParser{objects: map[int64]core.PdfObject{}, rawBytes: map[*core.PdfObjectStream][]byte{}}
}

func (p *fakeParser) OpenFile(path string) error { return nil }
func (p *fakeParser) Close() error               { return nil }

func (p *fakeParser) GetPagesCount() (int, error) { return len(p.pages), nil }

func (p *fakeParser) ParsePage(index int) (*core.PdfObjectDictionary, error) {
	if index < 0 || index >= len(p.pages) {
		return nil, fmt.Errorf("page %d out of range", index)
	}
	return p.pages[index], nil
}

func (p *fakeParser) ParseNewObject(sourceID int64) (core.PdfObject, error) {
	obj, ok := p.objects[sourceID]
	if !ok {
		return nil, fmt.Errorf("no such source object %d", sourceID)
	}
	return obj, nil
}

func (p *fakeParser) QueryDictionaryObject(dict *core.PdfObjectDictionary, name core.PdfObjectName) (core.PdfObject, error) {
	val := dict.Get(name)
	if val == nil {
		return nil, nil
	}
	if ref, ok := core.GetReference(val); ok {
		return p.ParseNewObject(ref.ObjectNumber)
	}
	return val, nil
}

func (p *fakeParser) ReadStreamBytes(stream *core.PdfObjectStream, length int64) ([]byte, error) {
	raw := p.rawBytes[stream]
	if int64(len(raw)) < length {
		return nil, fmt.Errorf("declared length %d exceeds stored bytes %d", length, len(raw))
	}
	return raw[:length], nil
}

func (p *fakeParser) ReadStreamDecoded(stream *core.PdfObjectStream) ([]byte, error) {
	return core.DecodeFlate(p.rawBytes[stream])
}

// addStream registers a stream object under sourceID with the given
// raw (possibly FlateDecode-filtered) bytes, setting Length accordingly.
func (p *fakeParser) addStream(sourceID int64, dict *core.PdfObjectDictionary, raw []byte) *core.PdfObjectStream {
	dict.Set("Length", core.MakeInteger(int64(len(raw))))
	s := &core.PdfObjectStream{
		PdfObjectReference:  core.PdfObjectReference{ObjectNumber: sourceID},
		PdfObjectDictionary: dict,
	}
	p.objects[sourceID] = s
	p.rawBytes[s] = raw
	return s
}

// fakeDictWriter forwards WriteKey calls directly into the owning
// fakeObjectsContext's currently open builder, mirroring how a real
// Objects Context interleaves key and value tokens.
type fakeDictWriter struct {
	ctx *fakeObjectsContext
}

func (w *fakeDictWriter) WriteKey(name core.PdfObjectName) {
	fmt.Fprintf(w.ctx.cur, "/%s ", string(name))
}

// fakeObjectsContext is an in-memory ObjectsContext that records each
// indirect object's written tokens as plain text, for assertions.
type fakeObjectsContext struct {
	nextID  int64
	objects map[int64]*strings.Builder
	order   []int64
	cur     *strings.Builder
}

func newFakeObjectsContext() *fakeObjectsContext {
	return &fakeObjectsContext{objects: map[int64]*strings.Builder{}}
}

func (c *fakeObjectsContext) AllocateNewObjectID() int64 {
	c.nextID++
	return c.nextID
}

func (c *fakeObjectsContext) StartNewIndirectObject(targetID int64) error {
	b := &strings.Builder{}
	c.objects[targetID] = b
	c.order = append(c.order, targetID)
	c.cur = b
	return nil
}

func (c *fakeObjectsContext) EndIndirectObject() error {
	c.cur = nil
	return nil
}

func (c *fakeObjectsContext) WriteBoolean(v bool)            { fmt.Fprintf(c.cur, "%v", v) }
func (c *fakeObjectsContext) WriteInteger(v int64)           { fmt.Fprintf(c.cur, "%d", v) }
func (c *fakeObjectsContext) WriteDouble(v float64)          { fmt.Fprintf(c.cur, "%v", v) }
func (c *fakeObjectsContext) WriteLiteralString(v string)    { fmt.Fprintf(c.cur, "(%s)", v) }
func (c *fakeObjectsContext) WriteHexString(v string)        { fmt.Fprintf(c.cur, "<%s>", v) }
func (c *fakeObjectsContext) WriteName(v core.PdfObjectName) { fmt.Fprintf(c.cur, "/%s", string(v)) }
func (c *fakeObjectsContext) WriteNull()                     { c.cur.WriteString("null") }
func (c *fakeObjectsContext) WriteKeyword(v string)          { c.cur.WriteString(v) }
func (c *fakeObjectsContext) WriteIndirectObjectReference(targetID int64) {
	fmt.Fprintf(c.cur, "%d 0 R", targetID)
}

func (c *fakeObjectsContext) StartArray()             { c.cur.WriteString("[") }
func (c *fakeObjectsContext) EndArray(sep Separator)  { c.cur.WriteString("]") }
func (c *fakeObjectsContext) StartDictionary() DictionaryWriter {
	c.cur.WriteString("<<")
	return &fakeDictWriter{ctx: c}
}
func (c *fakeObjectsContext) EndDictionary(w DictionaryWriter) error {
	c.cur.WriteString(">>")
	return nil
}
func (c *fakeObjectsContext) StartFreeContext() ByteSink { return c.cur }
func (c *fakeObjectsContext) EndFreeContext()            {}
func (c *fakeObjectsContext) EndLine()                   { c.cur.WriteString("\n") }

// fakeFormXObject is an in-memory FormXObject; writes accumulate into
// its own content buffer.
type fakeFormXObject struct {
	id      int64
	content bytes.Buffer
}

func (f *fakeFormXObject) ID() int64                      { return f.id }
func (f *fakeFormXObject) Write(p []byte) (int, error)    { return f.content.Write(p) }

// fakeDocumentContext is an in-memory DocumentContext. Resources
// callbacks fire inside a synthetic indirect object so the callback's
// writes have somewhere real to land.
type fakeDocumentContext struct {
	objCtx    *fakeObjectsContext
	extenders []ResourcesWriter

	forms []*fakeFormXObject
	pages map[int64]*bytes.Buffer
}

func newFakeDocumentContext(objCtx *fakeObjectsContext) *fakeDocumentContext {
	return &fakeDocumentContext{objCtx: objCtx, pages: map[int64]*bytes.Buffer{}}
}

func (d *fakeDocumentContext) StartFormXObject(box Rectangle, matrix Matrix) (FormXObject, error) {
	fx := &fakeFormXObject{id: d.objCtx.AllocateNewObjectID()}
	d.forms = append(d.forms, fx)
	return fx, nil
}

func (d *fakeDocumentContext) invokeExtenders(targetID int64) error {
	if err := d.objCtx.StartNewIndirectObject(targetID); err != nil {
		return err
	}
	dw := d.objCtx.StartDictionary()
	for _, cb := range d.extenders {
		if err := cb.OnResourcesWrite(dw, d.objCtx); err != nil {
			return err
		}
	}
	if err := d.objCtx.EndDictionary(dw); err != nil {
		return err
	}
	return d.objCtx.EndIndirectObject()
}

func (d *fakeDocumentContext) EndFormXObjectNoRelease(fx FormXObject) error {
	return d.invokeExtenders(fx.ID())
}

func (d *fakeDocumentContext) WritePage(box Rectangle) (int64, error) {
	id := d.objCtx.AllocateNewObjectID()
	if err := d.invokeExtenders(id); err != nil {
		return 0, err
	}
	d.pages[id] = &bytes.Buffer{}
	return id, nil
}

func (d *fakeDocumentContext) AddDocumentContextExtender(cb ResourcesWriter) {
	d.extenders = append(d.extenders, cb)
}

func (d *fakeDocumentContext) RemoveDocumentContextExtender(cb ResourcesWriter) {
	for i, e := range d.extenders {
		if e == cb {
			d.extenders = append(d.extenders[:i], d.extenders[i+1:]...)
			return
		}
	}
}

func (d *fakeDocumentContext) StartPageContentContext(targetID int64) (PageContentContext, error) {
	buf, ok := d.pages[targetID]
	if !ok {
		return nil, fmt.Errorf("no such page %d", targetID)
	}
	return buf, nil
}

func (d *fakeDocumentContext) EndPageContentContext(ctx PageContentContext) error { return nil }
