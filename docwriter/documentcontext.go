/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package docwriter

import (
	"bytes"
	"fmt"

	"github.com/go-pdfkit/pdfembed/embedder"
)

// FormXObject is docwriter's embedder.FormXObject implementation: its
// content accumulates in memory until EndFormXObjectNoRelease finally
// writes the backing indirect object, since the object's own Length
// and Resources are only known once the caller is done writing to it.
type FormXObject struct {
	id      int64
	content bytes.Buffer
	box     embedder.Rectangle
	matrix  embedder.Matrix
}

// ID returns the destination object number reserved for this Form XObject.
func (f *FormXObject) ID() int64 { return f.id }

// Write appends to the Form XObject's content stream.
func (f *FormXObject) Write(p []byte) (int, error) { return f.content.Write(p) }

// pageContentContext is docwriter's embedder.PageContentContext: a
// page's content stream is its own indirect object, written out when
// EndPageContentContext closes it.
type pageContentContext struct {
	buf       bytes.Buffer
	contentID int64
}

func (c *pageContentContext) Write(p []byte) (int, error) { return c.buf.Write(p) }

// DocumentContext assembles a destination document: it owns the page
// tree and drives the Resources callback at Form XObject/Page
// finalization time (spec.md §4, Document Context collaborator).
type DocumentContext struct {
	objCtx    *ObjectsContext
	extenders []embedder.ResourcesWriter

	pagesNodeID int64
	pageIDs     []int64
	contentIDs  map[int64]int64 // page ID -> its content stream's object ID
}

// NewDocumentContext constructs a Document Context writing through objCtx.
func NewDocumentContext(objCtx *ObjectsContext) *DocumentContext {
	return &DocumentContext{objCtx: objCtx, contentIDs: map[int64]int64{}}
}

func (d *DocumentContext) ensurePagesNode() int64 {
	if d.pagesNodeID == 0 {
		d.pagesNodeID = d.objCtx.AllocateNewObjectID()
	}
	return d.pagesNodeID
}

// AddDocumentContextExtender registers cb to be invoked whenever a
// Resources dictionary is written, until RemoveDocumentContextExtender
// unregisters it.
func (d *DocumentContext) AddDocumentContextExtender(cb embedder.ResourcesWriter) {
	d.extenders = append(d.extenders, cb)
}

// RemoveDocumentContextExtender unregisters cb.
func (d *DocumentContext) RemoveDocumentContextExtender(cb embedder.ResourcesWriter) {
	for i, e := range d.extenders {
		if e == cb {
			d.extenders = append(d.extenders[:i], d.extenders[i+1:]...)
			return
		}
	}
}

func (d *DocumentContext) writeRectangleArray(r embedder.Rectangle) {
	d.objCtx.StartArray()
	d.objCtx.WriteDouble(r.LowerLeftX)
	d.objCtx.WriteKeyword(" ")
	d.objCtx.WriteDouble(r.LowerLeftY)
	d.objCtx.WriteKeyword(" ")
	d.objCtx.WriteDouble(r.UpperRightX)
	d.objCtx.WriteKeyword(" ")
	d.objCtx.WriteDouble(r.UpperRightY)
	d.objCtx.EndArray(embedder.SeparatorSpace)
}

func (d *DocumentContext) writeMatrixArray(m embedder.Matrix) {
	d.objCtx.StartArray()
	for i, v := range m {
		if i > 0 {
			d.objCtx.WriteKeyword(" ")
		}
		d.objCtx.WriteDouble(v)
	}
	d.objCtx.EndArray(embedder.SeparatorSpace)
}

// writeResourcesDictionary writes a "Resources" key-value pair,
// driving every registered extender against the opened sub-dictionary
// (spec.md §4.G).
func (d *DocumentContext) writeResourcesDictionary(dw embedder.DictionaryWriter) error {
	dw.WriteKey("Resources")
	resDW := d.objCtx.StartDictionary()
	for _, cb := range d.extenders {
		if err := cb.OnResourcesWrite(resDW, d.objCtx); err != nil {
			return err
		}
	}
	return d.objCtx.EndDictionary(resDW)
}

// StartFormXObject reserves an object number for a new Form XObject
// and returns a handle the caller writes decoded page content into.
func (d *DocumentContext) StartFormXObject(box embedder.Rectangle, matrix embedder.Matrix) (embedder.FormXObject, error) {
	return &FormXObject{id: d.objCtx.AllocateNewObjectID(), box: box, matrix: matrix}, nil
}

// EndFormXObjectNoRelease finalizes fx: writes its header dictionary
// (driving the Resources callback) followed by its accumulated
// content as the stream body.
func (d *DocumentContext) EndFormXObjectNoRelease(fxIface embedder.FormXObject) error {
	fx, ok := fxIface.(*FormXObject)
	if !ok {
		return fmt.Errorf("docwriter: EndFormXObjectNoRelease: not a docwriter.FormXObject")
	}

	if err := d.objCtx.StartNewIndirectObject(fx.id); err != nil {
		return err
	}
	dw := d.objCtx.StartDictionary()
	dw.WriteKey("Type")
	d.objCtx.WriteName("XObject")
	dw.WriteKey("Subtype")
	d.objCtx.WriteName("Form")
	dw.WriteKey("FormType")
	d.objCtx.WriteInteger(1)
	dw.WriteKey("BBox")
	d.writeRectangleArray(fx.box)
	dw.WriteKey("Matrix")
	d.writeMatrixArray(fx.matrix)
	dw.WriteKey("Length")
	d.objCtx.WriteInteger(int64(fx.content.Len()))
	if err := d.writeResourcesDictionary(dw); err != nil {
		return err
	}
	if err := d.objCtx.EndDictionary(dw); err != nil {
		return err
	}

	d.objCtx.WriteKeyword("stream")
	d.objCtx.EndLine()
	sink := d.objCtx.StartFreeContext()
	if _, err := sink.Write(fx.content.Bytes()); err != nil {
		d.objCtx.EndFreeContext()
		return err
	}
	d.objCtx.EndFreeContext()
	d.objCtx.EndLine()
	d.objCtx.WriteKeyword("endstream")

	return d.objCtx.EndIndirectObject()
}

// WritePage reserves object numbers for a new page and its content
// stream, writes the page's header dictionary immediately (driving the
// Resources callback), and returns the page's object number. The
// content stream body itself is written later, via
// StartPageContentContext/EndPageContentContext.
func (d *DocumentContext) WritePage(box embedder.Rectangle) (int64, error) {
	pagesNodeID := d.ensurePagesNode()
	pageID := d.objCtx.AllocateNewObjectID()
	contentID := d.objCtx.AllocateNewObjectID()

	if err := d.objCtx.StartNewIndirectObject(pageID); err != nil {
		return 0, err
	}
	dw := d.objCtx.StartDictionary()
	dw.WriteKey("Type")
	d.objCtx.WriteName("Page")
	dw.WriteKey("Parent")
	d.objCtx.WriteIndirectObjectReference(pagesNodeID)
	dw.WriteKey("MediaBox")
	d.writeRectangleArray(box)
	dw.WriteKey("Contents")
	d.objCtx.WriteIndirectObjectReference(contentID)
	if err := d.writeResourcesDictionary(dw); err != nil {
		return 0, err
	}
	if err := d.objCtx.EndDictionary(dw); err != nil {
		return 0, err
	}
	if err := d.objCtx.EndIndirectObject(); err != nil {
		return 0, err
	}

	d.pageIDs = append(d.pageIDs, pageID)
	d.contentIDs[pageID] = contentID
	return pageID, nil
}

// StartPageContentContext opens a fresh content stream for the page
// identified by targetID (as returned by WritePage).
func (d *DocumentContext) StartPageContentContext(targetID int64) (embedder.PageContentContext, error) {
	contentID, ok := d.contentIDs[targetID]
	if !ok {
		return nil, fmt.Errorf("docwriter: no content stream reserved for page %d", targetID)
	}
	return &pageContentContext{contentID: contentID}, nil
}

// EndPageContentContext finalizes ctx's content stream as its own
// indirect object.
func (d *DocumentContext) EndPageContentContext(ctxIface embedder.PageContentContext) error {
	ctx, ok := ctxIface.(*pageContentContext)
	if !ok {
		return fmt.Errorf("docwriter: EndPageContentContext: not a docwriter.pageContentContext")
	}

	if err := d.objCtx.StartNewIndirectObject(ctx.contentID); err != nil {
		return err
	}
	dw := d.objCtx.StartDictionary()
	dw.WriteKey("Length")
	d.objCtx.WriteInteger(int64(ctx.buf.Len()))
	if err := d.objCtx.EndDictionary(dw); err != nil {
		return err
	}

	d.objCtx.WriteKeyword("stream")
	d.objCtx.EndLine()
	sink := d.objCtx.StartFreeContext()
	if _, err := sink.Write(ctx.buf.Bytes()); err != nil {
		d.objCtx.EndFreeContext()
		return err
	}
	d.objCtx.EndFreeContext()
	d.objCtx.EndLine()
	d.objCtx.WriteKeyword("endstream")

	return d.objCtx.EndIndirectObject()
}
