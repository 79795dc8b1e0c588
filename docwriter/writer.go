/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package docwriter

import (
	"fmt"
	"io"

	"github.com/go-pdfkit/pdfembed/common"
)

// Writer bundles an ObjectsContext and DocumentContext into a complete
// destination document, able to finalize the page tree, catalog and
// trailer and emit the classical cross-reference table a conformant
// reader expects (grounded on the teacher's model.PdfWriter.Write,
// adapted to this module's streaming, token-at-a-time object writer
// rather than its build-then-serialize core.PdfObject tree).
type Writer struct {
	ObjCtx *ObjectsContext
	DocCtx *DocumentContext
}

// NewWriter constructs an empty destination document.
func NewWriter() *Writer {
	objCtx := NewObjectsContext()
	return &Writer{ObjCtx: objCtx, DocCtx: NewDocumentContext(objCtx)}
}

// writePagesTreeAndCatalog emits the Pages node (Kids over every page
// appended so far) and the Catalog referencing it, returning the
// Catalog's object number for the trailer's Root entry. If no pages
// were ever appended (a document built purely from Form XObjects,
// meant to be embedded into another document rather than viewed on
// its own), an empty Pages node is still written so the output remains
// a structurally valid, if pageless, PDF.
func (w *Writer) writePagesTreeAndCatalog() (int64, error) {
	pagesNodeID := w.DocCtx.ensurePagesNode()

	if err := w.ObjCtx.StartNewIndirectObject(pagesNodeID); err != nil {
		return 0, err
	}
	dw := w.ObjCtx.StartDictionary()
	dw.WriteKey("Type")
	w.ObjCtx.WriteName("Pages")
	dw.WriteKey("Count")
	w.ObjCtx.WriteInteger(int64(len(w.DocCtx.pageIDs)))
	dw.WriteKey("Kids")
	w.ObjCtx.StartArray()
	for i, id := range w.DocCtx.pageIDs {
		if i > 0 {
			w.ObjCtx.WriteKeyword(" ")
		}
		w.ObjCtx.WriteIndirectObjectReference(id)
	}
	w.ObjCtx.EndArray(0)
	if err := w.ObjCtx.EndDictionary(dw); err != nil {
		return 0, err
	}
	if err := w.ObjCtx.EndIndirectObject(); err != nil {
		return 0, err
	}

	catalogID := w.ObjCtx.AllocateNewObjectID()
	if err := w.ObjCtx.StartNewIndirectObject(catalogID); err != nil {
		return 0, err
	}
	cdw := w.ObjCtx.StartDictionary()
	cdw.WriteKey("Type")
	w.ObjCtx.WriteName("Catalog")
	cdw.WriteKey("Pages")
	w.ObjCtx.WriteIndirectObjectReference(pagesNodeID)
	if err := w.ObjCtx.EndDictionary(cdw); err != nil {
		return 0, err
	}
	if err := w.ObjCtx.EndIndirectObject(); err != nil {
		return 0, err
	}

	return catalogID, nil
}

// Write finalizes the document (Pages tree, Catalog, classical
// cross-reference table and trailer) and writes it in full to out.
func (w *Writer) Write(out io.Writer) error {
	catalogID, err := w.writePagesTreeAndCatalog()
	if err != nil {
		return fmt.Errorf("docwriter: finalizing page tree: %w", err)
	}

	header := fmt.Sprintf("%%PDF-1.7\n%%%s\n", "\xe2\xe3\xcf\xd3")
	xrefOffset := w.ObjCtx.writePos + int64(len(header))

	var maxID int64
	for id := range w.ObjCtx.xrefs {
		if id > maxID {
			maxID = id
		}
	}

	var xrefSection, trailer string
	xrefSection = fmt.Sprintf("xref\n0 %d\n0000000000 65535 f \n", maxID+1)
	for id := int64(1); id <= maxID; id++ {
		offset, ok := w.ObjCtx.xrefs[id]
		if !ok {
			xrefSection += "0000000000 65535 f \n"
			continue
		}
		xrefSection += fmt.Sprintf("%010d 00000 n \n", offset+int64(len(header)))
	}
	trailer = fmt.Sprintf("trailer\n<< /Size %d /Root %d 0 R >>\nstartxref\n%d\n%%%%EOF", maxID+1, catalogID, xrefOffset)

	common.Log.Debug("docwriter: writing %d object(s), xref at %d", maxID, xrefOffset)

	if _, err := io.WriteString(out, header); err != nil {
		return err
	}
	if _, err := out.Write(w.ObjCtx.out.Bytes()); err != nil {
		return err
	}
	if _, err := io.WriteString(out, xrefSection); err != nil {
		return err
	}
	_, err = io.WriteString(out, trailer)
	return err
}
