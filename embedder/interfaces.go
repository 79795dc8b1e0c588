/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

// Package embedder implements the cross-document object-graph
// transplantation core: reading pages out of an existing PDF and
// reproducing them, as Form XObjects or as appended pages, inside a
// PDF that is currently being written.
//
// The package depends only on the interfaces declared in this file.
// Concrete implementations live in sibling packages (parse, docwriter)
// so this package never imports a particular parser or writer.
package embedder

import "github.com/go-pdfkit/pdfembed/core"

// Parser is the external collaborator that tokenizes source PDF
// syntax and answers page/object lookups.
type Parser interface {
	// OpenFile opens path for parsing.
	OpenFile(path string) error

	// Close releases the underlying file handle.
	Close() error

	// GetPagesCount returns the number of pages in the document.
	GetPagesCount() (int, error)

	// ParsePage returns the page dictionary for the given zero-based index.
	ParsePage(index int) (*core.PdfObjectDictionary, error)

	// ParseNewObject parses and returns the indirect object identified by
	// sourceID (its direct body, not wrapped).
	ParseNewObject(sourceID int64) (core.PdfObject, error)

	// QueryDictionaryObject returns dict[name], transparently resolving
	// one level of indirect reference.
	QueryDictionaryObject(dict *core.PdfObjectDictionary, name core.PdfObjectName) (core.PdfObject, error)

	// ReadStreamBytes reads exactly length raw bytes of a stream's
	// content starting at the stream's declared content offset,
	// performing no filter decoding.
	ReadStreamBytes(stream *core.PdfObjectStream, length int64) ([]byte, error)

	// ReadStreamDecoded reads a stream's raw bytes and, if its Filter is
	// FlateDecode, inflates them; any other filter is an error.
	ReadStreamDecoded(stream *core.PdfObjectStream) ([]byte, error)
}

// Separator is the token separator used between written values.
type Separator int

// Token separators (spec.md §6): array items use Space, outer
// contexts use EndLine.
const (
	SeparatorSpace Separator = iota
	SeparatorEndLine
)

// DictionaryWriter receives a dictionary's key/value pairs as they
// are written, and is closed with EndDictionary.
type DictionaryWriter interface {
	WriteKey(name core.PdfObjectName)
}

// ByteSink is a raw byte destination for stream bodies.
type ByteSink interface {
	Write(p []byte) (int, error)
}

// ObjectsContext is the external collaborator that owns the
// destination document's indirect-object numbering and low-level
// token writers.
type ObjectsContext interface {
	// AllocateNewObjectID reserves a fresh target identifier.
	AllocateNewObjectID() int64

	// StartNewIndirectObject begins writing the body of targetID.
	StartNewIndirectObject(targetID int64) error
	// EndIndirectObject closes the indirect object opened by
	// StartNewIndirectObject.
	EndIndirectObject() error

	WriteBoolean(v bool)
	WriteInteger(v int64)
	WriteDouble(v float64)
	WriteLiteralString(v string)
	WriteHexString(v string)
	WriteName(v core.PdfObjectName)
	WriteNull()
	WriteKeyword(v string)
	WriteIndirectObjectReference(targetID int64)

	StartArray()
	EndArray(sep Separator)

	StartDictionary() DictionaryWriter
	EndDictionary(w DictionaryWriter) error

	StartFreeContext() ByteSink
	EndFreeContext()

	EndLine()
}

// FormXObject is an opaque handle to a Form XObject under
// construction in the destination document. Writing to it via the
// embedded ByteSink appends to its content stream.
type FormXObject interface {
	ByteSink

	// ID returns the target object identifier allocated for this
	// Form XObject.
	ID() int64
}

// PageContentContext is an opaque handle to a page's content stream
// under construction in the destination document.
type PageContentContext interface {
	ByteSink
}

// Matrix is a PDF 6-element transformation matrix [a b c d e f].
type Matrix [6]float64

// IdentityMatrix is the no-op transform.
var IdentityMatrix = Matrix{1, 0, 0, 1, 0, 0}

// DocumentContext is the external collaborator that materializes Form
// XObjects and pages in the destination and drives the Resources
// callback at finalization time.
type DocumentContext interface {
	// StartFormXObject begins a Form XObject with the given bounding
	// box and transform.
	StartFormXObject(box Rectangle, matrix Matrix) (FormXObject, error)
	// EndFormXObjectNoRelease finalizes fx without releasing any
	// associated resources held by the caller.
	EndFormXObjectNoRelease(fx FormXObject) error

	// WritePage appends a new page built from box and returns its
	// target identifier.
	WritePage(box Rectangle) (int64, error)

	// AddDocumentContextExtender registers cb to be invoked when this
	// context needs a Resources dictionary populated.
	AddDocumentContextExtender(cb ResourcesWriter)
	// RemoveDocumentContextExtender unregisters a previously added
	// callback.
	RemoveDocumentContextExtender(cb ResourcesWriter)

	// StartPageContentContext opens a content stream sink for the page
	// identified by targetID.
	StartPageContentContext(targetID int64) (PageContentContext, error)
	// EndPageContentContext closes a content stream opened by
	// StartPageContentContext.
	EndPageContentContext(ctx PageContentContext) error
}

// ResourcesWriter is the capability a Page Embedder registers with the
// Document Context so that, when the context finalizes an artifact,
// it can populate that artifact's Resources subdictionary.
type ResourcesWriter interface {
	// OnResourcesWrite writes the Resources entries through dw and
	// objCtx. Every reference reachable from the source Resources was
	// already copied while the page was embedded, so writing them is
	// expected to discover no new source identifier; the embedder's
	// implementation returns an error if it does.
	OnResourcesWrite(dw DictionaryWriter, objCtx ObjectsContext) error
}
