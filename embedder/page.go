/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package embedder

import (
	"github.com/go-pdfkit/pdfembed/core"
	"golang.org/x/xerrors"
)

// PageEmbedder materializes a single source page as a Form XObject or
// as a new destination page (spec.md §4.B). It is a thin driver over
// the Session's shared identifier map and serializer.
type PageEmbedder struct {
	session *Session
}

// copyResourcesSubtree discovers and copies every indirect object
// transitively reachable from page's Resources dictionary (spec.md
// §4.B steps 2-3, driving components C and D).
func (e *PageEmbedder) copyResourcesSubtree(page *core.PdfObjectDictionary) error {
	s := e.session
	resourcesObj, err := s.parser.QueryDictionaryObject(page, "Resources")
	if err != nil {
		return xerrors.Errorf("%w: querying Resources: %v", ErrParseFailure, err)
	}
	if resourcesObj == nil {
		return nil
	}

	pending := DiscoverReferences(resourcesObj, s.sourceToTarget)
	if len(pending) == 0 {
		return nil
	}

	worklist := NewCopyWorklist(s.parser, s.objCtx, s.serializer)
	if err := worklist.Drain(pending); err != nil {
		return err
	}
	s.emittedTotal += worklist.EmittedCount()
	return nil
}

// EmbedPageAsFormXObject transplants source page index idx as a Form
// XObject with the given bounding box kind and transform.
func (e *PageEmbedder) EmbedPageAsFormXObject(idx int, box BoxKind, matrix Matrix) (FormXObject, error) {
	s := e.session

	page, err := s.parser.ParsePage(idx)
	if err != nil {
		return nil, xerrors.Errorf("%w: parsing page %d: %v", ErrParseFailure, idx, err)
	}

	rect := ResolveBox(s.parser, page, box)

	if err := e.copyResourcesSubtree(page); err != nil {
		return nil, err
	}

	fx, err := s.docCtx.StartFormXObject(rect, matrix)
	if err != nil {
		return nil, xerrors.Errorf("%w: starting Form XObject: %v", ErrStructuralFailure, err)
	}

	contents, err := s.parser.QueryDictionaryObject(page, "Contents")
	if err != nil {
		return nil, xerrors.Errorf("%w: querying Contents: %v", ErrParseFailure, err)
	}
	if err := WriteConcatenatedContent(s.parser, contents, fx); err != nil {
		return nil, err
	}

	callback := &pageResourcesCallback{parser: s.parser, serializer: s.serializer, page: page}
	s.writtenPage = page
	s.docCtx.AddDocumentContextExtender(callback)
	defer func() {
		s.docCtx.RemoveDocumentContextExtender(callback)
		s.writtenPage = nil
	}()

	if err := s.docCtx.EndFormXObjectNoRelease(fx); err != nil {
		return nil, xerrors.Errorf("%w: finalizing Form XObject: %v", ErrStructuralFailure, err)
	}

	return fx, nil
}

// AppendPage transplants source page index idx as a full page appended
// to the destination document, using its Media box only.
func (e *PageEmbedder) AppendPage(idx int) (int64, error) {
	s := e.session

	page, err := s.parser.ParsePage(idx)
	if err != nil {
		return 0, xerrors.Errorf("%w: parsing page %d: %v", ErrParseFailure, idx, err)
	}

	rect := ResolveBox(s.parser, page, BoxMedia)

	if err := e.copyResourcesSubtree(page); err != nil {
		return 0, err
	}

	callback := &pageResourcesCallback{parser: s.parser, serializer: s.serializer, page: page}
	s.writtenPage = page
	s.docCtx.AddDocumentContextExtender(callback)
	defer func() {
		s.docCtx.RemoveDocumentContextExtender(callback)
		s.writtenPage = nil
	}()

	targetID, err := s.docCtx.WritePage(rect)
	if err != nil {
		return 0, xerrors.Errorf("%w: writing page: %v", ErrStructuralFailure, err)
	}

	contents, err := s.parser.QueryDictionaryObject(page, "Contents")
	if err != nil {
		return 0, xerrors.Errorf("%w: querying Contents: %v", ErrParseFailure, err)
	}

	ctx, err := s.docCtx.StartPageContentContext(targetID)
	if err != nil {
		return 0, xerrors.Errorf("%w: starting page content context: %v", ErrStructuralFailure, err)
	}
	if err := WriteAppendedContent(s.parser, contents, ctx); err != nil {
		_ = s.docCtx.EndPageContentContext(ctx)
		return 0, err
	}
	if err := s.docCtx.EndPageContentContext(ctx); err != nil {
		return 0, xerrors.Errorf("%w: closing page content context: %v", ErrStructuralFailure, err)
	}

	return targetID, nil
}
