/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package embedder

import (
	"github.com/go-pdfkit/pdfembed/core"
	"golang.org/x/xerrors"
)

// PageRange is an inclusive, zero-based page index range. A range is
// valid iff First <= Last and Last < the document's page count.
type PageRange struct {
	First, Last int
}

// PageSelection names the pages an embed operation should transplant.
// A nil/empty Ranges with All set to true selects every page.
type PageSelection struct {
	All    bool
	Ranges []PageRange
}

// AllPages selects every page in the source document.
func AllPages() PageSelection { return PageSelection{All: true} }

// Range selects a single inclusive page range.
func Range(first, last int) PageSelection {
	return PageSelection{Ranges: []PageRange{{First: first, Last: last}}}
}

// Session is the Embedder Session (component A, spec.md §4.A). It
// opens the source file, drives page iteration, and owns the
// per-session state shared across every page it embeds: the
// source-to-target identifier map and the written-page handle.
type Session struct {
	newParser func() Parser
	parser    Parser
	objCtx    ObjectsContext
	docCtx    DocumentContext

	// sourceToTarget is preserved across pages within the same
	// session so that shared resources (fonts, color spaces, images)
	// are emitted exactly once per source document, not once per page
	// (spec.md §5). It is cleared unconditionally at session end.
	sourceToTarget map[int64]int64
	serializer     *TypedSerializer

	// writtenPage is set for the duration of a single page-embedding
	// call so the Resources callback can locate the source Resources;
	// nil otherwise.
	writtenPage *core.PdfObjectDictionary

	emittedTotal int
}

// NewSession constructs a session over the given Objects Context and
// Document Context. newParser constructs a fresh Parser for each embed
// call (OpenFile/Close are one-shot per source file). The same session
// may embed pages from several source files in sequence, but
// EmbedAsFormXObjects and AppendAsPages each open and close their own
// source file, clearing the identifier map on every exit so that
// distinct embed invocations never share a target identifier for
// distinct source identifiers across files.
func NewSession(newParser func() Parser, objCtx ObjectsContext, docCtx DocumentContext) *Session {
	return &Session{newParser: newParser, objCtx: objCtx, docCtx: docCtx}
}

// reset (re)initializes per-session state for a fresh embed call.
func (s *Session) reset() {
	s.sourceToTarget = map[int64]int64{}
	s.serializer = NewTypedSerializer(s.parser, s.objCtx, s.sourceToTarget)
	s.writtenPage = nil
	s.emittedTotal = 0
}

// clear unconditionally releases per-session state. Called on every
// exit path, success or failure.
func (s *Session) clear() {
	s.sourceToTarget = nil
	s.serializer = nil
	s.writtenPage = nil
	s.parser = nil
}

// resolveRanges expands sel against pageCount into an explicit,
// validated list of zero-based page indices, stopping at the first
// invalid range exactly as encountered (lazy, per-range validation —
// not front-loaded).
func resolveRanges(sel PageSelection, pageCount int) ([]int, error) {
	if sel.All {
		indices := make([]int, pageCount)
		for i := range indices {
			indices[i] = i
		}
		return indices, nil
	}

	var indices []int
	for _, r := range sel.Ranges {
		if r.First > r.Last || r.Last >= pageCount {
			return indices, xerrors.Errorf("%w: range [%d, %d] invalid for %d page(s)", ErrRangeError, r.First, r.Last, pageCount)
		}
		for i := r.First; i <= r.Last; i++ {
			indices = append(indices, i)
		}
	}
	return indices, nil
}

// EmbedAsFormXObjects opens path, embeds every page selected by sel as
// a reusable Form XObject using box for its bounding rectangle and
// matrix as its transform, and returns the ordered list of created
// Form XObjects. On a per-page failure, subsequent pages are not
// attempted; the partial list already built is returned alongside the
// error (spec.md §4.A).
func (s *Session) EmbedAsFormXObjects(path string, sel PageSelection, box BoxKind, matrix Matrix) ([]FormXObject, error) {
	parser, pageCount, err := s.open(path)
	if err != nil {
		return nil, err
	}
	defer s.closeAndClear(parser)

	indices, rangeErr := resolveRanges(sel, pageCount)
	// indices accumulated before the invalid range is still processed,
	// per the lazy-validation behaviour preserved from the original.

	var results []FormXObject
	embedder := &PageEmbedder{session: s}
	for _, idx := range indices {
		fx, err := embedder.EmbedPageAsFormXObject(idx, box, matrix)
		if err != nil {
			return results, err
		}
		results = append(results, fx)
	}
	if rangeErr != nil {
		return results, rangeErr
	}
	return results, nil
}

// AppendAsPages opens path and appends every page selected by sel to
// the destination document as a full page (Media box only), returning
// the ordered list of target page identifiers.
func (s *Session) AppendAsPages(path string, sel PageSelection) ([]int64, error) {
	parser, pageCount, err := s.open(path)
	if err != nil {
		return nil, err
	}
	defer s.closeAndClear(parser)

	indices, rangeErr := resolveRanges(sel, pageCount)

	var results []int64
	embedder := &PageEmbedder{session: s}
	for _, idx := range indices {
		id, err := embedder.AppendPage(idx)
		if err != nil {
			return results, err
		}
		results = append(results, id)
	}
	if rangeErr != nil {
		return results, rangeErr
	}
	return results, nil
}

func (s *Session) open(path string) (Parser, int, error) {
	parser := s.newParser()
	if err := parser.OpenFile(path); err != nil {
		return nil, 0, xerrors.Errorf("%w: %v", ErrOpenFailure, err)
	}
	pageCount, err := parser.GetPagesCount()
	if err != nil {
		_ = parser.Close()
		return nil, 0, xerrors.Errorf("%w: reading page count: %v", ErrParseFailure, err)
	}
	s.parser = parser
	s.reset()
	return parser, pageCount, nil
}

func (s *Session) closeAndClear(parser Parser) {
	_ = parser.Close()
	s.clear()
}

// EmittedTotal returns the number of distinct source indirect objects
// written across every page of the most recent EmbedAsFormXObjects or
// AppendAsPages call (the count is reset when each call opens its
// source file) — the quantity spec.md §8's at-most-once-emission
// property is checked against.
func (s *Session) EmittedTotal() int {
	return s.emittedTotal
}

// IdentifierMapSize returns the number of distinct source identifiers
// currently recorded in the session's identifier map.
func (s *Session) IdentifierMapSize() int {
	return len(s.sourceToTarget)
}
