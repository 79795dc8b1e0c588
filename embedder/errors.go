/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package embedder

import "golang.org/x/xerrors"

// Error kinds surfaced by a Session (spec.md §7). Parse, structure,
// filter, length, range and open failures are returned as one of these,
// wrapped with xerrors.Errorf so the originating call site is retained
// in the error chain. Errors from writing to the destination (opening or
// closing an indirect object, writing stream bytes) are wrapped with
// call-site context but carry none of these kinds.
var (
	// ErrOpenFailure: the source file cannot be opened.
	ErrOpenFailure = xerrors.New("embedder: open failure")
	// ErrParseFailure: the parser refuses the source, or a page/object
	// cannot be materialized.
	ErrParseFailure = xerrors.New("embedder: parse failure")
	// ErrStructuralFailure: Contents is neither Stream nor Array, or the
	// Contents array holds non-reference or non-stream items. A page box
	// array of the wrong arity is not reported as an error: ResolveBox
	// falls back to the next box in its chain.
	ErrStructuralFailure = xerrors.New("embedder: structural failure")
	// ErrUnsupportedFilter: a stream Filter is present and is not
	// exactly FlateDecode, in a context that requires decoding.
	ErrUnsupportedFilter = xerrors.New("embedder: unsupported filter")
	// ErrMissingLength: a stream dictionary lacks an integer Length.
	ErrMissingLength = xerrors.New("embedder: missing stream length")
	// ErrRangeError: the page selection contains an invalid or
	// out-of-bounds range.
	ErrRangeError = xerrors.New("embedder: invalid page range")
)
