/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package parse

import "golang.org/x/xerrors"

var (
	// ErrMissingXref is returned when no startxref marker can be found.
	ErrMissingXref = xerrors.New("parse: missing cross-reference table")

	// ErrUnsupportedXref is returned for cross-reference streams, which
	// this parser does not support (classical tables only).
	ErrUnsupportedXref = xerrors.New("parse: unsupported cross-reference format")

	// ErrRangeError is returned for requests against object numbers or
	// page indices outside the document's known bounds.
	ErrRangeError = xerrors.New("parse: range error")

	// ErrStructuralFailure is returned when the document's object graph
	// does not match the shape a caller expected (e.g. Pages node
	// missing Kids, or a stream's dictionary is absent).
	ErrStructuralFailure = xerrors.New("parse: structural failure")

	// ErrMissingLength is returned when a stream's Length cannot be
	// resolved to an integer by any means, including the endstream scan.
	ErrMissingLength = xerrors.New("parse: missing or unresolvable stream Length")
)
