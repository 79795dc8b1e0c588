/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package embedder

import (
	"github.com/go-pdfkit/pdfembed/core"
	"golang.org/x/xerrors"
)

// streamLength returns the stream dictionary's Length entry, which
// must be a direct or one-level-indirect integer.
func streamLength(p Parser, stream *core.PdfObjectStream) (int64, error) {
	lenObj, err := p.QueryDictionaryObject(stream.PdfObjectDictionary, "Length")
	if err != nil {
		return 0, xerrors.Errorf("%w: resolving Length: %v", ErrMissingLength, err)
	}
	n, ok := core.GetInteger(lenObj)
	if !ok {
		return 0, xerrors.Errorf("%w: Length is not an integer", ErrMissingLength)
	}
	return int64(*n), nil
}

// filterName returns the stream's Filter name, or "" if no Filter is
// present. A Filter that is anything other than a bare Name is
// reported as ErrUnsupportedFilter by the caller.
func filterName(stream *core.PdfObjectStream) (core.PdfObjectName, bool) {
	f := stream.Get("Filter")
	if f == nil {
		return "", false
	}
	n, ok := core.GetName(f)
	if !ok {
		// Present but not a bare Name (e.g. a filter array): report it as
		// present, so the caller rejects it as unsupported.
		return core.PdfObjectName(f.String()), true
	}
	return *n, true
}

// copyStreamBodyRaw copies a stream's raw Length bytes verbatim into
// sink, applying no filter decoding regardless of what Filter the
// stream declares. Used when serializing a standalone Stream object
// (spec.md §4.F): "whatever the Filter."
func copyStreamBodyRaw(p Parser, stream *core.PdfObjectStream, length int64, sink ByteSink) error {
	raw, err := p.ReadStreamBytes(stream, length)
	if err != nil {
		return xerrors.Errorf("%w: reading stream bytes: %v", ErrParseFailure, err)
	}
	if _, err := sink.Write(raw); err != nil {
		return xerrors.Errorf("writing stream bytes: %w", err)
	}
	return nil
}

// decodedStreamBytes returns a content stream's plaintext bytes: the
// raw bytes verbatim if no Filter is present, or the FlateDecode
// output if Filter is exactly /FlateDecode. Any other Filter fails
// with ErrUnsupportedFilter — the system deliberately refuses to
// transcode unknown filters.
func decodedStreamBytes(p Parser, stream *core.PdfObjectStream) ([]byte, error) {
	name, hasFilter := filterName(stream)
	if !hasFilter {
		length, err := streamLength(p, stream)
		if err != nil {
			return nil, err
		}
		return p.ReadStreamBytes(stream, length)
	}
	if name != "FlateDecode" {
		return nil, xerrors.Errorf("%w: %s", ErrUnsupportedFilter, name)
	}
	return p.ReadStreamDecoded(stream)
}

// resolveContentStreams resolves a page's Contents entry into an
// ordered list of source streams. Contents must be a Stream, or an
// Array of indirect references that each resolve to a Stream; any
// other shape is ErrStructuralFailure.
func resolveContentStreams(p Parser, contents core.PdfObject) ([]*core.PdfObjectStream, error) {
	if s, ok := core.GetStream(contents); ok {
		return []*core.PdfObjectStream{s}, nil
	}

	arr, ok := core.GetArray(contents)
	if !ok {
		return nil, xerrors.Errorf("%w: Contents is neither Stream nor Array", ErrStructuralFailure)
	}

	streams := make([]*core.PdfObjectStream, 0, arr.Len())
	for _, el := range arr.Elements() {
		ref, ok := core.GetReference(el)
		if !ok {
			return nil, xerrors.Errorf("%w: Contents array item is not a reference", ErrStructuralFailure)
		}
		obj, err := p.ParseNewObject(ref.ObjectNumber)
		if err != nil {
			return nil, xerrors.Errorf("%w: resolving Contents item: %v", ErrParseFailure, err)
		}
		s, ok := core.GetStream(obj)
		if !ok {
			return nil, xerrors.Errorf("%w: Contents array item is not a stream", ErrStructuralFailure)
		}
		streams = append(streams, s)
	}
	return streams, nil
}

// WriteConcatenatedContent implements the Form XObject content-copy
// flavour (spec.md §4.F(i)): page Contents are decoded and
// concatenated into a single target stream, with a newline byte
// separating successive source streams so token boundaries cannot
// merge.
func WriteConcatenatedContent(p Parser, contents core.PdfObject, sink ByteSink) error {
	streams, err := resolveContentStreams(p, contents)
	if err != nil {
		return err
	}
	for i, s := range streams {
		decoded, err := decodedStreamBytes(p, s)
		if err != nil {
			return err
		}
		if i > 0 {
			if _, err := sink.Write([]byte("\n")); err != nil {
				return xerrors.Errorf("writing separator: %w", err)
			}
		}
		if _, err := sink.Write(decoded); err != nil {
			return xerrors.Errorf("writing content: %w", err)
		}
	}
	return nil
}

// WriteAppendedContent implements the page-append content-copy
// flavour (spec.md §4.F(ii)): each source stream is written into the
// destination's page content context in turn. No inter-stream
// separator is required, since ctx is a fresh stream per source
// segment supplied by the Document Context.
func WriteAppendedContent(p Parser, contents core.PdfObject, ctx PageContentContext) error {
	streams, err := resolveContentStreams(p, contents)
	if err != nil {
		return err
	}
	for _, s := range streams {
		decoded, err := decodedStreamBytes(p, s)
		if err != nil {
			return err
		}
		if _, err := ctx.Write(decoded); err != nil {
			return xerrors.Errorf("writing content: %w", err)
		}
	}
	return nil
}

// writeStandaloneStream serializes a Stream object in full, top-level
// form (spec.md §4.F, last paragraph): the dictionary, the "stream"
// keyword, the raw Length bytes copied directly from the source file
// (no decoding, whatever the Filter), a newline, then "endstream".
// Decoding is only ever applied when a stream participates in a
// content-stream array (above); a standalone stream object is always
// passed through byte-for-byte.
func (s *TypedSerializer) writeStandaloneStream(stream *core.PdfObjectStream) ([]int64, error) {
	length, err := streamLength(s.Parser, stream)
	if err != nil {
		return nil, err
	}

	discovered, err := s.writeDictionaryBody(stream.PdfObjectDictionary)
	if err != nil {
		return nil, err
	}

	s.ObjCtx.WriteKeyword("stream")
	s.ObjCtx.EndLine()

	sink := s.ObjCtx.StartFreeContext()
	if err := copyStreamBodyRaw(s.Parser, stream, length, sink); err != nil {
		s.ObjCtx.EndFreeContext()
		return nil, err
	}
	s.ObjCtx.EndFreeContext()

	s.ObjCtx.EndLine()
	s.ObjCtx.WriteKeyword("endstream")

	return discovered, nil
}
