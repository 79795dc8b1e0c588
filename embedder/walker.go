/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package embedder

import "github.com/go-pdfkit/pdfembed/core"

// DiscoverReferences walks root depth-first and returns, in discovery
// order, the source identifier of every indirect reference reachable
// from it whose source identifier is not already present in seen.
// Target-ID allocation is deliberately not performed here: it happens
// lazily in the Copy Worklist (D) or the Typed Serializer (E).
//
// Dictionary keys are assumed direct and are never scanned; this
// mirrors how the object model is parsed and is preserved even though
// it means an indirected Name key would be missed.
//
// The walker does not deduplicate aggressively against itself within
// one call: a reference reachable through two paths in the same root
// may appear twice in the result. The Copy Worklist is responsible for
// collapsing duplicates defensively via emittedSet.
func DiscoverReferences(root core.PdfObject, seen map[int64]int64) []int64 {
	var out []int64
	discoverInto(root, seen, &out)
	return out
}

func discoverInto(obj core.PdfObject, seen map[int64]int64, out *[]int64) {
	switch v := obj.(type) {
	case *core.PdfObjectReference:
		if _, found := seen[v.ObjectNumber]; !found {
			*out = append(*out, v.ObjectNumber)
		}
	case *core.PdfObjectArray:
		for _, el := range v.Elements() {
			discoverInto(el, seen, out)
		}
	case *core.PdfObjectDictionary:
		for _, k := range v.Keys() {
			discoverInto(v.Get(k), seen, out)
		}
	case *core.PdfObjectStream:
		for _, k := range v.Keys() {
			discoverInto(v.Get(k), seen, out)
		}
	default:
		// Boolean, Integer, Real, strings, Name, Keyword, Null: ignored.
	}
}
