/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package embedder

import "github.com/go-pdfkit/pdfembed/core"

// Rectangle is a page or Form XObject bounding box.
type Rectangle struct {
	LowerLeftX, LowerLeftY   float64
	UpperRightX, UpperRightY float64
}

// defaultMediaBox is the fallback used when a page has no usable
// MediaBox anywhere in its Parent chain.
var defaultMediaBox = Rectangle{0, 0, 595, 842}

// BoxKind enumerates the named page boxes.
type BoxKind int

// Page box kinds (spec.md §3). Crop falls back to Media;
// Bleed/Trim/Art fall back to Crop.
const (
	BoxMedia BoxKind = iota
	BoxCrop
	BoxBleed
	BoxTrim
	BoxArt
)

func (k BoxKind) name() core.PdfObjectName {
	switch k {
	case BoxCrop:
		return "CropBox"
	case BoxBleed:
		return "BleedBox"
	case BoxTrim:
		return "TrimBox"
	case BoxArt:
		return "ArtBox"
	default:
		return "MediaBox"
	}
}

// lookupInherited returns page[key], or the value inherited from the
// nearest ancestor via Parent if page itself lacks key (spec.md §4.H).
func lookupInherited(p Parser, page *core.PdfObjectDictionary, key core.PdfObjectName) (core.PdfObject, bool) {
	for d := page; d != nil; {
		if v, err := p.QueryDictionaryObject(d, key); err == nil && v != nil {
			if _, isNull := v.(*core.PdfObjectNull); !isNull {
				return v, true
			}
		}
		parentObj, err := p.QueryDictionaryObject(d, "Parent")
		if err != nil || parentObj == nil {
			return nil, false
		}
		parent, ok := core.GetDict(parentObj)
		if !ok {
			return nil, false
		}
		d = parent
	}
	return nil, false
}

// resolveRectangle parses a four-element numeric array into a Rectangle,
// coercing each entry to float64 (spec.md §4.H).
func resolveRectangle(obj core.PdfObject) (Rectangle, bool) {
	arr, ok := core.GetArray(obj)
	if !ok || arr.Len() != 4 {
		return Rectangle{}, false
	}
	return Rectangle{
		LowerLeftX:  core.GetNumberAsFloat(arr.Get(0)),
		LowerLeftY:  core.GetNumberAsFloat(arr.Get(1)),
		UpperRightX: core.GetNumberAsFloat(arr.Get(2)),
		UpperRightY: core.GetNumberAsFloat(arr.Get(3)),
	}, true
}

// ResolveBox resolves kind's fallback chain against page: requested ->
// Crop -> Media -> the A4-sized default (0 0 595 842) (the requested step
// is skipped when kind is already Media or Crop, since the chain below
// covers it). Both Media and Crop are looked up inherited through the
// Parent chain, matching the original's QueryInheritedValue for both;
// Bleed/Trim/Art are looked up on the page dictionary only, never
// inherited, but still resolved through the parser so an indirect
// reference (e.g. "/TrimBox 12 0 R") is followed rather than left as a
// bare reference object.
func ResolveBox(p Parser, page *core.PdfObjectDictionary, kind BoxKind) Rectangle {
	if kind != BoxMedia && kind != BoxCrop {
		if v, err := p.QueryDictionaryObject(page, kind.name()); err == nil && v != nil {
			if rect, ok := resolveRectangle(v); ok {
				return rect
			}
		}
	}

	if kind != BoxMedia {
		if v, found := lookupInherited(p, page, BoxCrop.name()); found {
			if rect, ok := resolveRectangle(v); ok {
				return rect
			}
		}
	}

	if v, found := lookupInherited(p, page, BoxMedia.name()); found {
		if rect, ok := resolveRectangle(v); ok {
			return rect
		}
	}

	return defaultMediaBox
}
