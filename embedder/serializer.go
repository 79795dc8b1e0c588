/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package embedder

import (
	"github.com/go-pdfkit/pdfembed/core"
)

// TypedSerializer writes parsed-object values to the destination
// through an ObjectsContext, rewriting indirect references to their
// destination identifiers on the fly (spec.md §4.E). It is shared by
// every page embedded within one session so the identifier map stays
// consistent across them.
type TypedSerializer struct {
	Parser Parser
	ObjCtx ObjectsContext

	// SourceToTarget is the session's identifier map. Once a source
	// identifier is inserted, its target value never changes for the
	// remainder of the session (spec.md §3).
	SourceToTarget map[int64]int64
}

// NewTypedSerializer constructs a serializer sharing sourceToTarget
// with the rest of the session.
func NewTypedSerializer(p Parser, objCtx ObjectsContext, sourceToTarget map[int64]int64) *TypedSerializer {
	return &TypedSerializer{Parser: p, ObjCtx: objCtx, SourceToTarget: sourceToTarget}
}

// resolveOrAllocate looks up ref's target identifier, allocating and
// recording a fresh one if this is the first time ref's source
// identifier is seen. Returns the target ID and whether it was newly
// allocated.
func (s *TypedSerializer) resolveOrAllocate(ref *core.PdfObjectReference) (int64, bool) {
	if target, found := s.SourceToTarget[ref.ObjectNumber]; found {
		return target, false
	}
	target := s.ObjCtx.AllocateNewObjectID()
	s.SourceToTarget[ref.ObjectNumber] = target
	return target, true
}

// WriteTopLevel writes obj as the body of an already-open indirect
// object (top-level dispatch context: array items separated by Space,
// the value itself followed by EndLine semantics managed by the
// caller). It returns the source identifiers newly discovered while
// writing obj, in discovery order.
func (s *TypedSerializer) WriteTopLevel(obj core.PdfObject) ([]int64, error) {
	if stream, ok := core.GetStream(obj); ok {
		return s.writeStandaloneStream(stream)
	}
	return s.writeValue(obj)
}

// WriteDictionaryValue writes obj as a dictionary's value (spec.md
// §4.E): identical dispatch to WriteTopLevel except a Stream in this
// position is illegal PDF and is handled as a non-fatal warning: it is
// logged and skipped rather than written or treated as an error.
func (s *TypedSerializer) WriteDictionaryValue(obj core.PdfObject) ([]int64, error) {
	if _, ok := core.GetStream(obj); ok {
		logWarning("embedder: Stream object written as dictionary value, skipping")
		return nil, nil
	}
	return s.writeValue(obj)
}

// writeValue dispatches every variant except Stream, which only the
// two exported entry points above handle (with different legality).
func (s *TypedSerializer) writeValue(obj core.PdfObject) ([]int64, error) {
	switch v := obj.(type) {
	case *core.PdfObjectBool:
		s.ObjCtx.WriteBoolean(bool(*v))
		return nil, nil

	case *core.PdfObjectInteger:
		s.ObjCtx.WriteInteger(int64(*v))
		return nil, nil

	case *core.PdfObjectFloat:
		s.ObjCtx.WriteDouble(float64(*v))
		return nil, nil

	case *core.PdfObjectString:
		if v.IsHex() {
			s.ObjCtx.WriteHexString(v.Str())
		} else {
			s.ObjCtx.WriteLiteralString(v.Str())
		}
		return nil, nil

	case *core.PdfObjectName:
		s.ObjCtx.WriteName(*v)
		return nil, nil

	case *core.PdfObjectKeyword:
		s.ObjCtx.WriteKeyword(string(*v))
		return nil, nil

	case *core.PdfObjectNull:
		s.ObjCtx.WriteNull()
		return nil, nil

	case *core.PdfObjectReference:
		target, isNew := s.resolveOrAllocate(v)
		s.ObjCtx.WriteIndirectObjectReference(target)
		if isNew {
			return []int64{v.ObjectNumber}, nil
		}
		return nil, nil

	case *core.PdfObjectArray:
		return s.writeArray(v)

	case *core.PdfObjectDictionary:
		return s.writeDictionary(v)

	default:
		// core.PdfIndirectObject and any other wrapper should never
		// reach the serializer directly; callers deal in direct bodies.
		return nil, nil
	}
}

func (s *TypedSerializer) writeArray(arr *core.PdfObjectArray) ([]int64, error) {
	var discovered []int64
	s.ObjCtx.StartArray()
	for i, el := range arr.Elements() {
		if i > 0 {
			// spec.md §6: array items use Space, not EndLine.
			s.ObjCtx.WriteKeyword(" ")
		}
		found, err := s.writeValue(el)
		if err != nil {
			return nil, err
		}
		discovered = append(discovered, found...)
	}
	s.ObjCtx.EndArray(SeparatorSpace)
	return discovered, nil
}

func (s *TypedSerializer) writeDictionary(dict *core.PdfObjectDictionary) ([]int64, error) {
	dw := s.ObjCtx.StartDictionary()
	discovered, err := s.writeDictionaryEntries(dw, dict)
	if err != nil {
		return nil, err
	}
	// spec.md §9: when EndDictionary fails here, the failure is not
	// propagated up from this call, matching the original's observable
	// behaviour. docwriter.ObjectsContext still returns the error to
	// any caller that invokes EndDictionary directly.
	_ = s.ObjCtx.EndDictionary(dw)
	return discovered, nil
}

// writeDictionaryBody writes a stream's header dictionary, including
// its surrounding <<...>>. Unlike writeDictionary, it returns
// EndDictionary's error to the caller.
func (s *TypedSerializer) writeDictionaryBody(dict *core.PdfObjectDictionary) ([]int64, error) {
	dw := s.ObjCtx.StartDictionary()
	discovered, err := s.writeDictionaryEntries(dw, dict)
	if err != nil {
		return nil, err
	}
	if err := s.ObjCtx.EndDictionary(dw); err != nil {
		return nil, err
	}
	return discovered, nil
}

func (s *TypedSerializer) writeDictionaryEntries(dw DictionaryWriter, dict *core.PdfObjectDictionary) ([]int64, error) {
	var discovered []int64
	// Dictionary entries preserve the parser's iteration order exactly;
	// they are never re-ordered, so ordered dictionaries (e.g. font
	// descriptors) round-trip.
	for _, key := range dict.Keys() {
		dw.WriteKey(key)
		found, err := s.WriteDictionaryValue(dict.Get(key))
		if err != nil {
			return nil, err
		}
		discovered = append(discovered, found...)
	}
	return discovered, nil
}
