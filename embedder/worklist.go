/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package embedder

import "golang.org/x/xerrors"

// CopyWorklist drives the fixed-point copy of source indirect objects
// into the destination (spec.md §4.D). It shares its identifier map
// with the TypedSerializer that performs the actual writing.
type CopyWorklist struct {
	Parser     Parser
	ObjCtx     ObjectsContext
	Serializer *TypedSerializer

	// emittedSet holds every source identifier this worklist has
	// emitted; an identifier is added just before its body is written
	// (see Drain). The Page Embedder builds a new worklist for each
	// page's resource copy.
	emittedSet map[int64]bool
}

// NewCopyWorklist constructs a worklist over the given serializer,
// sharing its identifier map.
func NewCopyWorklist(p Parser, objCtx ObjectsContext, serializer *TypedSerializer) *CopyWorklist {
	return &CopyWorklist{
		Parser:     p,
		ObjCtx:     objCtx,
		Serializer: serializer,
		emittedSet: map[int64]bool{},
	}
}

// Drain processes pending, a list of source identifiers whose target
// identifier may or may not yet be allocated, emitting each exactly
// once. Any source identifiers the Typed Serializer discovers while
// emitting an object are recursed into before the work already queued,
// so the whole reachable subgraph is copied, in depth-first discovery
// order, before Drain returns.
func (w *CopyWorklist) Drain(pending []int64) error {
	queue := append([]int64{}, pending...)

	for len(queue) > 0 {
		sourceID := queue[0]
		queue = queue[1:]

		if w.emittedSet[sourceID] {
			continue
		}

		target, found := w.Serializer.SourceToTarget[sourceID]
		if !found {
			target = w.ObjCtx.AllocateNewObjectID()
			w.Serializer.SourceToTarget[sourceID] = target
		}

		// Mark emitted before writing the body: a self- or cyclic
		// reference encountered while writing resolves to the
		// already-allocated target and is not re-enqueued.
		w.emittedSet[sourceID] = true

		obj, err := w.Parser.ParseNewObject(sourceID)
		if err != nil {
			return xerrors.Errorf("%w: parsing source object %d: %v", ErrParseFailure, sourceID, err)
		}

		if err := w.ObjCtx.StartNewIndirectObject(target); err != nil {
			return xerrors.Errorf("starting indirect object %d: %w", target, err)
		}
		discovered, err := w.Serializer.WriteTopLevel(obj)
		if err != nil {
			return err
		}
		if err := w.ObjCtx.EndIndirectObject(); err != nil {
			return xerrors.Errorf("closing indirect object %d: %w", target, err)
		}

		// Recurse on discovered before continuing the remaining queue
		// (spec.md §4.D), so objects emit in the depth-first discovery
		// order of the reference walk (spec.md §5(c)): prepend rather
		// than append.
		queue = append(append([]int64{}, discovered...), queue...)
	}

	return nil
}

// Emitted reports whether sourceID has already been written by this
// worklist.
func (w *CopyWorklist) Emitted(sourceID int64) bool {
	return w.emittedSet[sourceID]
}

// EmittedCount returns the number of distinct source identifiers
// emitted so far, the quantity spec.md §8's at-most-once-emission
// property is checked against.
func (w *CopyWorklist) EmittedCount() int {
	return len(w.emittedSet)
}
