/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package embedder

import (
	"github.com/go-pdfkit/pdfembed/core"
	"golang.org/x/xerrors"
)

// pageResourcesCallback is the ResourcesWriter a Page Embedder
// registers with the Document Context while transplanting a page
// (spec.md §4.G). It is constructed fresh for each page and
// unregistered on every exit path.
type pageResourcesCallback struct {
	parser     Parser
	serializer *TypedSerializer
	page       *core.PdfObjectDictionary
}

// OnResourcesWrite populates the destination artifact's Resources
// subdictionary from the source page's Resources, once the Document
// Context is ready to finalize that artifact.
func (c *pageResourcesCallback) OnResourcesWrite(dw DictionaryWriter, objCtx ObjectsContext) error {
	if c.page == nil {
		// No written-page handle: nothing to populate.
		return nil
	}

	resourcesObj, err := c.parser.QueryDictionaryObject(c.page, "Resources")
	if err != nil {
		return xerrors.Errorf("%w: querying Resources: %v", ErrParseFailure, err)
	}
	if resourcesObj == nil {
		return nil
	}
	resources, ok := core.GetDict(resourcesObj)
	if !ok {
		return nil
	}

	discovered, err := c.serializer.writeDictionaryEntries(dw, resources)
	if err != nil {
		return err
	}

	// Every indirect reference reachable from Resources was already
	// copied while the page's Resources subtree was pre-walked and
	// drained (§4.C, §4.D) before this callback ever fires. If the
	// re-walk here discovers something new, copyResourcesSubtree
	// failed to pre-copy the full subtree — a bug worth surfacing
	// loudly rather than asserting past silently.
	if len(discovered) != 0 {
		return xerrors.Errorf("%w: Resources callback discovered %d uncopied reference(s)", ErrStructuralFailure, len(discovered))
	}

	return nil
}
