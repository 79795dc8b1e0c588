/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package parse

import (
	"fmt"

	"github.com/go-pdfkit/pdfembed/core"
)

const maxPageTreeDepth = 64

// pages lazily flattens the document's page tree (Root -> Pages ->
// Kids, recursively) into an ordered slice of leaf Page dictionaries,
// caching the result for subsequent calls.
func (p *Parser) pages() ([]*core.PdfObjectDictionary, error) {
	if p.flatPages != nil {
		return p.flatPages, nil
	}

	rootObj := p.trailer.Get("Root")
	if rootObj == nil {
		return nil, fmt.Errorf("%w: trailer has no Root entry", ErrStructuralFailure)
	}
	ref, ok := core.GetReference(rootObj)
	if !ok {
		return nil, fmt.Errorf("%w: Root is not an indirect reference", ErrStructuralFailure)
	}
	catalogObj, err := p.ParseNewObject(ref.ObjectNumber)
	if err != nil {
		return nil, fmt.Errorf("parse: reading catalog: %w", err)
	}
	catalog, ok := core.GetDict(catalogObj)
	if !ok {
		return nil, fmt.Errorf("%w: catalog is not a dictionary", ErrStructuralFailure)
	}

	pagesRootObj, err := p.QueryDictionaryObject(catalog, "Pages")
	if err != nil {
		return nil, fmt.Errorf("parse: reading page tree root: %w", err)
	}
	pagesRoot, ok := core.GetDict(pagesRootObj)
	if !ok {
		return nil, fmt.Errorf("%w: catalog Pages is not a dictionary", ErrStructuralFailure)
	}

	var flat []*core.PdfObjectDictionary
	if err := p.collectPages(pagesRoot, 0, &flat); err != nil {
		return nil, err
	}
	p.flatPages = flat
	return flat, nil
}

// collectPages recurses a Pages tree node, appending each leaf Page
// dictionary to flat in document order.
func (p *Parser) collectPages(node *core.PdfObjectDictionary, depth int, flat *[]*core.PdfObjectDictionary) error {
	if depth > maxPageTreeDepth {
		return fmt.Errorf("%w: page tree exceeds maximum depth %d", ErrStructuralFailure, maxPageTreeDepth)
	}

	typeName, _ := core.GetName(node.Get("Type"))
	if typeName != nil && string(*typeName) == "Page" {
		*flat = append(*flat, node)
		return nil
	}

	kidsObj, err := p.QueryDictionaryObject(node, "Kids")
	if err != nil {
		return fmt.Errorf("parse: reading Kids: %w", err)
	}
	kids, ok := core.GetArray(kidsObj)
	if !ok {
		return fmt.Errorf("%w: Pages node has no Kids array", ErrStructuralFailure)
	}

	for _, el := range kids.Elements() {
		ref, ok := core.GetReference(el)
		if !ok {
			return fmt.Errorf("%w: Kids entry is not a reference", ErrStructuralFailure)
		}
		childObj, err := p.ParseNewObject(ref.ObjectNumber)
		if err != nil {
			return fmt.Errorf("parse: reading Kids entry: %w", err)
		}
		child, ok := core.GetDict(childObj)
		if !ok {
			return fmt.Errorf("%w: Kids entry is not a dictionary", ErrStructuralFailure)
		}
		if err := p.collectPages(child, depth+1, flat); err != nil {
			return err
		}
	}
	return nil
}

// GetPagesCount returns the number of leaf pages in the document.
func (p *Parser) GetPagesCount() (int, error) {
	flat, err := p.pages()
	if err != nil {
		return 0, err
	}
	return len(flat), nil
}

// ParsePage returns the leaf Page dictionary at the given zero-based
// index in document order.
func (p *Parser) ParsePage(index int) (*core.PdfObjectDictionary, error) {
	flat, err := p.pages()
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(flat) {
		return nil, fmt.Errorf("%w: page index %d out of range (%d pages)", ErrRangeError, index, len(flat))
	}
	return flat[index], nil
}
