/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package embedder

import (
	"bytes"
	"compress/zlib"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-pdfkit/pdfembed/core"
)

func newTestSession(p *fakeParser) (*Session, *fakeObjectsContext, *fakeDocumentContext) {
	objCtx := newFakeObjectsContext()
	docCtx := newFakeDocumentContext(objCtx)
	session := NewSession(func() Parser { return p }, objCtx, docCtx)
	return session, objCtx, docCtx
}

func flateCompress(t *testing.T, plain string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, err := w.Write([]byte(plain))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// TestSinglePagePassthrough covers scenario 1: a source PDF with one
// page whose Resources references one Font object (indirect).
// Embedding as a Form XObject should copy exactly one Font and wire
// the Form XObject's Resources to reference it.
func TestSinglePagePassthrough(t *testing.T) {
	p := newFakeParser()

	fontDict := core.MakeDict()
	fontDict.Set("Type", core.MakeName("Font"))
	fontDict.Set("Subtype", core.MakeName("Type1"))
	p.objects[5] = fontDict

	resources := core.MakeDict()
	fontsDict := core.MakeDict()
	fontsDict.Set("F1", core.MakeReference(5, 0))
	resources.Set("Font", fontsDict)

	page := core.MakeDict()
	page.Set("Resources", resources)
	raw := flateCompress(t, "q BT ET Q")
	contentDict := core.MakeDict()
	contentDict.Set("Filter", core.MakeName("FlateDecode"))
	stream := p.addStream(10, contentDict, raw)
	page.Set("Contents", stream)
	p.pages = append(p.pages, page)

	session, objCtx, _ := newTestSession(p)
	results, err := session.EmbedAsFormXObjects("src.pdf", AllPages(), BoxMedia, IdentityMatrix)
	require.NoError(t, err)
	require.Len(t, results, 1)

	require.Equal(t, 1, session.IdentifierMapSize())

	// The font's source ID 5 must have an allocated target distinct
	// from the Form XObject's own synthetic resources-dict object, and
	// that object's finalize-time body must reference it.
	var target int64
	for _, id := range objCtx.order {
		if id != results[0].ID() {
			target = id
		}
	}
	require.NotZero(t, target)

	fxBody := objCtx.objects[results[0].ID()].String()
	require.Contains(t, fxBody, "/Font")
	require.Contains(t, fxBody, "0 R")

	fontBody := objCtx.objects[target].String()
	require.Contains(t, fontBody, "/Font")
	require.Contains(t, fontBody, "/Type1")
}

// TestSharedFontAcrossPages covers scenario 2: three pages sharing one
// Font indirect, embedded in one session. Exactly one Font must be
// copied; all three Form XObjects reference it.
func TestSharedFontAcrossPages(t *testing.T) {
	p := newFakeParser()

	fontDict := core.MakeDict()
	fontDict.Set("Type", core.MakeName("Font"))
	p.objects[1] = fontDict

	for i := 0; i < 3; i++ {
		resources := core.MakeDict()
		fontsDict := core.MakeDict()
		fontsDict.Set("F1", core.MakeReference(1, 0))
		resources.Set("Font", fontsDict)

		page := core.MakeDict()
		page.Set("Resources", resources)
		raw := flateCompress(t, "q Q")
		contentDict := core.MakeDict()
		contentDict.Set("Filter", core.MakeName("FlateDecode"))
		stream := p.addStream(int64(100+i), contentDict, raw)
		page.Set("Contents", stream)
		p.pages = append(p.pages, page)
	}

	session, objCtx, _ := newTestSession(p)
	results, err := session.EmbedAsFormXObjects("src.pdf", AllPages(), BoxMedia, IdentityMatrix)
	require.NoError(t, err)
	require.Len(t, results, 3)

	// Exactly one source identifier (the font) was ever recorded.
	require.Equal(t, 1, session.IdentifierMapSize())
	require.Equal(t, 1, session.EmittedTotal())
}

// TestCyclicResourceGraph covers scenario 3: dict X references dict Y
// and Y references X. Embedding must terminate, producing exactly two
// target objects that mutually reference each other.
func TestCyclicResourceGraph(t *testing.T) {
	p := newFakeParser()

	x := core.MakeDict()
	x.Set("Peer", core.MakeReference(2, 0))
	y := core.MakeDict()
	y.Set("Peer", core.MakeReference(1, 0))
	p.objects[1] = x
	p.objects[2] = y

	resources := core.MakeDict()
	resources.Set("X", core.MakeReference(1, 0))

	page := core.MakeDict()
	page.Set("Resources", resources)
	raw := flateCompress(t, "q Q")
	contentDict := core.MakeDict()
	contentDict.Set("Filter", core.MakeName("FlateDecode"))
	stream := p.addStream(10, contentDict, raw)
	page.Set("Contents", stream)
	p.pages = append(p.pages, page)

	session, objCtx, _ := newTestSession(p)
	results, err := session.EmbedAsFormXObjects("src.pdf", AllPages(), BoxMedia, IdentityMatrix)
	require.NoError(t, err)
	require.Len(t, results, 1)

	require.Equal(t, 2, session.IdentifierMapSize())
	require.Equal(t, 2, session.EmittedTotal())

	targetX := objCtx.objects[objCtx.order[0]].String()
	targetY := objCtx.objects[objCtx.order[1]].String()
	require.Contains(t, targetX, "0 R")
	require.Contains(t, targetY, "0 R")
}

// TestFlateDecodeContentArrayConcatenation covers scenario 4: page
// Contents is an array of two FlateDecoded streams whose concatenated,
// inflated payload is "q\nBT ... ET\nQ".
func TestFlateDecodeContentArrayConcatenation(t *testing.T) {
	p := newFakeParser()

	resources := core.MakeDict()
	page := core.MakeDict()
	page.Set("Resources", resources)

	d1 := core.MakeDict()
	d1.Set("Filter", core.MakeName("FlateDecode"))
	s1 := p.addStream(1, d1, flateCompress(t, "q"))

	d2 := core.MakeDict()
	d2.Set("Filter", core.MakeName("FlateDecode"))
	s2 := p.addStream(2, d2, flateCompress(t, "BT ... ET\nQ"))
	_ = s1
	_ = s2

	page.Set("Contents", core.MakeArray(core.MakeReference(1, 0), core.MakeReference(2, 0)))
	p.pages = append(p.pages, page)

	session, _, _ := newTestSession(p)
	results, err := session.EmbedAsFormXObjects("src.pdf", AllPages(), BoxMedia, IdentityMatrix)
	require.NoError(t, err)
	require.Len(t, results, 1)

	fx := results[0].(*fakeFormXObject)
	require.Equal(t, "q\nBT ... ET\nQ", fx.content.String())
}

// TestInheritedMediaBox covers scenario 5: a page with no MediaBox
// whose parent Pages node declares MediaBox [0 0 400 600].
func TestInheritedMediaBox(t *testing.T) {
	p := newFakeParser()

	parent := core.MakeDict()
	parent.Set("MediaBox", core.MakeArray(core.MakeInteger(0), core.MakeInteger(0), core.MakeInteger(400), core.MakeInteger(600)))

	page := core.MakeDict()
	page.Set("Parent", parent)
	page.Set("Resources", core.MakeDict())
	raw := flateCompress(t, "q Q")
	contentDict := core.MakeDict()
	contentDict.Set("Filter", core.MakeName("FlateDecode"))
	stream := p.addStream(1, contentDict, raw)
	page.Set("Contents", stream)
	p.pages = append(p.pages, page)

	rect := ResolveBox(p, page, BoxMedia)
	require.Equal(t, Rectangle{0, 0, 400, 600}, rect)
}

func TestMediaBoxDefaultsWhenAbsent(t *testing.T) {
	page := core.MakeDict()
	rect := ResolveBox(newFakeParser(), page, BoxMedia)
	require.Equal(t, defaultMediaBox, rect)
}

func TestTrimFallsBackToMedia(t *testing.T) {
	page := core.MakeDict()
	page.Set("MediaBox", core.MakeArray(core.MakeInteger(0), core.MakeInteger(0), core.MakeInteger(200), core.MakeInteger(300)))
	rect := ResolveBox(newFakeParser(), page, BoxTrim)
	require.Equal(t, Rectangle{0, 0, 200, 300}, rect)
}

// TestInvalidRange covers scenario 6: requesting [5, 2] on a 10-page
// document fails, leaving the destination unchanged beyond whatever
// was emitted before the invalid range was reached.
func TestInvalidRange(t *testing.T) {
	p := newFakeParser()
	for i := 0; i < 10; i++ {
		page := core.MakeDict()
		page.Set("Resources", core.MakeDict())
		raw := flateCompress(t, "q Q")
		contentDict := core.MakeDict()
		contentDict.Set("Filter", core.MakeName("FlateDecode"))
		stream := p.addStream(int64(1000+i), contentDict, raw)
		page.Set("Contents", stream)
		p.pages = append(p.pages, page)
	}

	session, _, _ := newTestSession(p)
	sel := PageSelection{Ranges: []PageRange{{First: 5, Last: 2}}}
	results, err := session.EmbedAsFormXObjects("src.pdf", sel, BoxMedia, IdentityMatrix)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrRangeError)
	require.Empty(t, results)
}

func TestSessionIsolationAcrossCalls(t *testing.T) {
	p1 := newFakeParser()
	fontDict := core.MakeDict()
	p1.objects[1] = fontDict
	resources := core.MakeDict()
	resources.Set("Font", core.MakeReference(1, 0))
	page := core.MakeDict()
	page.Set("Resources", resources)
	raw := flateCompress(t, "q Q")
	cd := core.MakeDict()
	cd.Set("Filter", core.MakeName("FlateDecode"))
	stream := p1.addStream(2, cd, raw)
	page.Set("Contents", stream)
	p1.pages = append(p1.pages, page)

	objCtx := newFakeObjectsContext()
	docCtx := newFakeDocumentContext(objCtx)
	session := NewSession(func() Parser { return p1 }, objCtx, docCtx)

	_, err := session.EmbedAsFormXObjects("a.pdf", AllPages(), BoxMedia, IdentityMatrix)
	require.NoError(t, err)
	require.Equal(t, 0, session.IdentifierMapSize())

	_, err = session.EmbedAsFormXObjects("b.pdf", AllPages(), BoxMedia, IdentityMatrix)
	require.NoError(t, err)
	require.Equal(t, 0, session.IdentifierMapSize())
}
