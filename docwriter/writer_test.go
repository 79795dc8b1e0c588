/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package docwriter

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-pdfkit/pdfembed/core"
	"github.com/go-pdfkit/pdfembed/embedder"
)

// fakeResourcesWriter stamps a single fixed entry into whatever
// Resources dictionary it is driven against, mirroring the shape of
// embedder's real resources callback without depending on that
// package's internals.
type fakeResourcesWriter struct {
	key string
}

func (f *fakeResourcesWriter) OnResourcesWrite(dw embedder.DictionaryWriter, objCtx embedder.ObjectsContext) error {
	dw.WriteKey(core.PdfObjectName(f.key))
	objCtx.WriteIndirectObjectReference(1)
	return nil
}

func TestWriterEmptyDocumentIsStructurallyValid(t *testing.T) {
	w := NewWriter()

	var buf bytes.Buffer
	require.NoError(t, w.Write(&buf))

	out := buf.String()
	require.True(t, strings.HasPrefix(out, "%PDF-1.7\n"))
	require.Contains(t, out, "/Type /Pages")
	require.Contains(t, out, "/Type /Catalog")
	require.Contains(t, out, "xref\n")
	require.Contains(t, out, "trailer\n")
	require.Contains(t, out, "startxref\n")
	require.True(t, strings.HasSuffix(out, "%%EOF"))
}

func TestWriterFormXObjectRoundTrip(t *testing.T) {
	w := NewWriter()
	rw := &fakeResourcesWriter{key: "Font0"}
	w.DocCtx.AddDocumentContextExtender(rw)

	box := embedder.Rectangle{LowerLeftX: 0, LowerLeftY: 0, UpperRightX: 200, UpperRightY: 300}
	fx, err := w.DocCtx.StartFormXObject(box, embedder.IdentityMatrix)
	require.NoError(t, err)

	content := "q 1 0 0 1 0 0 cm /Font0 12 Tf (hi) Tj Q"
	_, err = fx.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.DocCtx.EndFormXObjectNoRelease(fx))

	var buf bytes.Buffer
	require.NoError(t, w.Write(&buf))
	out := buf.String()

	require.Contains(t, out, "/Subtype /Form")
	require.Contains(t, out, "/FormType 1")
	require.Contains(t, out, "/BBox")
	require.Contains(t, out, "/Matrix")
	require.Contains(t, out, "/Font0")
	require.Contains(t, out, "stream\n"+content+"\nendstream")
}

func TestWriterAppendedPageRoundTrip(t *testing.T) {
	w := NewWriter()

	box := embedder.Rectangle{LowerLeftX: 0, LowerLeftY: 0, UpperRightX: 400, UpperRightY: 600}
	pageID, err := w.DocCtx.WritePage(box)
	require.NoError(t, err)

	ctx, err := w.DocCtx.StartPageContentContext(pageID)
	require.NoError(t, err)
	_, err = ctx.Write([]byte("q BT ET Q"))
	require.NoError(t, err)
	require.NoError(t, w.DocCtx.EndPageContentContext(ctx))

	var buf bytes.Buffer
	require.NoError(t, w.Write(&buf))
	out := buf.String()

	require.Contains(t, out, "/Type /Page")
	require.Contains(t, out, "/Contents")
	require.Contains(t, out, "/MediaBox")
	require.Contains(t, out, "q BT ET Q")
	require.Contains(t, out, "/Kids [")
	require.Contains(t, out, "/Count 1")
}

// TestWriterMultiplePagesProduceConsistentXref checks that every "n"
// entry in the emitted cross-reference table points at the exact byte
// offset, within the final output, of that object's "N 0 obj" header —
// the header-length adjustment Write applies to every recorded offset.
func TestWriterMultiplePagesProduceConsistentXref(t *testing.T) {
	w := NewWriter()

	for i := 0; i < 3; i++ {
		box := embedder.Rectangle{LowerLeftX: 0, LowerLeftY: 0, UpperRightX: 100, UpperRightY: 100}
		pageID, err := w.DocCtx.WritePage(box)
		require.NoError(t, err)
		ctx, err := w.DocCtx.StartPageContentContext(pageID)
		require.NoError(t, err)
		require.NoError(t, w.DocCtx.EndPageContentContext(ctx))
	}

	var buf bytes.Buffer
	require.NoError(t, w.Write(&buf))
	out := buf.String()

	require.Contains(t, out, "/Count 3")

	xrefIdx := strings.Index(out, "xref\n")
	trailerIdx := strings.Index(out, "trailer\n")
	require.Greater(t, xrefIdx, 0)
	require.Greater(t, trailerIdx, xrefIdx)
	section := out[xrefIdx:trailerIdx]

	lines := strings.Split(strings.TrimRight(section, "\n"), "\n")
	// lines[0] == "xref", lines[1] == "0 N", lines[2] is the free-list
	// head entry (object 0); every following line is object id
	// (line index - 2).
	for i := 3; i < len(lines); i++ {
		id := i - 2
		line := lines[i]
		if !strings.HasSuffix(line, "n ") {
			continue
		}
		var offset int
		_, err := fmt.Sscanf(line, "%010d", &offset)
		require.NoError(t, err)
		require.Less(t, offset, len(out))
		header := fmt.Sprintf("%d 0 obj", id)
		require.Equal(t, header, out[offset:offset+len(header)])
	}
}
