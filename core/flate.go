/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package core

import (
	"bytes"
	"compress/zlib"
	"io"

	"golang.org/x/xerrors"
)

// DecodeFlate inflates a FlateDecode-filtered stream. FlateDecode
// streams are zlib-wrapped (RFC 1950), not raw DEFLATE (RFC 1951):
// a two-byte zlib header and trailing Adler-32 checksum wrap the
// deflate-compressed payload.
func DecodeFlate(encoded []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(encoded))
	if err != nil {
		return nil, xerrors.Errorf("core: zlib header: %w", err)
	}
	defer r.Close()

	decoded, err := io.ReadAll(r)
	if err != nil {
		return nil, xerrors.Errorf("core: zlib inflate: %w", err)
	}
	return decoded, nil
}
