/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package embedder

import "github.com/go-pdfkit/pdfembed/common"

func logWarning(format string, args ...interface{}) {
	common.Log.Warning(format, args...)
}
