/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package core

import "golang.org/x/xerrors"

// ErrTypeError is returned when an object's concrete type does not
// match what a caller expected (e.g. asking for an array, finding a
// dictionary).
var ErrTypeError = xerrors.New("core: type check error")

// ErrRangeError is returned when a numeric value is out of the range
// the caller requires.
var ErrRangeError = xerrors.New("core: range check error")

// ErrNotANumber is returned when a numeric coercion is attempted on a
// non-numeric object.
var ErrNotANumber = xerrors.New("core: object is not a number")
