/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

// Package common contains common properties used by the subpackages.
package common

import (
	"time"
)

const releaseYear = 2026
const releaseMonth = 7
const releaseDay = 30
const releaseHour = 12
const releaseMin = 00

// Version holds the module's version. The docwriter package writes no
// document info dictionary, so Version does not appear in its output.
const Version = "0.1.0"

// ReleasedAt is the release timestamp corresponding to Version.
var ReleasedAt = time.Date(releaseYear, releaseMonth, releaseDay, releaseHour, releaseMin, 0, 0, time.UTC)
