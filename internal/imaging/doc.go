// Save Earth Ride - Drive Events API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/saveearthride

// Package imaging shrinks uploaded drive logos so they fit in a single
// spreadsheet cell as a base64 data URI.
//
// Uploads are rejected before decoding when the MIME type is not image/* or
// when the base64 expansion of the raw bytes (x1.33) exceeds MaxEncodedBytes.
// Accepted images are scaled so the longer side is at most MaxDimension, then
// JPEG-encoded starting at quality 0.8 and stepping down by 0.1 until the data
// URI fits TargetBytes or the 0.1 floor is reached. Reaching the floor is not
// an error: the smallest encoding is returned with IsValid set.
package imaging
