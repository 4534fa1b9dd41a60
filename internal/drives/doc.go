// Save Earth Ride - Drive Events API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/saveearthride

// Package drives implements the drive records and their CRUD operations on
// top of a store.Backend.
//
// Drives live on the "Drives" sheet, one row per drive, with a fixed header
// row. Columns are located by header name when reading so manually reordered
// sheets still parse. Writes are serialised inside the process; concurrent
// writers in other processes follow last-write-wins semantics of the
// spreadsheet itself.
package drives
