// Save Earth Ride - Drive Events API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/saveearthride

package drives

import (
	"strconv"
	"strings"
)

// SheetName is the sheet tab holding drives.
const SheetName = "Drives"

// Header is the column layout written by Initialize.
var Header = []string{
	"id", "title", "location", "date", "participants", "treesTarget", "status",
	"registrationOpen", "organizer", "contactEmail", "logo", "description",
	"createdAt", "updatedAt",
}

// columns maps header names to positions in a sheet row.
type columns map[string]int

func columnsFrom(header []string) columns {
	cols := make(columns, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if _, dup := cols[name]; name != "" && !dup {
			cols[name] = i
		}
	}
	return cols
}

func (c columns) get(row []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// width is the row length needed to hold every known column.
func (c columns) width() int {
	w := 0
	for _, i := range c {
		w = max(w, i+1)
	}
	return w
}

// decode builds a drive from a sheet row, normalising numeric, boolean and
// status cells.
func (c columns) decode(row []string) Drive {
	status := Status(strings.ToLower(c.get(row, "status")))
	if status == "" {
		status = StatusUpcoming
	}
	return Drive{
		ID:               c.get(row, "id"),
		Title:            c.get(row, "title"),
		Location:         c.get(row, "location"),
		Date:             c.get(row, "date"),
		Participants:     int(ParseCount(c.get(row, "participants"))),
		TreesTarget:      int(ParseCount(c.get(row, "treesTarget"))),
		Status:           status,
		RegistrationOpen: ParseBool(c.get(row, "registrationOpen"), true),
		Organizer:        c.get(row, "organizer"),
		ContactEmail:     c.get(row, "contactEmail"),
		Logo:             c.get(row, "logo"),
		Description:      c.get(row, "description"),
		CreatedAt:        c.get(row, "createdAt"),
		UpdatedAt:        c.get(row, "updatedAt"),
	}
}

// encode writes d into a row laid out by c. Cells under unknown headers in
// base are preserved.
func (c columns) encode(d Drive, base []string) []string {
	row := make([]string, max(len(base), c.width()))
	copy(row, base)

	set := func(name, value string) {
		if i, ok := c[name]; ok {
			row[i] = value
		}
	}
	set("id", d.ID)
	set("title", d.Title)
	set("location", d.Location)
	set("date", d.Date)
	set("participants", strconv.Itoa(d.Participants))
	set("treesTarget", strconv.Itoa(d.TreesTarget))
	set("status", string(d.Status))
	set("registrationOpen", strconv.FormatBool(d.RegistrationOpen))
	set("organizer", d.Organizer)
	set("contactEmail", d.ContactEmail)
	set("logo", d.Logo)
	set("description", d.Description)
	set("createdAt", d.CreatedAt)
	set("updatedAt", d.UpdatedAt)
	return row
}

// record is a decoded drive and its row index in the sheet (header is row 0).
type record struct {
	drive Drive
	row   int
	raw   []string
}

// sheet is a parsed snapshot of the Drives sheet.
type sheet struct {
	cols    columns
	records []record
}

func parseSheet(rows [][]string) sheet {
	if len(rows) == 0 {
		return sheet{cols: columnsFrom(Header)}
	}
	s := sheet{cols: columnsFrom(rows[0])}
	for i, row := range rows[1:] {
		d := s.cols.decode(row)
		if d.ID == "" {
			continue
		}
		s.records = append(s.records, record{drive: d, row: i + 1, raw: row})
	}
	return s
}

func (s sheet) find(id string) (record, bool) {
	for _, r := range s.records {
		if r.drive.ID == id {
			return r, true
		}
	}
	return record{}, false
}
