// Copyright (c) 2024 The BRED Project and its Contributors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies
// of the Software, and to permit persons to whom the Software is furnished to do
// so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// This package defines the payload model for BRED datasets: a dataset is
// materialized either as a single flat Table or as a Collection of tables
// keyed by name. It also provides the serialization codecs for both shapes
// and the logic that resolves and extracts a requested table.
package dataset

import (
	"sort"
)

// A Payload is the materialized form of a dataset: either a *Table or a
// Collection.
type Payload interface {
	payload()
}

// A Table is a flat table of string-valued cells under named columns.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

func (t *Table) payload() {}

// A Collection maps table names to tables.
type Collection map[string]*Table

func (c Collection) payload() {}

// returns the index of the named column, or -1 if the table has no such column
func (t *Table) ColumnIndex(name string) int {
	for i, column := range t.Columns {
		if column == name {
			return i
		}
	}
	return -1
}

// returns a new table holding the rows for which the named column equals the
// given value (the column itself is retained)
func (t *Table) FilterRows(column, value string) *Table {
	filtered := &Table{
		Columns: t.Columns,
		Rows:    make([][]string, 0),
	}
	index := t.ColumnIndex(column)
	if index < 0 {
		return filtered
	}
	for _, row := range t.Rows {
		if index < len(row) && row[index] == value {
			filtered.Rows = append(filtered.Rows, row)
		}
	}
	return filtered
}

// returns the sorted names of the tables in the collection
func (c Collection) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
