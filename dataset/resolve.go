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

package dataset

import (
	"log/slog"

	"github.com/bred-data/bred/registry"
)

// "all" is always a valid table name, meaning "don't filter"
const AllTables = "all"

// A Resolution is the outcome of validating a requested table against a
// dataset's descriptor. It is ephemeral and never persisted.
type Resolution struct {
	// the table to serve (empty for single-table datasets, "all" when no
	// filtering should occur)
	Table string
	// the dataset's declared tables
	Available []string
	// true if the table was chosen by default rather than requested
	IsDefault bool
	// true if a single table must be carved out of the payload
	Filter bool
}

// Resolve validates a requested table name against a dataset descriptor.
// An empty request resolves to the descriptor's declared default table, or
// failing that to the lexicographically first declared table. Requesting a
// table from a single-table dataset logs a warning and is otherwise ignored.
func Resolve(desc registry.Descriptor, requested string) (Resolution, error) {
	if !desc.MultiTable() {
		if requested != "" && requested != AllTables {
			slog.Warn("Dataset has no tables; ignoring requested table",
				"dataset", desc.Name, "table", requested)
		}
		return Resolution{}, nil
	}

	available := desc.TableNames()
	if requested == AllTables {
		return Resolution{Table: AllTables, Available: available}, nil
	}
	if requested == "" {
		table := desc.DefaultTable
		if table == "" {
			table = available[0]
		}
		return Resolution{Table: table, Available: available, IsDefault: true, Filter: true}, nil
	}
	if _, found := desc.Tables[requested]; !found {
		return Resolution{}, &UnknownTableError{
			Dataset: desc.Name,
			Table:   requested,
			Valid:   available,
		}
	}
	return Resolution{Table: requested, Available: available, Filter: true}, nil
}

// Extract carves the resolved table out of a payload. Two payload shapes are
// handled: keyed collections are indexed directly, and flat tables with a
// discriminator column are filtered row-wise using the descriptor's declared
// value mapping. Resolutions that don't filter return the payload untouched.
func Extract(desc registry.Descriptor, payload Payload, resolution Resolution) (Payload, error) {
	if !resolution.Filter {
		return payload, nil
	}

	switch desc.Extraction {
	case registry.ExtractionDiscriminator:
		table, isTable := payload.(*Table)
		if !isTable {
			return nil, &UnexpectedShapeError{
				Dataset: desc.Name,
				Message: "expected a flat table with a discriminator column",
			}
		}
		value := desc.DiscriminatorValues[resolution.Table]
		filtered := table.FilterRows(desc.DiscriminatorColumn, value)
		if len(filtered.Rows) == 0 {
			return nil, &EmptySliceError{
				Dataset: desc.Name,
				Table:   resolution.Table,
				Column:  desc.DiscriminatorColumn,
				Value:   value,
			}
		}
		return filtered, nil
	default: // keyed
		collection, isCollection := payload.(Collection)
		if !isCollection {
			return nil, &UnexpectedShapeError{
				Dataset: desc.Name,
				Message: "expected a keyed collection of tables",
			}
		}
		// tables are keyed by their cache file stem, falling back to the
		// public table name
		if table, found := collection[desc.Tables[resolution.Table]]; found {
			return table, nil
		}
		if table, found := collection[resolution.Table]; found {
			return table, nil
		}
		return nil, &UnknownTableError{
			Dataset: desc.Name,
			Table:   resolution.Table,
			Valid:   collection.Names(),
		}
	}
}
