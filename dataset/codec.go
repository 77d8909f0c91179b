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
	"compress/gzip"
	"encoding/csv"
	"encoding/gob"
	"fmt"
	"io"
)

// A Format identifies a serialization format for dataset payloads. Its
// string value doubles as the cache file extension.
type Format string

const (
	// gob-encoded payload; preserves the payload shape exactly and is the
	// only format that can hold a Collection
	FormatBinary Format = "gob"
	// gzip-compressed CSV; tables only
	FormatCSVGz Format = "csv.gz"
	// plain CSV; tables only
	FormatCSV Format = "csv"
)

// Formats lists every known format in probe priority order: the binary form
// always wins when present, then the compressed tabular form, then plain CSV.
func Formats() []Format {
	return []Format{FormatBinary, FormatCSVGz, FormatCSV}
}

// returns the file extension (including the leading dot) for the format
func (f Format) Ext() string {
	return "." + string(f)
}

// FormatFor picks the persistence format for a payload based on its shape:
// flat tables compress well as CSV, keyed collections need the binary form.
func FormatFor(payload Payload) Format {
	if _, isCollection := payload.(Collection); isCollection {
		return FormatBinary
	}
	return FormatCSVGz
}

// the gob codec encodes payloads through an envelope so both shapes travel
// through one concrete type
type gobEnvelope struct {
	Table      *Table
	Collection Collection
}

// Encode writes a payload to w in the given format. Only the binary format
// can represent a Collection.
func Encode(w io.Writer, payload Payload, format Format) error {
	switch format {
	case FormatBinary:
		var envelope gobEnvelope
		switch p := payload.(type) {
		case *Table:
			envelope.Table = p
		case Collection:
			envelope.Collection = p
		default:
			return fmt.Errorf("unsupported payload type %T", payload)
		}
		return gob.NewEncoder(w).Encode(envelope)
	case FormatCSVGz:
		gz := gzip.NewWriter(w)
		if err := encodeCSV(gz, payload); err != nil {
			gz.Close()
			return err
		}
		return gz.Close()
	case FormatCSV:
		return encodeCSV(w, payload)
	default:
		return fmt.Errorf("unknown format '%s'", format)
	}
}

func encodeCSV(w io.Writer, payload Payload) error {
	table, isTable := payload.(*Table)
	if !isTable {
		return fmt.Errorf("only flat tables can be written as CSV (got %T)", payload)
	}
	writer := csv.NewWriter(w)
	if err := writer.Write(table.Columns); err != nil {
		return err
	}
	if err := writer.WriteAll(table.Rows); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

// Decode reads a payload from r in the given format.
func Decode(r io.Reader, format Format) (Payload, error) {
	switch format {
	case FormatBinary:
		var envelope gobEnvelope
		if err := gob.NewDecoder(r).Decode(&envelope); err != nil {
			return nil, err
		}
		if envelope.Collection != nil {
			return envelope.Collection, nil
		}
		if envelope.Table != nil {
			return envelope.Table, nil
		}
		return nil, fmt.Errorf("binary payload holds neither a table nor a collection")
	case FormatCSVGz:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		return decodeCSV(gz)
	case FormatCSV:
		return decodeCSV(r)
	default:
		return nil, fmt.Errorf("unknown format '%s'", format)
	}
}

func decodeCSV(r io.Reader) (Payload, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("CSV payload has no header row")
	}
	return &Table{
		Columns: records[0],
		Rows:    records[1:],
	}, nil
}
