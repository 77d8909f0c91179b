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
	"fmt"
	"strings"
)

// This error type is returned when a requested table isn't among a dataset's
// declared (or materialized) tables. It carries the valid options.
type UnknownTableError struct {
	Dataset, Table string
	Valid          []string
}

func (e UnknownTableError) Error() string {
	return fmt.Sprintf("The dataset '%s' has no table '%s' (valid tables: %s)",
		e.Dataset, e.Table, strings.Join(e.Valid, ", "))
}

// indicates that filtering a flat table by its discriminator column matched
// no rows
type EmptySliceError struct {
	Dataset, Table, Column, Value string
}

func (e EmptySliceError) Error() string {
	return fmt.Sprintf("The dataset '%s' has no rows for table '%s' (%s = '%s')",
		e.Dataset, e.Table, e.Column, e.Value)
}

// indicates that a payload's shape doesn't match the dataset's declared
// extraction strategy
type UnexpectedShapeError struct {
	Dataset, Message string
}

func (e UnexpectedShapeError) Error() string {
	return fmt.Sprintf("Unexpected payload shape for dataset '%s': %s", e.Dataset, e.Message)
}
