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

package registry

import (
	"fmt"
	"strings"
)

// indicates that the dataset catalog itself could not be loaded or fails
// validation (a deployment problem, fatal at startup)
type InvalidCatalogError struct {
	Dataset, Message string
}

func (e InvalidCatalogError) Error() string {
	if e.Dataset != "" {
		return fmt.Sprintf("Invalid catalog entry for dataset '%s': %s", e.Dataset, e.Message)
	}
	return fmt.Sprintf("Invalid dataset catalog: %s", e.Message)
}

// This error type is returned when a dataset is sought but not found in the
// catalog. It carries the names of the datasets that do exist.
type UnknownDatasetError struct {
	Dataset string
	Known   []string
}

func (e UnknownDatasetError) Error() string {
	return fmt.Sprintf("The dataset '%s' was not found (known datasets: %s)",
		e.Dataset, strings.Join(e.Known, ", "))
}

// indicates that a dataset exists in the catalog but is not yet available
type HiddenDatasetError struct {
	Dataset string
}

func (e HiddenDatasetError) Error() string {
	return fmt.Sprintf("The dataset '%s' is not yet available", e.Dataset)
}
