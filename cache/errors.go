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

package cache

import (
	"fmt"
)

// This error type is returned when a dataset is requested explicitly from
// the local cache but no cached copy exists.
type MissError struct {
	Dataset string
}

func (e MissError) Error() string {
	return fmt.Sprintf("The dataset '%s' has no local cached copy", e.Dataset)
}

// indicates that a cached data file exists but could not be read back
type ReadError struct {
	Dataset, Message string
}

func (e ReadError) Error() string {
	return fmt.Sprintf("Couldn't read the cached copy of dataset '%s': %s", e.Dataset, e.Message)
}

// indicates that a data file could not be written to the cache
type WriteError struct {
	Dataset, Message string
}

func (e WriteError) Error() string {
	if e.Dataset == "" {
		return fmt.Sprintf("Couldn't write to the cache: %s", e.Message)
	}
	return fmt.Sprintf("Couldn't cache dataset '%s': %s", e.Dataset, e.Message)
}

// indicates a problem reading or rewriting the cache metadata index
type IndexError struct {
	Message string
}

func (e IndexError) Error() string {
	return fmt.Sprintf("Couldn't access the cache index: %s", e.Message)
}
