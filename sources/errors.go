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

package sources

import (
	"fmt"
	"strings"
)

// indicates that a request named a source tier that doesn't exist
type UnknownSourceError struct {
	Source string
}

func (e UnknownSourceError) Error() string {
	return fmt.Sprintf("Unknown source '%s' (valid sources: auto, cache, github, fresh)", e.Source)
}

// one tier's captured failure during the automatic fallback
type TierFailure struct {
	Tier   Source
	Reason string
}

// This error type is returned when every source tier fails during the
// automatic fallback. It enumerates each tier's failure.
type AllTiersFailedError struct {
	Dataset  string
	Failures []TierFailure
}

func (e AllTiersFailedError) Error() string {
	reasons := make([]string, 0, len(e.Failures))
	for _, failure := range e.Failures {
		reasons = append(reasons, fmt.Sprintf("%s: %s", failure.Tier, failure.Reason))
	}
	return fmt.Sprintf("Couldn't obtain dataset '%s' from any source (%s)",
		e.Dataset, strings.Join(reasons, "; "))
}
