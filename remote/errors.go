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

package remote

import (
	"fmt"
)

// indicates that the remote snapshot store exists but is currently
// unreachable (or is not configured at all); a soft failure in automatic
// fallback mode
type UnavailableError struct {
	Message string
}

func (e UnavailableError) Error() string {
	return fmt.Sprintf("Cannot reach the remote snapshot store: %s", e.Message)
}

// indicates that a snapshot asset was listed by the store but could not be
// transferred or decoded
type DownloadError struct {
	Asset, Message string
}

func (e DownloadError) Error() string {
	return fmt.Sprintf("Couldn't download snapshot asset '%s': %s", e.Asset, e.Message)
}

// indicates that an HTTPS request was redirected to an insecure endpoint
type DowngradedRedirectError struct {
	Endpoint string
}

func (e DowngradedRedirectError) Error() string {
	return fmt.Sprintf("Redirected to plain HTTP endpoint %s", e.Endpoint)
}
