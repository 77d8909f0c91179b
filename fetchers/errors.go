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

package fetchers

import (
	"fmt"
)

// indicates that a fetch capability is already registered and an attempt has
// been made to register it again
type AlreadyRegisteredError struct {
	Capability string
}

func (e AlreadyRegisteredError) Error() string {
	return fmt.Sprintf("Cannot register fetch capability '%s': already registered", e.Capability)
}

// indicates that a dataset declares a fetch capability nothing has
// registered an implementation for
type UnknownCapabilityError struct {
	Capability string
}

func (e UnknownCapabilityError) Error() string {
	return fmt.Sprintf("No fetch capability is registered for '%s'", e.Capability)
}

// indicates that a fetch capability failed to obtain fresh data
type FetchError struct {
	Capability, Message string
}

func (e FetchError) Error() string {
	return fmt.Sprintf("Fetch capability '%s' failed: %s", e.Capability, e.Message)
}
