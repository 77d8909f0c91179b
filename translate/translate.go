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

// This package defines the translation boundary: datasets whose descriptors
// opt in have their Portuguese column names and categorical values renamed
// to English by an installed Translator. The dictionaries themselves live
// outside this module; when no translator is installed, payloads pass
// through untouched.
package translate

import (
	"fmt"

	"github.com/bred-data/bred/dataset"
	"github.com/bred-data/bred/registry"
)

// the name under which the standard PT -> EN dictionary registers itself
const Default = "default"

// A Translator renames a payload's columns and values. Implementations must
// not mutate the payload they are given.
type Translator interface {
	Translate(desc registry.Descriptor, payload dataset.Payload) (dataset.Payload, error)
}

var allTranslators = make(map[string]Translator)

// Register installs a translator under the given name; translators are
// registered once at startup.
func Register(name string, translator Translator) error {
	if _, found := allTranslators[name]; found {
		return &AlreadyRegisteredError{Name: name}
	}
	allTranslators[name] = translator
	return nil
}

// Lookup finds the translator registered under the given name.
func Lookup(name string) (Translator, bool) {
	translator, found := allTranslators[name]
	return translator, found
}

// indicates that a translator is already registered and an attempt has been
// made to register it again
type AlreadyRegisteredError struct {
	Name string
}

func (e AlreadyRegisteredError) Error() string {
	return fmt.Sprintf("Cannot register translator '%s': already registered", e.Name)
}
